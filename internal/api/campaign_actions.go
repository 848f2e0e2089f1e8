package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campusreach/campaign-studio/internal/audience"
	"github.com/campusreach/campaign-studio/internal/campaign"
	"github.com/campusreach/campaign-studio/internal/mailer"
	"github.com/campusreach/campaign-studio/internal/storage"
)

const maxUploadBytes = 32 << 20

// parsedForm is a campaign decoded from a composer multipart request.
type parsedForm struct {
	campaign campaign.Campaign
	sendNow  bool
}

// parseCampaignForm decodes the multipart body the composer sends: scalar
// fields as form values, audience lists as JSON-encoded strings, new
// attachments as binary file parts and retained uploads as a JSON list.
func parseCampaignForm(r *http.Request) (*parsedForm, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}

	c := campaign.Campaign{
		Name:         r.FormValue("name"),
		Subject:      r.FormValue("subject"),
		Content:      r.FormValue("content"),
		CampaignType: r.FormValue("campaign_type"),
		FromName:     r.FormValue("from_name"),
		FromEmail:    r.FormValue("from_email"),
	}
	if c.CampaignType == "" {
		c.CampaignType = campaign.TypeEmail
	}
	c.TargetAll, _ = strconv.ParseBool(r.FormValue("target_all"))
	c.Recurring, _ = strconv.ParseBool(r.FormValue("recurring"))
	sendNow, _ := strconv.ParseBool(r.FormValue("send_now"))

	if v := r.FormValue("send_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New("invalid send_at")
		}
		c.SendAt = &t
	}
	if v := r.FormValue("end_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New("invalid end_at")
		}
		c.EndAt = &t
	}

	// Audience lists arrive JSON-encoded. Legacy clients double-encode them;
	// StringList absorbs both shapes and never fails the request.
	c.Institutions = decodeWireList(r.FormValue("institutions"))
	c.Departments = decodeWireList(r.FormValue("departments"))
	c.Levels = decodeWireList(r.FormValue("levels"))
	c.TimeSlots = decodeWireList(r.FormValue("time_slots"))

	if v := r.FormValue("existing_attachments"); v != "" {
		var existing []campaign.Attachment
		if err := json.Unmarshal([]byte(v), &existing); err != nil {
			return nil, errors.New("invalid existing_attachments")
		}
		c.Attachments = append(c.Attachments, existing...)
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["attachments"] {
			file, err := header.Open()
			if err != nil {
				return nil, err
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return nil, err
			}
			c.Attachments = append(c.Attachments, campaign.Attachment{
				Filename: header.Filename,
				Size:     int64(len(data)),
				Data:     data,
			})
		}
	}

	return &parsedForm{campaign: c, sendNow: sendNow}, nil
}

func decodeWireList(raw string) []string {
	var list audience.StringList
	if raw != "" {
		json.Unmarshal([]byte(raw), &list)
	}
	if list == nil {
		return []string{}
	}
	return list
}

// formData converts a parsed wire campaign into composer form state for
// validation. Stored names become catalog IDs, and content is reduced to
// the editor fragment when the wire carried a wrapped document.
func (s *Server) formData(r *http.Request, p *parsedForm, wrapped bool) (campaign.FormData, error) {
	insts, err := s.catalog.Institutions(r.Context())
	if err != nil {
		return campaign.FormData{}, err
	}

	content := p.campaign.Content
	if wrapped {
		content = mailer.Extract(content)
	}

	return campaign.FormData{
		Name:    p.campaign.Name,
		Subject: p.campaign.Subject,
		Content: content,
		Audience: audience.Selection{
			TargetAll:      p.campaign.TargetAll,
			InstitutionIDs: institutionIDs(p.campaign.Institutions, insts),
			Departments:    p.campaign.Departments,
			Levels:         p.campaign.Levels,
		},
		SendNow:      p.sendNow,
		SendAt:       p.campaign.SendAt,
		EndAt:        p.campaign.EndAt,
		Recurring:    p.campaign.Recurring,
		TimeSlots:    p.campaign.TimeSlots,
		CampaignType: p.campaign.CampaignType,
		FromName:     p.campaign.FromName,
		FromEmail:    p.campaign.FromEmail,
	}, nil
}

func institutionIDs(names []string, catalog []audience.Institution) []string {
	byName := make(map[string]string, len(catalog))
	for _, inst := range catalog {
		byName[inst.Name] = inst.ID
	}
	ids := []string{}
	for _, name := range names {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// HandleCreateDraft creates a draft campaign. Drafts store the raw editor
// fragment exactly as sent, so reopening the composer needs no extraction.
func (s *Server) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := parseCampaignForm(r)
	if err != nil {
		log.Printf("[Campaigns] Draft parse error: %v", err)
		http.Error(w, `{"error":"invalid form data"}`, http.StatusBadRequest)
		return
	}
	if p.campaign.Name == "" {
		http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
		return
	}

	p.campaign.Status = campaign.StatusDraft
	id, err := s.store.CreateCampaign(ctx, p.campaign)
	if err != nil {
		log.Printf("[Campaigns] Draft create error: %v", err)
		http.Error(w, `{"error":"failed to save draft"}`, http.StatusInternalServerError)
		return
	}

	if err := s.storeAttachments(ctx, id, p.campaign.Attachments); err != nil {
		log.Printf("[Campaigns] Attachment upload error for %s: %v", id, err)
		http.Error(w, `{"error":"failed to store attachments"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "status": campaign.StatusDraft})
}

// HandleUpdateDraft updates an editable campaign in place.
func (s *Server) HandleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	p, err := parseCampaignForm(r)
	if err != nil {
		log.Printf("[Campaigns] Draft parse error: %v", err)
		http.Error(w, `{"error":"invalid form data"}`, http.StatusBadRequest)
		return
	}
	if p.campaign.Name == "" {
		http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
		return
	}

	if err := s.store.UpdateDraft(ctx, id, p.campaign); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, `{"error":"campaign not found"}`, http.StatusNotFound)
		case errors.Is(err, storage.ErrNotEditable):
			http.Error(w, `{"error":"campaign can no longer be edited"}`, http.StatusBadRequest)
		default:
			log.Printf("[Campaigns] Draft update error for %s: %v", id, err)
			http.Error(w, `{"error":"failed to save draft"}`, http.StatusInternalServerError)
		}
		return
	}

	if err := s.storeAttachments(ctx, id, p.campaign.Attachments); err != nil {
		log.Printf("[Campaigns] Attachment upload error for %s: %v", id, err)
		http.Error(w, `{"error":"failed to store attachments"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": campaign.StatusDraft})
}

// HandleSubmitCampaign creates and submits a campaign in one step. The wire
// content is the fully wrapped mailer document; validation re-checks the
// schedule lead time against the submission clock, not the clock at the time
// the user picked the date.
func (s *Server) HandleSubmitCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	p, err := parseCampaignForm(r)
	if err != nil {
		log.Printf("[Campaigns] Submit parse error: %v", err)
		http.Error(w, `{"error":"invalid form data"}`, http.StatusBadRequest)
		return
	}

	form, err := s.formData(r, p, true)
	if err != nil {
		log.Printf("[Campaigns] Catalog error: %v", err)
		http.Error(w, `{"error":"failed to load institution catalog"}`, http.StatusInternalServerError)
		return
	}
	if errs := campaign.Validate(form, time.Now()); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	p.campaign.Status = submittedStatus(p.sendNow)
	id, err := s.store.CreateCampaign(ctx, p.campaign)
	if err != nil {
		log.Printf("[Campaigns] Submit create error: %v", err)
		http.Error(w, `{"error":"failed to submit campaign"}`, http.StatusInternalServerError)
		return
	}

	if err := s.storeAttachments(ctx, id, p.campaign.Attachments); err != nil {
		log.Printf("[Campaigns] Attachment upload error for %s: %v", id, err)
		http.Error(w, `{"error":"failed to store attachments"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id, "status": p.campaign.Status})
}

// HandleSubmitExisting submits a previously saved draft with the final form
// contents. The stored draft content is replaced with the wrapped document.
func (s *Server) HandleSubmitExisting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	p, err := parseCampaignForm(r)
	if err != nil {
		log.Printf("[Campaigns] Submit parse error: %v", err)
		http.Error(w, `{"error":"invalid form data"}`, http.StatusBadRequest)
		return
	}

	form, err := s.formData(r, p, true)
	if err != nil {
		log.Printf("[Campaigns] Catalog error: %v", err)
		http.Error(w, `{"error":"failed to load institution catalog"}`, http.StatusInternalServerError)
		return
	}
	if errs := campaign.Validate(form, time.Now()); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": errs})
		return
	}

	if err := s.store.UpdateDraft(ctx, id, p.campaign); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, `{"error":"campaign not found"}`, http.StatusNotFound)
		case errors.Is(err, storage.ErrNotEditable):
			http.Error(w, `{"error":"campaign can no longer be edited"}`, http.StatusBadRequest)
		default:
			log.Printf("[Campaigns] Submit update error for %s: %v", id, err)
			http.Error(w, `{"error":"failed to submit campaign"}`, http.StatusInternalServerError)
		}
		return
	}

	if err := s.storeAttachments(ctx, id, p.campaign.Attachments); err != nil {
		log.Printf("[Campaigns] Attachment upload error for %s: %v", id, err)
		http.Error(w, `{"error":"failed to store attachments"}`, http.StatusInternalServerError)
		return
	}

	status := submittedStatus(p.sendNow)
	if err := s.store.SetStatus(ctx, id, status); err != nil {
		log.Printf("[Campaigns] Status update error for %s: %v", id, err)
		http.Error(w, `{"error":"failed to submit campaign"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": status})
}

func submittedStatus(sendNow bool) string {
	if sendNow {
		return campaign.StatusPending
	}
	return campaign.StatusScheduled
}

// HandleScheduleCampaign moves a saved draft to scheduled, re-checking the
// lead time against the current clock.
func (s *Server) HandleScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, `{"error":"campaign not found"}`, http.StatusNotFound)
			return
		}
		log.Printf("[Campaigns] Get error for %s: %v", id, err)
		http.Error(w, `{"error":"failed to fetch campaign"}`, http.StatusInternalServerError)
		return
	}

	if c.SendAt == nil {
		http.Error(w, `{"error":"campaign has no send date"}`, http.StatusBadRequest)
		return
	}
	if c.SendAt.Before(time.Now().Add(campaign.MinScheduleHours * time.Hour)) {
		http.Error(w, `{"error":"send date must be at least 3 hours from now"}`, http.StatusBadRequest)
		return
	}

	if err := s.store.SetStatus(ctx, id, campaign.StatusScheduled); err != nil {
		log.Printf("[Campaigns] Schedule error for %s: %v", id, err)
		http.Error(w, `{"error":"failed to schedule campaign"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": campaign.StatusScheduled})
}

// HandlePreview renders the full mailer document for the given editor
// fragment without persisting anything.
func (s *Server) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
		Subject string `json:"subject"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"html": s.renderer.Wrap(req.Content, req.Subject),
	})
}

// storeAttachments uploads new file parts and persists the final attachment
// list. Attachments already carrying a URL are kept by reference.
func (s *Server) storeAttachments(ctx context.Context, campaignID string, atts []campaign.Attachment) error {
	if len(atts) == 0 {
		return nil
	}

	stored := make([]campaign.Attachment, 0, len(atts))
	for _, a := range atts {
		if a.Existing() {
			stored = append(stored, a)
			continue
		}
		url, err := s.files.Put(ctx, campaignID, a.Filename, a.Data)
		if err != nil {
			return err
		}
		stored = append(stored, campaign.Attachment{
			Filename: a.Filename,
			Size:     a.Size,
			URL:      url,
		})
	}

	return s.store.ReplaceAttachments(ctx, campaignID, stored)
}
