package campaign

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/campusreach/campaign-studio/internal/audience"
	"github.com/campusreach/campaign-studio/internal/mailer"
)

// Payload is an assembled multipart request body plus its content type.
type Payload struct {
	Body        *bytes.Buffer
	ContentType string
}

// BuildSubmission assembles the submit payload: content is the fully
// wrapped mailer document, audience lists are JSON-encoded, new
// attachments are carried as binary parts and retained uploads as a JSON
// reference list. The institutions field carries display names, matching
// what the campaign store persists.
func BuildSubmission(f FormData, r *mailer.Renderer, catalog []audience.Institution) (*Payload, error) {
	wrapped := r.Wrap(f.Content, f.Subject)
	return build(f, wrapped, catalog)
}

// BuildDraft assembles the save-draft payload. Drafts persist the raw
// editor fragment, never the wrapped document: Wrap is not idempotent
// over its own output, so only raw fragments may ever reach it.
func BuildDraft(f FormData, catalog []audience.Institution) (*Payload, error) {
	return build(f, f.Content, catalog)
}

func build(f FormData, content string, catalog []audience.Institution) (*Payload, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"name":          f.Name,
		"subject":       f.Subject,
		"content":       content,
		"campaign_type": f.CampaignType,
		"from_name":     f.FromName,
		"from_email":    f.FromEmail,
		"target_all":    fmt.Sprintf("%t", f.Audience.TargetAll),
		"send_now":      fmt.Sprintf("%t", f.SendNow),
		"recurring":     fmt.Sprintf("%t", f.Recurring),
	}
	if f.SendAt != nil {
		fields["send_at"] = f.SendAt.UTC().Format(time.RFC3339)
	}
	if f.EndAt != nil {
		fields["end_at"] = f.EndAt.UTC().Format(time.RFC3339)
	}

	for name, value := range map[string][]string{
		"institutions": institutionNames(f.Audience.InstitutionIDs, catalog),
		"departments":  f.Audience.Departments,
		"levels":       f.Audience.Levels,
		"time_slots":   f.TimeSlots,
	} {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", name, err)
		}
		fields[name] = string(encoded)
	}

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", name, err)
		}
	}

	// New files go as binary parts; retained uploads travel by reference.
	existing := []Attachment{}
	for _, a := range f.Attachments {
		if a.Existing() {
			existing = append(existing, a)
			continue
		}
		part, err := w.CreateFormFile("attachments", a.Filename)
		if err != nil {
			return nil, fmt.Errorf("creating attachment part %s: %w", a.Filename, err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, fmt.Errorf("writing attachment %s: %w", a.Filename, err)
		}
	}
	encoded, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("encoding existing attachments: %w", err)
	}
	if err := w.WriteField("existing_attachments", string(encoded)); err != nil {
		return nil, fmt.Errorf("writing existing attachments: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}
	return &Payload{Body: &buf, ContentType: w.FormDataContentType()}, nil
}

func institutionNames(ids []string, catalog []audience.Institution) []string {
	byID := make(map[string]string, len(catalog))
	for _, inst := range catalog {
		byID[inst.ID] = inst.Name
	}
	names := []string{}
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}
