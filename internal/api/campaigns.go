package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusreach/campaign-studio/internal/campaign"
	"github.com/campusreach/campaign-studio/internal/storage"
)

// HandleListCampaigns lists campaigns with status/search filtering and pagination
func (s *Server) HandleListCampaigns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pag := ParsePagination(r, 50, 200)

	params := storage.ListParams{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
		Limit:  pag.Limit,
		Offset: pag.Offset,
	}

	summaries, total, err := s.store.ListCampaigns(ctx, params)
	if err != nil {
		log.Printf("[Campaigns] List error: %v", err)
		http.Error(w, `{"error":"failed to fetch campaigns"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, NewPaginatedResponse(summaries, pag, total))
}

// HandleGetCampaign returns a single campaign with full details
func (s *Server) HandleGetCampaign(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, c)
}

// HandleDeleteCampaign soft-deletes a campaign
func (s *Server) HandleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteCampaign(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, `{"error":"campaign not found"}`, http.StatusNotFound)
			return
		}
		log.Printf("[Campaigns] Delete error for %s: %v", id, err)
		http.Error(w, `{"error":"failed to delete campaign"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// HandleGetForm returns the composer form state for an existing campaign.
// Stored display names are resolved back to catalog IDs, wrapped content is
// reduced to the editor fragment, and selections which no longer exist in the
// catalog are pruned and reported so the client can warn the user.
func (s *Server) HandleGetForm(w http.ResponseWriter, r *http.Request) {
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

	insts, err := s.catalog.Institutions(ctx)
	if err != nil {
		log.Printf("[Campaigns] Catalog error: %v", err)
		http.Error(w, `{"error":"failed to load institution catalog"}`, http.StatusInternalServerError)
		return
	}

	h := campaign.NewHydrator()
	h.Hydrate(*c, insts)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"form":              h.Form(),
		"state":             h.State().String(),
		"pruned_selections": h.PrunedSelections(),
	})
}
