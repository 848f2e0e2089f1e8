package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campusreach/campaign-studio/internal/storage"
)

// HandleGetPreferences returns a user's notification preferences, falling
// back to the defaults for users who never saved any.
func (s *Server) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	prefs, err := s.store.GetPreferences(r.Context(), userID)
	if err != nil {
		log.Printf("[Preferences] Get error for %s: %v", userID, err)
		http.Error(w, `{"error":"failed to fetch preferences"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}

// HandleSavePreferences upserts a user's notification preferences.
func (s *Server) HandleSavePreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var prefs storage.NotificationPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	prefs.UserID = userID

	if err := s.store.SavePreferences(r.Context(), prefs); err != nil {
		log.Printf("[Preferences] Save error for %s: %v", userID, err)
		http.Error(w, `{"error":"failed to save preferences"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}
