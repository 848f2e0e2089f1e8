package api

import (
	"log"
	"net/http"
	"strings"
)

// HandleListInstitutions returns the full institution catalog.
func (s *Server) HandleListInstitutions(w http.ResponseWriter, r *http.Request) {
	insts, err := s.catalog.Institutions(r.Context())
	if err != nil {
		log.Printf("[Institutions] Catalog error: %v", err)
		http.Error(w, `{"error":"failed to load institutions"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"institutions": insts})
}

// HandleAudienceOptions returns the department and level options available
// for the selected institutions, as the union across the selection. An empty
// selection yields empty options, so the composer shows nothing to pick from
// until an institution is chosen.
func (s *Server) HandleAudienceOptions(w http.ResponseWriter, r *http.Request) {
	ids := []string{}
	if raw := r.URL.Query().Get("ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	opts, err := s.catalog.Options(r.Context(), ids)
	if err != nil {
		log.Printf("[Institutions] Options error: %v", err)
		http.Error(w, `{"error":"failed to load audience options"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, opts)
}
