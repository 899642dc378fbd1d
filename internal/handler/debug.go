package handler

import (
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"
)

// KRingResponse is the body of GET /debug/h3/kring.
type KRingResponse struct {
	Hex   string   `json:"hex"`
	K     int      `json:"k"`
	Zones []string `json:"zones"`
}

// ScoreEntry is one element of GET /debug/ml/score. Score is null when the
// scoring service had nothing for the id.
type ScoreEntry struct {
	ID    string   `json:"id"`
	Score *float64 `json:"score"`
}

// GetKRing handles GET /debug/h3/kring?hex=&k=.
func (s *Server) GetKRing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var hex string
	if err := runtime.BindQueryParameter("form", true, true, "hex", q, &hex); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	hex = strings.TrimSpace(hex)
	if hex == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("hex is required"))
		return
	}

	var k *int
	if err := runtime.BindQueryParameter("form", true, false, "k", q, &k); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	radius := s.ringK
	if k != nil {
		radius = max(0, *k)
	}

	writeJSON(w, http.StatusOK, KRingResponse{Hex: hex, K: radius, Zones: s.hex.Ring(hex, radius)})
}

// GetScores handles GET /debug/ml/score?ids=a,b,c. Blank and repeated ids are
// dropped; the response keeps the request order.
func (s *Server) GetScores(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := runtime.BindQueryParameter("form", false, true, "ids", r.URL.Query(), &ids); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	out := make([]ScoreEntry, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		entry := ScoreEntry{ID: id}
		if sc, ok := s.scorer.Score(r.Context(), id); ok {
			entry.Score = &sc
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("ids must name at least one ride"))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// PostClearCache handles POST /debug/ml/clear-cache.
func (s *Server) PostClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.scorer.ClearCache(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
