package httpapi

import (
	"net/http"
	"strings"

	"github.com/ent0n29/voicerelay/internal/observability"
)

// handlePerfLatency serves the rolling turn latency window, optionally
// narrowed to one stage with ?stage=.
func (s *Server) handlePerfLatency(w http.ResponseWriter, r *http.Request) {
	snap := s.metrics.SnapshotLatency()
	if stage := strings.TrimSpace(r.URL.Query().Get("stage")); stage != "" {
		filtered := make([]observability.StageLatency, 0, 1)
		for _, st := range snap.Stages {
			if st.Stage == stage {
				filtered = append(filtered, st)
			}
		}
		snap.Stages = filtered
	}
	respondJSON(w, http.StatusOK, snap)
}
