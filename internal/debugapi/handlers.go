package debugapi

import "net/http"

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDebugInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.pool.DebugInfo())
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.pool.Videos())
}
