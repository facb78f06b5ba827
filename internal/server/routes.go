package server

import "net/http"

// RegisterRoutes registers all API routes on the given mux. The digest
// endpoint stays registered in read-only mode; it analyzes without
// recording.
func RegisterRoutes(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/v1/digest", s.handleDigest)
	mux.HandleFunc("GET /api/v1/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
}
