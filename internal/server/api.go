package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tfdigest/tfdigest/internal/digest"
	"github.com/tfdigest/tfdigest/internal/history"
	"github.com/tfdigest/tfdigest/internal/plan"
	"github.com/tfdigest/tfdigest/pkg/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// digestRequest is the JSON body for POST /api/v1/digest. The endpoint
// also accepts raw plan text with any non-JSON content type.
type digestRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

type digestResponse struct {
	RunID  int64          `json:"run_id,omitempty"`
	Digest *models.Digest `json:"digest"`
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	source := "api"
	var text string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req digestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Source != "" {
			source = req.Source
		}
		text = req.Text
	} else {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "reading body")
			return
		}
		if q := r.URL.Query().Get("source"); q != "" {
			source = q
		}
		text = string(b)
	}

	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "empty plan text")
		return
	}

	lines := plan.Lines(text)

	if s.readOnly {
		writeJSON(w, http.StatusOK, digestResponse{Digest: digest.Analyze(source, lines)})
		return
	}

	res := s.digester.RunSync(r.Context(), digest.Request{Source: source, Lines: lines})
	writeJSON(w, http.StatusOK, digestResponse{RunID: res.RunID, Digest: res.Digest})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "history not configured")
		return
	}
	ctx := r.Context()

	count, err := s.store.RunCount(ctx)
	if err != nil {
		s.logger.Error("counting runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	totals, err := s.store.ActionTotals(ctx)
	if err != nil {
		s.logger.Error("totaling actions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs_total":    count,
		"action_totals": totals,
	})
}
