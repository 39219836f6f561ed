package snapshot

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterHTTP registers the perception endpoints on a chi router.
func (e *Engine) RegisterHTTP(r chi.Router) {
	r.Post("/v1/snapshot", e.httpSnapshot)
	r.Post("/v1/markdown", e.httpMarkdown)
	r.Delete("/v1/sessions/{session_id}", e.httpEndSession)
	r.Get("/v1/stats", e.httpStats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (e *Engine) httpError(w http.ResponseWriter, err error) {
	var accErr *AccessorError
	if errors.As(err, &accErr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	e.logger.Error("snapshot: http request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (e *Engine) httpSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}

	if req.URL != "" {
		if err := e.OpenSession(r.Context(), req.SessionID, req.URL); err != nil {
			e.httpError(w, err)
			return
		}
	}
	res, controls, err := e.ComputeWithControls(r.Context(), req.SessionID)
	if err != nil {
		e.httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &snapshotResponse{Text: res.Text, IsDiff: res.IsDiff, Controls: controls})
}

func (e *Engine) httpMarkdown(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}

	if req.URL != "" {
		if err := e.OpenSession(r.Context(), req.SessionID, req.URL); err != nil {
			e.httpError(w, err)
			return
		}
	}
	doc, err := e.ComputeDocument(r.Context(), req.SessionID)
	if err != nil {
		e.httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (e *Engine) httpEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}
	if err := e.EndSession(r.Context(), sessionID); err != nil {
		e.httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended", "session_id": sessionID})
}

func (e *Engine) httpStats(w http.ResponseWriter, r *http.Request) {
	stats, err := e.Stats(r.Context())
	if err != nil {
		e.httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
