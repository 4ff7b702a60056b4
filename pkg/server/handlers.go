package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/staleserve/staleserve/pkg/engine"
)

// cacheHeader reports how the response was served.
const cacheHeader = "X-Staleserve-Cache"

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp, err := s.engine.HandleRequest(r.Context(), &engine.Request{
		Path:   r.URL.Path,
		Method: r.Method,
		Query:  r.URL.Query(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set(cacheHeader, resp.Cache)
	w.WriteHeader(resp.Status)
	if r.Method != http.MethodHead {
		w.Write(resp.Body)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)

	case errors.Is(err, engine.ErrGenerationTimeout):
		s.logger.Warn("generation timed out", "path", r.URL.Path)
		http.Error(w, "generation timed out", http.StatusGatewayTimeout)

	default:
		var genErr *engine.GenerationError
		if errors.As(err, &genErr) {
			s.logger.Error("generation failed", "route", genErr.Route, "error", genErr.Err)
			http.Error(w, "generation failed", http.StatusBadGateway)
			return
		}
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// revalidateRequest is the body of POST /__revalidate.
type revalidateRequest struct {
	// Route is the route pattern to invalidate (e.g., "/blog/[slug]").
	Route string `json:"route"`

	// Params binds dynamic segment names to values.
	Params map[string]string `json:"params,omitempty"`

	// Wildcards binds catch-all segment names to their segments.
	Wildcards map[string][]string `json:"wildcards,omitempty"`
}

type revalidateResponse struct {
	Revalidated bool   `json:"revalidated"`
	Route       string `json:"route"`
}

func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	var req revalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Route == "" {
		http.Error(w, "route is required", http.StatusBadRequest)
		return
	}

	err := s.engine.Invalidate(r.Context(), req.Route, engine.ParamSet{
		Params:    req.Params,
		Wildcards: req.Wildcards,
	})
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			http.Error(w, "unknown route", http.StatusNotFound)
			return
		}
		s.logger.Error("invalidation failed", "route", req.Route, "error", err)
		http.Error(w, "invalidation failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info("route invalidated", "route", req.Route)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(revalidateResponse{Revalidated: true, Route: req.Route})
}
