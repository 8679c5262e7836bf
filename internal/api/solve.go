package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SolveHandler handles POST /v1/solve: submit the current scenario
// snapshot for an asynchronous solve.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "solve submission rate exceeded", r.URL.Path)
		return
	}
	h, err := s.Orch.Submit(s.Scenario.Snapshot())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"solveId": h.ID.String(),
		"state":   h.Poll().State,
	})
}

// SolveByIDHandler handles GET /v1/solve/{id}, POST .../cancel and
// GET .../events/stream (SSE).
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/solve/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing solve id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve id", parts[0], r.URL.Path)
		return
	}
	h, err := s.Orch.Lookup(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			out := h.Poll()
			writeJSON(w, http.StatusOK, map[string]any{
				"solveId": h.ID.String(),
				"outcome": out,
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch {
	case parts[1] == "cancel":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Cancel()
		writeJSON(w, http.StatusAccepted, map[string]any{
			"solveId": h.ID.String(),
			"state":   h.Poll().State,
		})
	case parts[1] == "events" && len(parts) > 2 && parts[2] == "stream":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.streamSolveEvents(w, r, h.ID.String())
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown solve subresource", r.URL.Path)
	}
}

func (s *Server) streamSolveEvents(w http.ResponseWriter, r *http.Request, solveID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.Broker.Subscribe(solveID)
	defer s.Broker.Unsubscribe(solveID, ch)

	// initial heartbeat
	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"solveId\":\"%s\",\"ts\":\"%s\"}\n\n", solveID, time.Now().Format(time.RFC3339))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"solveId\":\"%s\",\"ts\":\"%s\"}\n\n", solveID, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// SolutionHandler handles GET/DELETE /v1/solution: the retained result
// of the most recent successful solve.
func (s *Server) SolutionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sol := s.LastSolution()
		if sol == nil {
			writeProblem(w, http.StatusNotFound, "No solution", "no successful solve yet", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, sol)
	case http.MethodDelete:
		s.ClearLastSolution()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
