package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jkleinau/VRP/internal/metrics"
)

// Routes builds the service mux. main wraps it with Middleware; tests
// can hit it bare.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Scenario
	mux.HandleFunc("/v1/scenario", s.ScenarioHandler)
	mux.HandleFunc("/v1/scenario/nodes", s.NodesHandler)
	mux.HandleFunc("/v1/scenario/nodes/", s.NodeByIDHandler)
	mux.HandleFunc("/v1/scenario/skills", s.SkillsHandler)
	mux.HandleFunc("/v1/scenario/skills/", s.SkillByTokenHandler)
	mux.HandleFunc("/v1/scenario/vehicles", s.VehiclesHandler)
	mux.HandleFunc("/v1/scenario/vehicles/", s.VehicleByIndexHandler)

	// Presets
	mux.HandleFunc("/v1/presets/", s.PresetByNameHandler)

	// Solve lifecycle
	mux.HandleFunc("/v1/solve", s.SolveHandler)
	mux.HandleFunc("/v1/solve/ws", s.SolveWSHandler)
	mux.HandleFunc("/v1/solve/", s.SolveByIDHandler) // includes /cancel, /events/stream
	mux.HandleFunc("/v1/solution", s.SolutionHandler)

	// Health and metrics
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return mux
}
