package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jkleinau/VRP/internal/config"
	"github.com/jkleinau/VRP/internal/metrics"
	"github.com/jkleinau/VRP/internal/model"
	"github.com/jkleinau/VRP/internal/orchestrate"
	"github.com/jkleinau/VRP/internal/scenario"
	"github.com/jkleinau/VRP/internal/solver"
	"github.com/jkleinau/VRP/internal/webhooks"
)

// Server bundles the API's collaborators: the scenario aggregate, the
// solve orchestrator, event fanout, webhook publishing and the solve
// submission limiter.
type Server struct {
	Scenario *scenario.Scenario
	Orch     *orchestrate.Orchestrator
	Broker   EventBroker
	Pub      *webhooks.Publisher
	Queue    *webhooks.Queue
	Log      *logrus.Logger
	Cfg      config.Config

	limiter *rate.Limiter

	mu           sync.Mutex
	lastSolution *model.Solution
	solveStarted map[string]time.Time
}

// NewServer builds a fully wired server from configuration: seeded
// scenario, ALNS engine under the configured budget, Redis or
// in-memory event fanout, and webhook subscriptions from config.
func NewServer(cfg config.Config, log *logrus.Logger) (*Server, error) {
	if log == nil {
		log = logrus.New()
	}

	sc := scenario.New()
	for _, sk := range cfg.Scenario.SeedSkills {
		if err := sc.RegisterSkill(sk); err != nil {
			return nil, fmt.Errorf("seed skill %q: %w", sk, err)
		}
	}
	if err := sc.SetVehicleCount(cfg.Scenario.DefaultVehicles); err != nil {
		return nil, err
	}

	engine := solver.NewALNS(cfg.Solver.Seed)
	engine.Iterations = cfg.Solver.Iterations
	orch := orchestrate.New(engine, time.Duration(cfg.Solver.BudgetMs)*time.Millisecond)

	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("redis broker unavailable, using in-memory fanout")
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	queue := webhooks.NewQueue()
	s := &Server{
		Scenario:     sc,
		Orch:         orch,
		Broker:       broker,
		Pub:          webhooks.NewPublisher(queue, cfg.Webhooks.Subscriptions),
		Queue:        queue,
		Log:          log,
		Cfg:          cfg,
		solveStarted: map[string]time.Time{},
	}
	if cfg.Rate.SolvesPerSecond > 0 {
		burst := cfg.Rate.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Rate.SolvesPerSecond), burst)
	}

	orch.OnEvent(s.onSolveEvent)
	return s, nil
}

// NewWebhookWorker creates the background delivery worker.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Queue, s.Cfg.Webhooks.MaxAttempts)
}

// onSolveEvent runs on the solve goroutine for every state transition:
// fan out to stream subscribers, count metrics, retain the last
// solution, and emit webhooks on terminal states.
func (s *Server) onSolveEvent(ev orchestrate.Event) {
	id := ev.SolveID.String()
	data := map[string]any{"solveId": id, "state": string(ev.State)}
	if ev.Outcome != nil {
		if ev.Outcome.Reason != orchestrate.ReasonNone {
			data["reason"] = string(ev.Outcome.Reason)
		}
		if ev.Outcome.Detail != "" {
			data["detail"] = ev.Outcome.Detail
		}
		if ev.Outcome.Solution != nil {
			data["totalDistance"] = ev.Outcome.Solution.TotalDistance
		}
	}
	s.Broker.Publish(id, SolveEvent{Type: "solve." + string(ev.State), Data: data})

	switch ev.State {
	case orchestrate.StateSubmitted:
		s.mu.Lock()
		s.solveStarted[id] = time.Now()
		s.mu.Unlock()
		return
	case orchestrate.StateRunning:
		return
	}

	// Terminal from here on.
	metrics.Solves.WithLabelValues(string(ev.State)).Inc()
	s.mu.Lock()
	if started, ok := s.solveStarted[id]; ok {
		metrics.SolveDuration.Observe(time.Since(started).Seconds())
		delete(s.solveStarted, id)
	}
	if ev.Outcome != nil && ev.Outcome.Solution != nil {
		s.lastSolution = ev.Outcome.Solution
	}
	s.mu.Unlock()

	switch ev.State {
	case orchestrate.StateSucceeded:
		s.Pub.Emit("solve.completed", data)
	case orchestrate.StateInfeasible, orchestrate.StateFailed:
		s.Pub.Emit("solve.failed", data)
	}
	s.Log.WithFields(logrus.Fields{"solveId": id, "state": ev.State}).Info("solve finished")
}

// LastSolution returns the retained solution of the most recent
// successful solve, or nil.
func (s *Server) LastSolution() *model.Solution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSolution
}

// ClearLastSolution drops the retained solution.
func (s *Server) ClearLastSolution() {
	s.mu.Lock()
	s.lastSolution = nil
	s.mu.Unlock()
}
