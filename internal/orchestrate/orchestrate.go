// Package orchestrate runs solves asynchronously: it validates and
// formulates a scenario snapshot, drives the engine on a background
// goroutine under a time budget, and exposes the run through a Handle
// that callers poll, await, or cancel. One solve runs at a time.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkleinau/VRP/internal/formulate"
	"github.com/jkleinau/VRP/internal/mapper"
	"github.com/jkleinau/VRP/internal/model"
	"github.com/jkleinau/VRP/internal/solver"
	"github.com/jkleinau/VRP/internal/validate"
)

// ErrAlreadyRunning is returned by Submit while a solve is in flight.
// Overlapping solves are rejected rather than queued so the caller
// always knows which snapshot a running solve belongs to.
var ErrAlreadyRunning = errors.New("a solve is already running")

// ErrUnknownSolve is returned by Lookup for an id with no handle.
var ErrUnknownSolve = errors.New("unknown solve id")

// State is a solve's lifecycle position. Transitions run strictly
// forward: submitted -> running -> one terminal state, exactly once.
type State string

const (
	StateSubmitted  State = "submitted"
	StateRunning    State = "running"
	StateSucceeded  State = "succeeded"
	StateInfeasible State = "infeasible"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateInfeasible, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Reason qualifies an infeasible or failed outcome.
type Reason string

const (
	ReasonNone Reason = ""
	// ReasonProven: the engine proved no assignment can exist.
	ReasonProven Reason = "proven"
	// ReasonTimedOut: the budget elapsed with customers unplaced;
	// infeasibility was not proven.
	ReasonTimedOut Reason = "timed_out"
	// ReasonError: the engine or the solution mapping failed.
	ReasonError Reason = "error"
)

// Outcome is a solve's observable result. Solution is non-nil only in
// StateSucceeded.
type Outcome struct {
	State    State           `json:"state"`
	Reason   Reason          `json:"reason,omitempty"`
	Solution *model.Solution `json:"solution,omitempty"`
	Detail   string          `json:"detail,omitempty"`
}

// Event is published on every state transition of a solve.
type Event struct {
	SolveID uuid.UUID `json:"solveId"`
	State   State     `json:"state"`
	Outcome *Outcome  `json:"outcome,omitempty"`
}

// maxRetainedHandles bounds the lookup history. Solves run one at a
// time, so everything but the newest handle is terminal; the oldest
// terminal entries are evicted first.
const maxRetainedHandles = 64

// Orchestrator owns solve execution. Zero value is not usable; use New.
type Orchestrator struct {
	engine solver.Engine
	budget time.Duration

	mu        sync.Mutex
	active    *Handle
	handles   map[uuid.UUID]*Handle
	order     []uuid.UUID
	observers []func(Event)
}

// New returns an orchestrator driving the given engine. budget bounds
// each solve's wall time; zero means no deadline (cancellation only).
func New(engine solver.Engine, budget time.Duration) *Orchestrator {
	return &Orchestrator{
		engine:  engine,
		budget:  budget,
		handles: make(map[uuid.UUID]*Handle),
	}
}

// OnEvent registers fn for every solve state transition. Callbacks run
// synchronously on the solve goroutine and must return quickly.
func (o *Orchestrator) OnEvent(fn func(Event)) {
	o.mu.Lock()
	o.observers = append(o.observers, fn)
	o.mu.Unlock()
}

// Submit starts an asynchronous solve of the snapshot. It fails fast
// with a validation error when the snapshot cannot possibly be solved,
// and with ErrAlreadyRunning while another solve is in flight.
func (o *Orchestrator) Submit(snap model.Snapshot) (*Handle, error) {
	if err := validate.CheckSolvable(snap); err != nil {
		return nil, err
	}
	problem, err := formulate.Build(snap)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.active != nil && !o.active.Poll().State.Terminal() {
		o.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if o.budget > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), o.budget)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	h := &Handle{
		ID:     uuid.New(),
		orch:   o,
		state:  StateSubmitted,
		done:   make(chan struct{}),
		cancel: cancel,
	}
	o.active = h
	o.handles[h.ID] = h
	o.order = append(o.order, h.ID)
	for len(o.order) > maxRetainedHandles {
		delete(o.handles, o.order[0])
		o.order = o.order[1:]
	}
	o.mu.Unlock()

	o.publish(Event{SolveID: h.ID, State: StateSubmitted})
	go o.run(ctx, cancel, h, problem)
	return h, nil
}

// Active returns the most recently submitted handle, or nil.
func (o *Orchestrator) Active() *Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Lookup returns the handle for a solve id.
func (o *Orchestrator) Lookup(id uuid.UUID) (*Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if h, ok := o.handles[id]; ok {
		return h, nil
	}
	return nil, ErrUnknownSolve
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, h *Handle, p *formulate.Problem) {
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			h.finish(Outcome{
				State:  StateFailed,
				Reason: ReasonError,
				Detail: fmt.Sprintf("solve panicked: %v", r),
			})
		}
	}()

	h.transition(StateRunning)
	asg, err := o.engine.Solve(ctx, p)
	switch {
	case err == nil:
		sol, merr := mapper.Map(p, asg)
		if merr != nil {
			h.finish(Outcome{State: StateFailed, Reason: ReasonError, Detail: merr.Error()})
			return
		}
		h.finish(Outcome{State: StateSucceeded, Solution: sol})
	case errors.Is(err, solver.ErrInfeasible):
		h.finish(Outcome{State: StateInfeasible, Reason: ReasonProven, Detail: err.Error()})
	case errors.Is(err, solver.ErrBudgetExhausted):
		h.finish(Outcome{State: StateInfeasible, Reason: ReasonTimedOut, Detail: err.Error()})
	case errors.Is(err, context.Canceled):
		h.finish(Outcome{State: StateCancelled, Detail: "cancelled by caller"})
	default:
		h.finish(Outcome{State: StateFailed, Reason: ReasonError, Detail: err.Error()})
	}
}

func (o *Orchestrator) publish(ev Event) {
	o.mu.Lock()
	obs := make([]func(Event), len(o.observers))
	copy(obs, o.observers)
	o.mu.Unlock()
	for _, fn := range obs {
		fn(ev)
	}
}

// Handle tracks one solve. All methods are safe for concurrent use.
type Handle struct {
	ID   uuid.UUID
	orch *Orchestrator

	mu      sync.Mutex
	state   State
	outcome Outcome
	done    chan struct{}
	cancel  context.CancelFunc
}

// Poll returns the current outcome without blocking. Before a terminal
// state the outcome carries only State.
func (h *Handle) Poll() Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return h.outcome
	}
	return Outcome{State: h.state}
}

// Await blocks until the solve reaches a terminal state or ctx ends.
func (h *Handle) Await(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
		return h.Poll(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Cancel requests cooperative cancellation. It is a no-op once the
// solve is terminal; the terminal outcome is set by the solve
// goroutine when the engine observes the cancelled context.
func (h *Handle) Cancel() {
	h.mu.Lock()
	terminal := h.state.Terminal()
	h.mu.Unlock()
	if !terminal {
		h.cancel()
	}
}

// transition moves to a non-terminal state and publishes the event.
func (h *Handle) transition(s State) {
	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		return
	}
	h.state = s
	h.mu.Unlock()
	h.orch.publish(Event{SolveID: h.ID, State: s})
}

// finish records the terminal outcome exactly once.
func (h *Handle) finish(out Outcome) {
	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		return
	}
	h.state = out.State
	h.outcome = out
	close(h.done)
	h.mu.Unlock()
	h.orch.publish(Event{SolveID: h.ID, State: out.State, Outcome: &out})
}
