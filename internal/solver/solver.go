// Package solver wraps the constraint-routing search behind a narrow
// call contract: integer cost matrix, per-node visit windows, vehicle
// count and per-vehicle allowed-node masks in; per-vehicle ordered
// index sequences (or a proof of infeasibility) out. Only the
// formulator's output crosses this boundary.
package solver

import (
	"context"
	"errors"

	"github.com/jkleinau/VRP/internal/formulate"
)

var (
	// ErrInfeasible is returned when no assignment can exist: a customer
	// outside every vehicle's allowed mask, or a window that cannot be
	// met even by driving there directly.
	ErrInfeasible = errors.New("problem is infeasible")

	// ErrBudgetExhausted is returned when the time budget elapsed with
	// customers still unplaced. Infeasibility was not proven; a larger
	// budget might still succeed.
	ErrBudgetExhausted = errors.New("time budget exhausted without a solution")
)

// Assignment holds, per vehicle, the ordered node indices of its
// route including the depot bookends (index 0 first and last).
type Assignment [][]int

// Engine is the call contract to the routing search. Implementations
// honor ctx for both cancellation and the time budget (deadline) and
// never panic across this boundary on valid input.
type Engine interface {
	Solve(ctx context.Context, p *formulate.Problem) (Assignment, error)
}
