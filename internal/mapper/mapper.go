// Package mapper translates raw solver assignments back into scenario
// terms: node ids instead of matrix indices, per-route distances, and
// arrival times when the problem carried windows.
package mapper

import (
	"fmt"

	"github.com/jkleinau/VRP/internal/formulate"
	"github.com/jkleinau/VRP/internal/model"
	"github.com/jkleinau/VRP/internal/solver"
)

// Map converts an assignment for p into a Solution. The assignment
// must be well formed: one sequence per vehicle, depot bookends, and
// every index inside the matrix. Doubled bookends (a repeated leading
// or trailing depot) are tolerated and collapse to single ones; a
// depot strictly inside a route is still an error. Arrival times are
// computed under the wait-if-early policy only when p.Windowed is set.
//
// Map panics if a computed arrival violates a window. The engine
// guarantees schedule feasibility for any assignment it returns, so a
// violation here means the engine and mapper disagree on the timing
// law, which is a bug, not an input error.
func Map(p *formulate.Problem, asg solver.Assignment) (*model.Solution, error) {
	if len(asg) != p.VehicleCount {
		return nil, fmt.Errorf("assignment has %d routes for %d vehicles", len(asg), p.VehicleCount)
	}

	sol := &model.Solution{
		Routes:      make([]model.Route, p.VehicleCount),
		HasArrivals: p.Windowed,
	}
	for v, seq := range asg {
		if len(seq) < 2 || seq[0] != 0 || seq[len(seq)-1] != 0 {
			return nil, fmt.Errorf("route %d is missing its depot bookends", v)
		}
		body := seq[1 : len(seq)-1]
		for len(body) > 0 && body[0] == 0 {
			body = body[1:]
		}
		for len(body) > 0 && body[len(body)-1] == 0 {
			body = body[:len(body)-1]
		}
		route := model.Route{Vehicle: v}
		t := int64(0)
		prev := 0
		for _, idx := range body {
			if idx <= 0 || idx >= len(p.Matrix) {
				return nil, fmt.Errorf("route %d references node index %d outside the problem", v, idx)
			}
			route.Distance += p.Matrix[prev][idx]
			stop := model.Stop{NodeID: p.NodeIDs[idx]}
			if p.Windowed {
				t += p.Matrix[prev][idx]
				w := p.Windows[idx]
				if t < w.Start {
					t = w.Start
				}
				if t > w.End {
					panic(fmt.Sprintf("mapper: arrival %d at node %d misses window [%d,%d]",
						t, p.NodeIDs[idx], w.Start, w.End))
				}
				stop.Arrival = t
			}
			route.Stops = append(route.Stops, stop)
			prev = idx
		}
		route.Distance += p.Matrix[prev][0]
		sol.Routes[v] = route
		sol.TotalDistance += route.Distance
	}
	return sol, nil
}
