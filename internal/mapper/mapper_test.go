package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkleinau/VRP/internal/formulate"
	"github.com/jkleinau/VRP/internal/model"
	"github.com/jkleinau/VRP/internal/solver"
)

func rightAngleProblem(t *testing.T, windows bool) *formulate.Problem {
	t.Helper()
	s := model.Snapshot{
		Nodes: []model.Node{
			{ID: model.DepotID, IsDepot: true},
			{ID: 7, Position: model.Position{X: 10, Y: 0}},
			{ID: 9, Position: model.Position{X: 0, Y: 10}},
		},
		Vehicles: []model.Vehicle{{Index: 0}},
	}
	if windows {
		s.Nodes[1].TimeWindow = &model.TimeWindow{Start: 0, End: 15}
		s.Nodes[2].TimeWindow = &model.TimeWindow{Start: 30, End: 60}
	}
	p, err := formulate.Build(s)
	require.NoError(t, err)
	return p
}

func TestMapSingleRouteDistance(t *testing.T) {
	p := rightAngleProblem(t, false)
	sol, err := Map(p, solver.Assignment{{0, 1, 2, 0}})
	require.NoError(t, err)

	require.Len(t, sol.Routes, 1)
	r := sol.Routes[0]
	assert.Equal(t, []model.Stop{{NodeID: 7}, {NodeID: 9}}, r.Stops)
	// 0->(10,0) is 10, across to (0,10) is round(14.14)=14, back is 10.
	assert.Equal(t, int64(34), r.Distance)
	assert.Equal(t, int64(34), sol.TotalDistance)
	assert.False(t, sol.HasArrivals)
}

func TestMapArrivalsWaitIfEarly(t *testing.T) {
	p := rightAngleProblem(t, true)
	sol, err := Map(p, solver.Assignment{{0, 1, 2, 0}})
	require.NoError(t, err)

	require.True(t, sol.HasArrivals)
	stops := sol.Routes[0].Stops
	require.Len(t, stops, 2)
	assert.Equal(t, int64(10), stops[0].Arrival)
	// Raw arrival at node 9 would be 24; the window opens at 30.
	assert.Equal(t, int64(30), stops[1].Arrival)
}

func TestMapReversedOrderSameDistance(t *testing.T) {
	p := rightAngleProblem(t, false)
	sol, err := Map(p, solver.Assignment{{0, 2, 1, 0}})
	require.NoError(t, err)
	assert.Equal(t, int64(34), sol.TotalDistance)
}

func TestMapCollapsesDoubledDepotBookends(t *testing.T) {
	p := rightAngleProblem(t, false)
	sol, err := Map(p, solver.Assignment{{0, 0, 1, 2, 0, 0}})
	require.NoError(t, err)
	assert.Equal(t, []model.Stop{{NodeID: 7}, {NodeID: 9}}, sol.Routes[0].Stops)
	assert.Equal(t, int64(34), sol.TotalDistance)

	// A depot strictly inside the route is still malformed.
	_, err = Map(p, solver.Assignment{{0, 1, 0, 2, 0}})
	assert.Error(t, err)
}

func TestMapRejectsMalformedAssignments(t *testing.T) {
	p := rightAngleProblem(t, false)

	_, err := Map(p, solver.Assignment{})
	assert.Error(t, err)

	_, err = Map(p, solver.Assignment{{1, 2}})
	assert.Error(t, err)

	_, err = Map(p, solver.Assignment{{0, 5, 0}})
	assert.Error(t, err)
}

func TestMapPanicsOnWindowViolation(t *testing.T) {
	p := rightAngleProblem(t, true)
	// Visiting node 9 first arrives at 10, inside its [30,60] window only
	// after waiting; node 7 is then reached at 44, past its end of 15.
	assert.Panics(t, func() {
		_, _ = Map(p, solver.Assignment{{0, 2, 1, 0}})
	})
}
