// Package formulate translates a validated scenario snapshot into the
// numeric structures the routing engine consumes. Build is a pure
// function: the same snapshot always yields a deep-equal Problem, so
// problems can serve as deterministic test fixtures.
package formulate

import (
	"fmt"
	"math"

	"github.com/jkleinau/VRP/internal/model"
	"github.com/jkleinau/VRP/internal/validate"
)

// Window is a node's visit-begin interval in solver time units.
type Window struct {
	Start int64
	End   int64
}

// Problem is the solver-ready encoding of a snapshot. Node index 0 is
// the depot; every vehicle implicitly starts and ends there. Travel
// time equals distance (unit speed).
type Problem struct {
	// Matrix[i][j] is the integer cost between node indices i and j:
	// symmetric, zero diagonal. Rounding law: the Euclidean distance is
	// rounded to the nearest integer, halves away from zero
	// (math.Round), at unit scale. The law is part of the contract --
	// changing it changes which solutions are "optimal".
	Matrix [][]int64

	// Windows[i] is node i's visit window. Unconstrained nodes get
	// (0, Horizon) so the bound never binds.
	Windows []Window

	// Horizon is one greater than the sum of every matrix entry, which
	// exceeds the length of any tour the engine can construct.
	Horizon int64

	VehicleCount int

	// Allowed[v] is the set of node indices vehicle v may visit, derived
	// from skill compatibility. Skills are hard eligibility constraints:
	// incompatible nodes are excluded here, never priced as a cost.
	Allowed []NodeSet

	// NodeIDs maps solver node index back to the scenario node id.
	NodeIDs []model.NodeID

	// Windowed records whether any customer carries a real window; the
	// mapper only computes arrival times when it is set.
	Windowed bool
}

// Build formulates a snapshot that has already passed
// validate.CheckSolvable.
func Build(s model.Snapshot) (*Problem, error) {
	if len(s.Nodes) == 0 || !s.Nodes[0].IsDepot {
		return nil, fmt.Errorf("snapshot does not start with the depot")
	}
	if len(s.Vehicles) < 1 {
		return nil, validate.ErrNoVehicles
	}

	n := len(s.Nodes)
	p := &Problem{
		Matrix:       make([][]int64, n),
		Windows:      make([]Window, n),
		VehicleCount: len(s.Vehicles),
		Allowed:      make([]NodeSet, len(s.Vehicles)),
		NodeIDs:      make([]model.NodeID, n),
	}

	var total int64
	for i := range s.Nodes {
		p.Matrix[i] = make([]int64, n)
		p.NodeIDs[i] = s.Nodes[i].ID
		for j := range s.Nodes {
			if i == j {
				continue
			}
			d := arcCost(s.Nodes[i].Position, s.Nodes[j].Position)
			p.Matrix[i][j] = d
			total += d
		}
	}
	p.Horizon = total + 1

	for i, node := range s.Nodes {
		if tw := node.TimeWindow; tw != nil && !node.IsDepot {
			p.Windows[i] = Window{Start: tw.Start, End: tw.End}
			p.Windowed = true
		} else {
			p.Windows[i] = Window{Start: 0, End: p.Horizon}
		}
	}

	for vi, v := range s.Vehicles {
		set := NewNodeSet(n)
		for i, node := range s.Nodes {
			if validate.SkillCompatible(v, node) {
				set.Add(i)
			}
		}
		p.Allowed[vi] = set
	}
	return p, nil
}

func arcCost(a, b model.Position) int64 {
	return int64(math.Round(math.Hypot(a.X-b.X, a.Y-b.Y)))
}
