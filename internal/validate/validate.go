// Package validate holds the pure feasibility checks run over a
// scenario snapshot before formulation. Nothing here mutates state.
package validate

import (
	"errors"
	"fmt"

	"github.com/jkleinau/VRP/internal/model"
)

var (
	// ErrNoCompatibleVehicle marks a scenario where some node's skill
	// requirement cannot be met by the combined fleet. This is the cheap
	// early reject before the solver runs, distinct from genuine search
	// infeasibility.
	ErrNoCompatibleVehicle = errors.New("no compatible vehicle")

	// ErrNoVehicles marks a solve attempt against an empty fleet.
	ErrNoVehicles = errors.New("scenario has no vehicles")
)

// SkillCompatible reports whether the vehicle may serve the node:
// the node's required skills must be a subset of the vehicle's. The
// depot is compatible with every vehicle.
func SkillCompatible(v model.Vehicle, n model.Node) bool {
	if n.IsDepot {
		return true
	}
	for _, req := range n.RequiredSkills {
		if !v.HasSkill(req) {
			return false
		}
	}
	return true
}

// CheckSolvable rejects scenarios that provably cannot be solved: an
// empty fleet, a node whose full requirement set no single vehicle
// covers, or a window violating start <= end (enforced at mutation
// time; re-checked here defensively). Splitting a requirement set
// across vehicles does not help: one vehicle performs the whole visit.
func CheckSolvable(s model.Snapshot) error {
	if len(s.Vehicles) < 1 {
		return ErrNoVehicles
	}
	for _, n := range s.Nodes {
		if n.IsDepot {
			continue
		}
		compatible := false
		for _, v := range s.Vehicles {
			if SkillCompatible(v, n) {
				compatible = true
				break
			}
		}
		if !compatible {
			return fmt.Errorf("%w: node %d requires %v", ErrNoCompatibleVehicle, n.ID, n.RequiredSkills)
		}
		if tw := n.TimeWindow; tw != nil && (tw.Start < 0 || tw.Start > tw.End) {
			return fmt.Errorf("node %d has an unsatisfiable window [%d,%d]", n.ID, tw.Start, tw.End)
		}
	}
	return nil
}
