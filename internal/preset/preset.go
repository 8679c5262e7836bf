// Package preset serializes scenario snapshots to a stable JSON
// document for flat-file persistence. Decoding validates structure
// before anything touches a live scenario, so Import never sees a
// malformed snapshot.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jkleinau/VRP/internal/model"
)

// ErrMalformedPreset wraps every decode-time validation failure.
var ErrMalformedPreset = errors.New("malformed preset")

// Document is the on-disk preset shape. The depot is carried as an
// ordinary node entry with id 0 so the file round-trips byte-stable.
type Document struct {
	Nodes         []NodeDoc  `json:"nodes"`
	NumVehicles   int        `json:"num_vehicles"`
	Skills        []string   `json:"available_skills"`
	VehicleSkills [][]string `json:"vehicle_skills"`
}

// NodeDoc is one node entry. TimeWindow is [start, end] or absent.
type NodeDoc struct {
	ID             model.NodeID `json:"id"`
	X              float64      `json:"x"`
	Y              float64      `json:"y"`
	TimeWindow     *[2]int64    `json:"time_window,omitempty"`
	RequiredSkills []string     `json:"required_skills,omitempty"`
}

// Encode renders a snapshot as an indented preset document.
func Encode(snap model.Snapshot) ([]byte, error) {
	doc := Document{
		NumVehicles:   len(snap.Vehicles),
		Skills:        append([]string{}, snap.Skills...),
		VehicleSkills: make([][]string, len(snap.Vehicles)),
	}
	for _, n := range snap.Nodes {
		nd := NodeDoc{
			ID:             n.ID,
			X:              n.Position.X,
			Y:              n.Position.Y,
			RequiredSkills: n.RequiredSkills,
		}
		if n.TimeWindow != nil {
			nd.TimeWindow = &[2]int64{n.TimeWindow.Start, n.TimeWindow.End}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for i, v := range snap.Vehicles {
		doc.VehicleSkills[i] = append([]string{}, v.Skills...)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses and validates a preset document into a snapshot ready
// for scenario import. Every failure wraps ErrMalformedPreset.
func Decode(data []byte) (model.Snapshot, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedPreset, err)
	}

	if len(doc.Nodes) == 0 {
		return model.Snapshot{}, fmt.Errorf("%w: no nodes", ErrMalformedPreset)
	}
	first := doc.Nodes[0]
	if first.ID != model.DepotID || first.X != 0 || first.Y != 0 {
		return model.Snapshot{}, fmt.Errorf("%w: first node must be the depot (id 0 at the origin)", ErrMalformedPreset)
	}
	if first.TimeWindow != nil || len(first.RequiredSkills) > 0 {
		return model.Snapshot{}, fmt.Errorf("%w: depot carries constraints", ErrMalformedPreset)
	}
	if doc.NumVehicles < 1 {
		return model.Snapshot{}, fmt.Errorf("%w: num_vehicles must be >= 1", ErrMalformedPreset)
	}
	if len(doc.VehicleSkills) > doc.NumVehicles {
		return model.Snapshot{}, fmt.Errorf("%w: vehicle_skills lists %d vehicles, num_vehicles is %d",
			ErrMalformedPreset, len(doc.VehicleSkills), doc.NumVehicles)
	}

	catalog := map[string]struct{}{}
	for _, sk := range doc.Skills {
		if sk == "" {
			return model.Snapshot{}, fmt.Errorf("%w: empty skill token", ErrMalformedPreset)
		}
		catalog[sk] = struct{}{}
	}

	snap := model.Snapshot{Skills: append([]string{}, doc.Skills...)}
	seen := map[model.NodeID]struct{}{}
	for i, nd := range doc.Nodes {
		if _, dup := seen[nd.ID]; dup {
			return model.Snapshot{}, fmt.Errorf("%w: duplicate node id %d", ErrMalformedPreset, nd.ID)
		}
		seen[nd.ID] = struct{}{}
		n := model.Node{
			ID:             nd.ID,
			Position:       model.Position{X: nd.X, Y: nd.Y},
			IsDepot:        i == 0,
			RequiredSkills: append([]string(nil), nd.RequiredSkills...),
		}
		if tw := nd.TimeWindow; tw != nil {
			if tw[0] < 0 || tw[1] < 0 || tw[0] > tw[1] {
				return model.Snapshot{}, fmt.Errorf("%w: node %d window [%d,%d]", ErrMalformedPreset, nd.ID, tw[0], tw[1])
			}
			n.TimeWindow = &model.TimeWindow{Start: tw[0], End: tw[1]}
		}
		for _, sk := range nd.RequiredSkills {
			if _, ok := catalog[sk]; !ok {
				return model.Snapshot{}, fmt.Errorf("%w: node %d requires unregistered skill %q", ErrMalformedPreset, nd.ID, sk)
			}
		}
		snap.Nodes = append(snap.Nodes, n)
	}

	for v := 0; v < doc.NumVehicles; v++ {
		veh := model.Vehicle{Index: v}
		if v < len(doc.VehicleSkills) {
			for _, sk := range doc.VehicleSkills[v] {
				if _, ok := catalog[sk]; !ok {
					return model.Snapshot{}, fmt.Errorf("%w: vehicle %d holds unregistered skill %q", ErrMalformedPreset, v, sk)
				}
			}
			veh.Skills = append([]string(nil), doc.VehicleSkills[v]...)
		}
		snap.Vehicles = append(snap.Vehicles, veh)
	}
	return snap, nil
}

// SaveFile writes the snapshot as a preset file, creating or
// truncating path.
func SaveFile(path string, snap model.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFile reads and decodes a preset file.
func LoadFile(path string) (model.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Snapshot{}, err
	}
	return Decode(data)
}
