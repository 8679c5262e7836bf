package model

// Core domain types shared by the scenario model, formulator and mapper.

// NodeID identifies a node for its whole lifetime. IDs are never reused
// within a session; the depot is always DepotID.
type NodeID int

// DepotID is the fixed id of the depot node.
const DepotID NodeID = 0

// Position is a point in the scenario's 2D coordinate space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TimeWindow constrains when a visit at a node may begin.
// Both bounds are inclusive; Start <= End, both >= 0.
type TimeWindow struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Node is a depot or customer stop. The depot carries no time window
// and no skill requirements.
type Node struct {
	ID             NodeID      `json:"id"`
	Position       Position    `json:"position"`
	IsDepot        bool        `json:"isDepot"`
	TimeWindow     *TimeWindow `json:"timeWindow,omitempty"`
	RequiredSkills []string    `json:"requiredSkills,omitempty"`
}

// Vehicle is identified by its position in the vehicle list.
// Vehicles have no location of their own; all depart from and return
// to the depot.
type Vehicle struct {
	Index  int      `json:"index"`
	Skills []string `json:"skills,omitempty"`
}

// HasSkill reports whether the vehicle possesses the given skill.
// Skills slices are kept sorted by the scenario model.
func (v Vehicle) HasSkill(skill string) bool {
	for _, s := range v.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// Snapshot is an immutable copy of the scenario aggregate. Nodes[0] is
// always the depot; customers follow in creation order. Skill slices
// are sorted so that equal scenarios produce deep-equal snapshots.
type Snapshot struct {
	Nodes    []Node    `json:"nodes"`
	Skills   []string  `json:"skills"`
	Vehicles []Vehicle `json:"vehicles"`
}

// NodeByID returns the node with the given id, or false if absent.
func (s Snapshot) NodeByID(id NodeID) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// CustomerCount returns the number of non-depot nodes.
func (s Snapshot) CustomerCount() int {
	c := 0
	for _, n := range s.Nodes {
		if !n.IsDepot {
			c++
		}
	}
	return c
}

// Stop is one visit on a route. Arrival is meaningful only when the
// owning Solution has HasArrivals set.
type Stop struct {
	NodeID  NodeID `json:"nodeId"`
	Arrival int64  `json:"arrival,omitempty"`
}

// Route is one vehicle's ordered customer visits; the depot departure
// and return are implicit. Vehicles assigned no customers still get a
// Route with no stops and zero distance.
type Route struct {
	Vehicle  int    `json:"vehicle"`
	Stops    []Stop `json:"stops"`
	Distance int64  `json:"distance"`
}

// Solution is the immutable result of a successful solve. It carries
// no reference back to the scenario that produced it and is replaced
// wholesale on every re-solve.
type Solution struct {
	Routes        []Route `json:"routes"`
	TotalDistance int64   `json:"totalDistance"`
	HasArrivals   bool    `json:"hasArrivals"`
}
