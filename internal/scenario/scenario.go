package scenario

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jkleinau/VRP/internal/model"
)

// Scenario owns the authoritative scenario state: the depot, customer
// nodes, the skill catalog and the vehicle list. All mutation is
// synchronous and all-or-nothing; Snapshot never observes a
// half-applied mutation (one mutex guards the whole aggregate).
//
// The depot is created at construction, fixed at the origin with id 0,
// and cannot be removed or constrained.
type Scenario struct {
	mu       sync.Mutex
	nodes    []model.Node // nodes[0] is the depot
	skills   map[string]struct{}
	vehicles []map[string]struct{} // per-vehicle skill sets
	nextID   model.NodeID
}

// New returns a scenario holding only the depot and a single vehicle
// with no skills.
func New() *Scenario {
	return &Scenario{
		nodes: []model.Node{{
			ID:       model.DepotID,
			Position: model.Position{X: 0, Y: 0},
			IsDepot:  true,
		}},
		skills:   map[string]struct{}{},
		vehicles: []map[string]struct{}{{}},
		nextID:   model.DepotID + 1,
	}
}

// AddNode creates a customer node at the given position and returns
// its id. IDs are strictly increasing and never reused, even after
// removal.
func (s *Scenario) AddNode(pos model.Position) model.NodeID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.nodes = append(s.nodes, model.Node{ID: id, Position: pos})
	return id
}

// RemoveNode removes a customer node. Removing the depot fails with
// ErrInvalidOperation; an absent id fails with ErrNotFound.
func (s *Scenario) RemoveNode(id model.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == model.DepotID {
		return fmt.Errorf("%w: depot cannot be removed", ErrInvalidOperation)
	}
	for i, n := range s.nodes {
		if n.ID == id {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: node %d", ErrNotFound, id)
}

// RemoveAllCustomers drops every customer node, keeping the depot, the
// skill catalog and the vehicle list. The id counter is not reset, so
// ids of removed nodes are never reused.
func (s *Scenario) RemoveAllCustomers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = s.nodes[:1]
}

// SetNodeTimeWindow sets the inclusive window in which a visit at the
// node may begin. start <= end and both >= 0; equal bounds are a valid
// single-instant window.
func (s *Scenario) SetNodeTimeWindow(id model.NodeID, start, end int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if start < 0 || end < 0 || start > end {
		return fmt.Errorf("%w: time window [%d,%d]", ErrInvalidRange, start, end)
	}
	if id == model.DepotID {
		return fmt.Errorf("%w: depot is unconstrained", ErrInvalidOperation)
	}
	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	s.nodes[i].TimeWindow = &model.TimeWindow{Start: start, End: end}
	return nil
}

// ClearNodeTimeWindow removes the node's window, if any.
func (s *Scenario) ClearNodeTimeWindow(id model.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	s.nodes[i].TimeWindow = nil
	return nil
}

// SetNodeRequiredSkills replaces the node's required skill set. Every
// token must already be registered in the catalog.
func (s *Scenario) SetNodeRequiredSkills(id model.NodeID, skills []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == model.DepotID {
		return fmt.Errorf("%w: depot is unconstrained", ErrInvalidOperation)
	}
	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	set, err := s.toCataloguedSet(skills)
	if err != nil {
		return err
	}
	s.nodes[i].RequiredSkills = sortedTokens(set)
	return nil
}

// RegisterSkill adds a token to the catalog. Registering an existing
// token is a no-op. Tokens must be non-empty after trimming.
func (s *Scenario) RegisterSkill(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: skill token must be non-empty", ErrInvalidRange)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills[token] = struct{}{}
	return nil
}

// UnregisterSkill removes a token from the catalog. It fails with
// ErrSkillInUse while any node requires or any vehicle possesses it,
// and with ErrUnknownSkill if the token was never registered.
func (s *Scenario) UnregisterSkill(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skills[token]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSkill, token)
	}
	for _, n := range s.nodes {
		for _, sk := range n.RequiredSkills {
			if sk == token {
				return fmt.Errorf("%w: %q required by node %d", ErrSkillInUse, token, n.ID)
			}
		}
	}
	for vi, v := range s.vehicles {
		if _, ok := v[token]; ok {
			return fmt.Errorf("%w: %q assigned to vehicle %d", ErrSkillInUse, token, vi)
		}
	}
	delete(s.skills, token)
	return nil
}

// SetVehicleCount resizes the vehicle list. Growing appends vehicles
// with empty skill sets; shrinking truncates from the end, discarding
// the configuration of dropped vehicles. n must be >= 1.
func (s *Scenario) SetVehicleCount(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: vehicle count %d", ErrInvalidRange, n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.vehicles) < n {
		s.vehicles = append(s.vehicles, map[string]struct{}{})
	}
	s.vehicles = s.vehicles[:n]
	return nil
}

// SetVehicleSkills replaces the skill set of the vehicle at the given
// index. Every token must be registered in the catalog.
func (s *Scenario) SetVehicleSkills(index int, skills []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.vehicles) {
		return fmt.Errorf("%w: vehicle %d of %d", ErrIndexOutOfRange, index, len(s.vehicles))
	}
	set, err := s.toCataloguedSet(skills)
	if err != nil {
		return err
	}
	s.vehicles[index] = set
	return nil
}

// Snapshot returns an immutable deep copy of the aggregate. Skill
// slices are sorted, so equal scenarios yield deep-equal snapshots.
func (s *Scenario) Snapshot() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := model.Snapshot{
		Nodes:    make([]model.Node, len(s.nodes)),
		Skills:   sortedTokens(s.skills),
		Vehicles: make([]model.Vehicle, len(s.vehicles)),
	}
	for i, n := range s.nodes {
		cp := n
		if n.TimeWindow != nil {
			tw := *n.TimeWindow
			cp.TimeWindow = &tw
		}
		cp.RequiredSkills = append([]string(nil), n.RequiredSkills...)
		snap.Nodes[i] = cp
	}
	for i, v := range s.vehicles {
		snap.Vehicles[i] = model.Vehicle{Index: i, Skills: sortedTokens(v)}
	}
	return snap
}

// Import replaces the whole aggregate with the given snapshot, which
// must already have been validated (see the preset package). The
// replacement is atomic: either the snapshot applies in full or the
// scenario is left untouched. The id counter resumes past the highest
// imported id.
func (s *Scenario) Import(snap model.Snapshot) error {
	if len(snap.Nodes) == 0 || !snap.Nodes[0].IsDepot || snap.Nodes[0].ID != model.DepotID {
		return fmt.Errorf("%w: snapshot must begin with the depot", ErrInvalidOperation)
	}
	if len(snap.Vehicles) < 1 {
		return fmt.Errorf("%w: snapshot has no vehicles", ErrInvalidRange)
	}
	catalog := map[string]struct{}{}
	for _, sk := range snap.Skills {
		catalog[sk] = struct{}{}
	}
	nodes := make([]model.Node, len(snap.Nodes))
	maxID := model.DepotID
	seen := map[model.NodeID]struct{}{}
	for i, n := range snap.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrInvalidOperation, n.ID)
		}
		seen[n.ID] = struct{}{}
		for _, sk := range n.RequiredSkills {
			if _, ok := catalog[sk]; !ok {
				return fmt.Errorf("%w: %q (node %d)", ErrUnknownSkill, sk, n.ID)
			}
		}
		cp := n
		if n.TimeWindow != nil {
			tw := *n.TimeWindow
			cp.TimeWindow = &tw
		}
		cp.RequiredSkills = append([]string(nil), n.RequiredSkills...)
		sort.Strings(cp.RequiredSkills)
		nodes[i] = cp
		if n.ID > maxID {
			maxID = n.ID
		}
	}
	vehicles := make([]map[string]struct{}, len(snap.Vehicles))
	for i, v := range snap.Vehicles {
		set := map[string]struct{}{}
		for _, sk := range v.Skills {
			if _, ok := catalog[sk]; !ok {
				return fmt.Errorf("%w: %q (vehicle %d)", ErrUnknownSkill, sk, i)
			}
			set[sk] = struct{}{}
		}
		vehicles[i] = set
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nodes
	s.skills = catalog
	s.vehicles = vehicles
	s.nextID = maxID + 1
	return nil
}

func (s *Scenario) indexOf(id model.NodeID) (int, error) {
	for i, n := range s.nodes {
		if n.ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: node %d", ErrNotFound, id)
}

func (s *Scenario) toCataloguedSet(skills []string) (map[string]struct{}, error) {
	set := map[string]struct{}{}
	for _, sk := range skills {
		if _, ok := s.skills[sk]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSkill, sk)
		}
		set[sk] = struct{}{}
	}
	return set, nil
}

func sortedTokens(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
