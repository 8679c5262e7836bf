package solver

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/jkleinau/VRP/internal/formulate"
)

// ALNS is an adaptive large-neighborhood search over the formulated
// problem: greedy seed, then alternating removal (random, shaw) and
// insertion (greedy, regret-2) operators with a simulated-annealing
// acceptance criterion and an intra-route 2-opt pass. Operator weights
// adapt toward whichever operators produce improvements.
//
// The search is deterministic for a fixed Seed and checks ctx between
// iterations, so cancellation and the time budget are honored at
// iteration granularity.
type ALNS struct {
	// Seed fixes the RNG; zero means seed from the clock.
	Seed int64
	// Iterations caps the search loop; zero means DefaultIterations.
	Iterations int
	// InitialTemp and Cooling tune the annealing acceptance.
	InitialTemp float64
	Cooling     float64
}

// DefaultIterations bounds the loop when the caller sets no cap. The
// instances this engine sees are interactive-scale, so a few thousand
// iterations dominate the reachable neighborhood.
const DefaultIterations = 2000

// NewALNS returns an engine with the given RNG seed.
func NewALNS(seed int64) *ALNS {
	return &ALNS{Seed: seed}
}

// state is a candidate assignment: customer indices per vehicle, plus
// the customers not placed anywhere yet.
type state struct {
	routes     [][]int
	unassigned []int
	cost       int64
}

func (st state) clone() state {
	cp := state{
		routes:     make([][]int, len(st.routes)),
		unassigned: append([]int(nil), st.unassigned...),
		cost:       st.cost,
	}
	for i, r := range st.routes {
		cp.routes[i] = append([]int(nil), r...)
	}
	return cp
}

// Solve implements Engine.
func (a *ALNS) Solve(ctx context.Context, p *formulate.Problem) (Assignment, error) {
	if err := proveInfeasible(p); err != nil {
		return nil, err
	}

	customers := make([]int, 0, len(p.Matrix)-1)
	for i := 1; i < len(p.Matrix); i++ {
		customers = append(customers, i)
	}
	if len(customers) == 0 {
		return emptyAssignment(p), nil
	}

	seed := a.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	curr := greedySeed(p, customers)
	best := curr.clone()

	remW := []float64{1, 1} // random, shaw
	insW := []float64{1, 1} // greedy, regret-2
	temp := 1.0
	if a.InitialTemp > 0 {
		temp = a.InitialTemp
	}
	cool := 0.995
	if a.Cooling > 0 && a.Cooling < 1 {
		cool = a.Cooling
	}
	limit := a.Iterations
	if limit <= 0 {
		limit = DefaultIterations
	}

	for it := 0; it < limit; it++ {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, err
		}
		if len(best.unassigned) == 0 && it > limit/4 {
			// Complete and past the early improvement phase; good enough.
			break
		}

		k := 1 + rng.Intn(3)
		op := selectOp(remW, rng)
		ip := selectOp(insW, rng)

		cand := curr.clone()
		var removed []int
		switch op {
		case 0:
			removed = pickRandomCustomers(&cand, k, rng)
		case 1:
			removed = shawRemoval(p, &cand, k, rng)
		}
		cand.unassigned = append(cand.unassigned, removed...)
		switch ip {
		case 0:
			greedyInsert(p, &cand)
		case 1:
			regretInsert(p, &cand)
		}
		twoOptImprove(p, &cand)
		cand.cost = cost(p, cand)

		delta := float64(cand.cost - best.cost)
		if delta < 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
			curr = cand
			if cand.cost < best.cost {
				best = cand.clone()
				remW[op] += 0.1
				insW[ip] += 0.1
			} else {
				remW[op] += 0.01
				insW[ip] += 0.01
			}
		} else {
			remW[op] = math.Max(0.01, remW[op]*0.999)
			insW[ip] = math.Max(0.01, insW[ip]*0.999)
		}
		temp *= cool
	}

	if len(best.unassigned) > 0 {
		// Out of time or out of iterations with customers unplaced;
		// either way infeasibility was not proven.
		return nil, ErrBudgetExhausted
	}
	return toAssignment(p, best), nil
}

// proveInfeasible checks the two conditions under which no assignment
// can exist regardless of search effort: a customer no vehicle is
// allowed to visit, and a window that closes before the direct drive
// from the depot arrives (the minimum possible arrival under the
// triangle inequality).
func proveInfeasible(p *formulate.Problem) error {
	for i := 1; i < len(p.Matrix); i++ {
		allowed := false
		for v := 0; v < p.VehicleCount; v++ {
			if p.Allowed[v].Has(i) {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrInfeasible
		}
		if p.Matrix[0][i] > p.Windows[i].End {
			return ErrInfeasible
		}
	}
	return nil
}

func emptyAssignment(p *formulate.Problem) Assignment {
	asg := make(Assignment, p.VehicleCount)
	for v := range asg {
		asg[v] = []int{0, 0}
	}
	return asg
}

func toAssignment(p *formulate.Problem, st state) Assignment {
	asg := make(Assignment, p.VehicleCount)
	for v := range asg {
		seq := make([]int, 0, len(st.routes[v])+2)
		seq = append(seq, 0)
		seq = append(seq, st.routes[v]...)
		seq = append(seq, 0)
		asg[v] = seq
	}
	return asg
}

// greedySeed assigns each customer to the vehicle/position with the
// cheapest feasible insertion, cycling vehicles for balance.
func greedySeed(p *formulate.Problem, customers []int) state {
	st := state{routes: make([][]int, p.VehicleCount)}
	remaining := append([]int(nil), customers...)
	for len(remaining) > 0 {
		bestN, bestV, bestPos := -1, -1, -1
		bestDelta := int64(math.MaxInt64)
		for ni, idx := range remaining {
			for v := 0; v < p.VehicleCount; v++ {
				for pos := 0; pos <= len(st.routes[v]); pos++ {
					if !feasibleInsertAt(p, v, st.routes[v], idx, pos) {
						continue
					}
					d := insertDelta(p, st.routes[v], idx, pos)
					if d < bestDelta {
						bestDelta, bestN, bestV, bestPos = d, ni, v, pos
					}
				}
			}
		}
		if bestN < 0 {
			// Nothing placeable; leave the rest unassigned for the
			// search loop to repair.
			st.unassigned = append(st.unassigned, remaining...)
			break
		}
		st.routes[bestV] = insertAt(st.routes[bestV], remaining[bestN], bestPos)
		remaining = append(remaining[:bestN], remaining[bestN+1:]...)
	}
	st.cost = cost(p, st)
	return st
}

func pickRandomCustomers(st *state, k int, rng *rand.Rand) []int {
	var present []int
	for _, r := range st.routes {
		present = append(present, r...)
	}
	if len(present) == 0 {
		return nil
	}
	var removed []int
	for i := 0; i < k && len(present) > 0; i++ {
		j := rng.Intn(len(present))
		removed = append(removed, present[j])
		present = append(present[:j], present[j+1:]...)
	}
	eraseAll(st, removed)
	return removed
}

// shawRemoval removes customers related to a random seed customer:
// close in the matrix and with overlapping windows.
func shawRemoval(p *formulate.Problem, st *state, k int, rng *rand.Rand) []int {
	var present []int
	for _, r := range st.routes {
		present = append(present, r...)
	}
	if len(present) == 0 {
		return nil
	}
	seedIdx := present[rng.Intn(len(present))]
	type rel struct {
		idx   int
		score int64
	}
	var rels []rel
	for _, idx := range present {
		if idx == seedIdx {
			continue
		}
		score := p.Matrix[seedIdx][idx] - windowOverlap(p.Windows[seedIdx], p.Windows[idx])/4
		rels = append(rels, rel{idx: idx, score: score})
	}
	for i := 0; i < len(rels); i++ {
		for j := i + 1; j < len(rels); j++ {
			if rels[j].score < rels[i].score {
				rels[i], rels[j] = rels[j], rels[i]
			}
		}
	}
	removed := []int{seedIdx}
	for i := 0; i < len(rels) && len(removed) < k; i++ {
		removed = append(removed, rels[i].idx)
	}
	eraseAll(st, removed)
	return removed
}

func windowOverlap(a, b formulate.Window) int64 {
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	if end < start {
		return 0
	}
	return end - start
}

func eraseAll(st *state, removed []int) {
	rm := map[int]bool{}
	for _, i := range removed {
		rm[i] = true
	}
	for v, r := range st.routes {
		keep := r[:0]
		for _, idx := range r {
			if !rm[idx] {
				keep = append(keep, idx)
			}
		}
		st.routes[v] = keep
	}
}

// greedyInsert places unassigned customers by cheapest feasible
// insertion until none can be placed.
func greedyInsert(p *formulate.Problem, st *state) {
	for {
		bestN, bestV, bestPos := -1, -1, -1
		bestDelta := int64(math.MaxInt64)
		for ni, idx := range st.unassigned {
			for v := 0; v < p.VehicleCount; v++ {
				for pos := 0; pos <= len(st.routes[v]); pos++ {
					if !feasibleInsertAt(p, v, st.routes[v], idx, pos) {
						continue
					}
					d := insertDelta(p, st.routes[v], idx, pos)
					if d < bestDelta {
						bestDelta, bestN, bestV, bestPos = d, ni, v, pos
					}
				}
			}
		}
		if bestN < 0 {
			return
		}
		st.routes[bestV] = insertAt(st.routes[bestV], st.unassigned[bestN], bestPos)
		st.unassigned = append(st.unassigned[:bestN], st.unassigned[bestN+1:]...)
	}
}

// regretInsert places the customer whose best and second-best feasible
// insertions differ the most (regret-2), deferring easy customers.
func regretInsert(p *formulate.Problem, st *state) {
	for len(st.unassigned) > 0 {
		bestN, bestV, bestPos := -1, -1, -1
		var bestRegret int64 = -1
		var bestCost int64 = math.MaxInt64
		for ni, idx := range st.unassigned {
			var c1, c2 int64 = math.MaxInt64, math.MaxInt64
			v1, pos1 := -1, -1
			for v := 0; v < p.VehicleCount; v++ {
				for pos := 0; pos <= len(st.routes[v]); pos++ {
					if !feasibleInsertAt(p, v, st.routes[v], idx, pos) {
						continue
					}
					d := insertDelta(p, st.routes[v], idx, pos)
					if d < c1 {
						c2 = c1
						c1, v1, pos1 = d, v, pos
					} else if d < c2 {
						c2 = d
					}
				}
			}
			if v1 < 0 {
				continue
			}
			regret := int64(0)
			if c2 < math.MaxInt64 {
				regret = c2 - c1
			}
			if regret > bestRegret || (regret == bestRegret && c1 < bestCost) {
				bestRegret, bestCost = regret, c1
				bestN, bestV, bestPos = ni, v1, pos1
			}
		}
		if bestN < 0 {
			return
		}
		st.routes[bestV] = insertAt(st.routes[bestV], st.unassigned[bestN], bestPos)
		st.unassigned = append(st.unassigned[:bestN], st.unassigned[bestN+1:]...)
	}
}

// twoOptImprove reverses intra-route segments while the result stays
// schedule-feasible and shorter.
func twoOptImprove(p *formulate.Problem, st *state) {
	for v := range st.routes {
		r := st.routes[v]
		n := len(r)
		if n < 3 {
			continue
		}
		improved := true
		for improved {
			improved = false
			for i := 0; i < n-1; i++ {
				for k := i + 1; k < n; k++ {
					cand := append([]int(nil), r...)
					for a, b := i, k; a < b; a, b = a+1, b-1 {
						cand[a], cand[b] = cand[b], cand[a]
					}
					if _, ok := scheduleRoute(p, cand); !ok {
						continue
					}
					if routeDistance(p, cand) < routeDistance(p, r) {
						r = cand
						improved = true
					}
				}
			}
		}
		st.routes[v] = r
	}
}

func insertAt(route []int, idx, pos int) []int {
	out := make([]int, 0, len(route)+1)
	out = append(out, route[:pos]...)
	out = append(out, idx)
	out = append(out, route[pos:]...)
	return out
}

// insertDelta is the distance added by inserting idx at pos:
// prev->idx + idx->next - prev->next, with depot as both bookends.
func insertDelta(p *formulate.Problem, route []int, idx, pos int) int64 {
	prev, next := 0, 0
	if pos > 0 {
		prev = route[pos-1]
	}
	if pos < len(route) {
		next = route[pos]
	}
	return p.Matrix[prev][idx] + p.Matrix[idx][next] - p.Matrix[prev][next]
}

func feasibleInsertAt(p *formulate.Problem, v int, route []int, idx, pos int) bool {
	if !p.Allowed[v].Has(idx) {
		return false
	}
	cand := insertAt(route, idx, pos)
	// Everything already on the route must stay allowed for v by
	// construction; only the schedule needs re-checking.
	_, ok := scheduleRoute(p, cand)
	return ok
}

// scheduleRoute propagates arrival times along a depot-to-depot route
// under unit speed with the wait-if-early policy. It returns the time
// the vehicle is back at the depot and whether every window was met.
func scheduleRoute(p *formulate.Problem, route []int) (int64, bool) {
	t := int64(0)
	prev := 0
	for _, idx := range route {
		t += p.Matrix[prev][idx]
		w := p.Windows[idx]
		if t < w.Start {
			t = w.Start
		}
		if t > w.End {
			return t, false
		}
		prev = idx
	}
	t += p.Matrix[prev][0]
	return t, true
}

// routeDistance sums consecutive matrix entries depot-to-depot.
func routeDistance(p *formulate.Problem, route []int) int64 {
	var total int64
	prev := 0
	for _, idx := range route {
		total += p.Matrix[prev][idx]
		prev = idx
	}
	total += p.Matrix[prev][0]
	return total
}

// cost scores a state: total distance plus a horizon-sized penalty per
// unplaced customer, so any complete state beats any incomplete one.
func cost(p *formulate.Problem, st state) int64 {
	var total int64
	for _, r := range st.routes {
		total += routeDistance(p, r)
	}
	total += int64(len(st.unassigned)) * p.Horizon
	return total
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}
