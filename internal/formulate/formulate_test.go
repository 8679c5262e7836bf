package formulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkleinau/VRP/internal/model"
)

func snapTwoCustomers() model.Snapshot {
	return model.Snapshot{
		Nodes: []model.Node{
			{ID: model.DepotID, IsDepot: true},
			{ID: 1, Position: model.Position{X: 10, Y: 0}},
			{ID: 2, Position: model.Position{X: 0, Y: 10}},
		},
		Vehicles: []model.Vehicle{{Index: 0}},
	}
}

func TestBuildMatrixRoundingLaw(t *testing.T) {
	p, err := Build(snapTwoCustomers())
	require.NoError(t, err)

	assert.Equal(t, int64(0), p.Matrix[0][0])
	assert.Equal(t, int64(10), p.Matrix[0][1])
	assert.Equal(t, int64(10), p.Matrix[2][0])
	// hypot(10,10) = 14.142..., rounded to nearest.
	assert.Equal(t, int64(14), p.Matrix[1][2])
	assert.Equal(t, p.Matrix[1][2], p.Matrix[2][1])
}

func TestBuildHorizonNeverBinds(t *testing.T) {
	p, err := Build(snapTwoCustomers())
	require.NoError(t, err)

	var total int64
	for _, row := range p.Matrix {
		for _, d := range row {
			total += d
		}
	}
	assert.Equal(t, total+1, p.Horizon)
	// Unconstrained nodes get the widest representable window.
	for _, w := range p.Windows {
		assert.Equal(t, Window{Start: 0, End: p.Horizon}, w)
	}
	assert.False(t, p.Windowed)
}

func TestBuildWindows(t *testing.T) {
	s := snapTwoCustomers()
	s.Nodes[1].TimeWindow = &model.TimeWindow{Start: 3, End: 9}
	p, err := Build(s)
	require.NoError(t, err)
	assert.True(t, p.Windowed)
	assert.Equal(t, Window{Start: 3, End: 9}, p.Windows[1])
	assert.Equal(t, Window{Start: 0, End: p.Horizon}, p.Windows[2])
}

func TestBuildSkillMasks(t *testing.T) {
	s := model.Snapshot{
		Nodes: []model.Node{
			{ID: model.DepotID, IsDepot: true},
			{ID: 1, Position: model.Position{X: 1, Y: 0}, RequiredSkills: []string{"electrician"}},
			{ID: 2, Position: model.Position{X: 2, Y: 0}},
		},
		Skills: []string{"electrician"},
		Vehicles: []model.Vehicle{
			{Index: 0, Skills: []string{"electrician"}},
			{Index: 1},
		},
	}
	p, err := Build(s)
	require.NoError(t, err)

	// Skilled vehicle may visit everything.
	assert.True(t, p.Allowed[0].Has(1))
	// Unskilled vehicle is excluded from the demanding node but not the
	// rest, and the depot is always allowed.
	assert.False(t, p.Allowed[1].Has(1))
	assert.True(t, p.Allowed[1].Has(2))
	assert.True(t, p.Allowed[1].Has(0))
}

func TestBuildIsDeterministic(t *testing.T) {
	s := snapTwoCustomers()
	s.Nodes[2].TimeWindow = &model.TimeWindow{Start: 0, End: 50}
	a, err := Build(s)
	require.NoError(t, err)
	b, err := Build(s)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNodeSet(t *testing.T) {
	set := NewNodeSet(130)
	set.Add(0)
	set.Add(64)
	set.Add(129)
	assert.True(t, set.Has(0))
	assert.True(t, set.Has(64))
	assert.True(t, set.Has(129))
	assert.False(t, set.Has(1))
	assert.False(t, set.Has(500))
	assert.Equal(t, 3, set.Count())
}
