package preset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkleinau/VRP/internal/model"
	"github.com/jkleinau/VRP/internal/scenario"
)

func buildScenario(t *testing.T) *scenario.Scenario {
	t.Helper()
	s := scenario.New()
	require.NoError(t, s.RegisterSkill("electrician"))
	require.NoError(t, s.RegisterSkill("heavy_lift"))
	require.NoError(t, s.SetVehicleCount(2))
	require.NoError(t, s.SetVehicleSkills(1, []string{"electrician"}))

	a := s.AddNode(model.Position{X: 10, Y: 0})
	b := s.AddNode(model.Position{X: 0, Y: 10})
	require.NoError(t, s.SetNodeTimeWindow(a, 5, 50))
	require.NoError(t, s.SetNodeRequiredSkills(b, []string{"electrician"}))
	return s
}

func TestRoundTripThroughImport(t *testing.T) {
	src := buildScenario(t)
	data, err := Encode(src.Snapshot())
	require.NoError(t, err)

	snap, err := Decode(data)
	require.NoError(t, err)

	dst := scenario.New()
	require.NoError(t, dst.Import(snap))
	assert.Equal(t, src.Snapshot(), dst.Snapshot())
}

func TestEncodeIsStable(t *testing.T) {
	snap := buildScenario(t).Snapshot()
	a, err := Encode(snap)
	require.NoError(t, err)
	b, err := Encode(snap)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	snap := buildScenario(t).Snapshot()
	require.NoError(t, SaveFile(path, snap))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(snap.Nodes), len(got.Nodes))
	assert.Equal(t, snap.Skills, got.Skills)
}

func TestDecodeRejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"not json", `{"nodes": [`},
		{"no nodes", `{"nodes": [], "num_vehicles": 1}`},
		{"depot off origin", `{"nodes": [{"id":0,"x":3,"y":0}], "num_vehicles": 1}`},
		{"depot wrong id", `{"nodes": [{"id":5,"x":0,"y":0}], "num_vehicles": 1}`},
		{"depot with window", `{"nodes": [{"id":0,"x":0,"y":0,"time_window":[0,5]}], "num_vehicles": 1}`},
		{"zero vehicles", `{"nodes": [{"id":0,"x":0,"y":0}], "num_vehicles": 0}`},
		{"duplicate ids", `{"nodes": [{"id":0,"x":0,"y":0},{"id":3,"x":1,"y":1},{"id":3,"x":2,"y":2}], "num_vehicles": 1}`},
		{"unknown node skill", `{"nodes": [{"id":0,"x":0,"y":0},{"id":1,"x":1,"y":1,"required_skills":["welding"]}], "num_vehicles": 1}`},
		{"unknown vehicle skill", `{"nodes": [{"id":0,"x":0,"y":0}], "num_vehicles": 1, "vehicle_skills": [["welding"]]}`},
		{"inverted window", `{"nodes": [{"id":0,"x":0,"y":0},{"id":1,"x":1,"y":1,"time_window":[9,3]}], "num_vehicles": 1}`},
		{"excess vehicle_skills", `{"nodes": [{"id":0,"x":0,"y":0}], "num_vehicles": 1, "vehicle_skills": [[],[]]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc))
			assert.ErrorIs(t, err, ErrMalformedPreset)
		})
	}
}

func TestDecodePadsMissingVehicleSkills(t *testing.T) {
	snap, err := Decode([]byte(`{
		"nodes": [{"id":0,"x":0,"y":0}],
		"num_vehicles": 3,
		"available_skills": ["electrician"],
		"vehicle_skills": [["electrician"]]
	}`))
	require.NoError(t, err)
	require.Len(t, snap.Vehicles, 3)
	assert.Equal(t, []string{"electrician"}, snap.Vehicles[0].Skills)
	assert.Empty(t, snap.Vehicles[1].Skills)
	assert.Empty(t, snap.Vehicles[2].Skills)
}
