package station

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tidbyt.dev/gtfsgraph/model"
)

func TestNormalize(t *testing.T) {
	for _, tc := range []struct {
		policy   Policy
		key      string
		expected string
	}{
		{Policy{}, "Station A", "Station A"},
		{Policy{StripSuffix: 1}, "101N", "101"},
		{Policy{StripSuffix: 2}, "101N", "10"},
		{Policy{StripSuffix: 1}, "N", ""},
		{Policy{StripSuffix: 1}, "", ""},
		{Policy{StripSuffix: 1}, "Gare É", "Gare "},
		{Policy{Separator: " - "}, "Union - Platform 2", "Union"},
		{Policy{Separator: " - "}, "Union", "Union"},
		{Policy{Separator: " - ", StripSuffix: 1}, "St Clair W - Eastbound", "St Clair "},
		{Policy{}, "  Spadina  ", "Spadina"},
	} {
		assert.Equal(t, tc.expected, tc.policy.Normalize(tc.key), "%+v %q", tc.policy, tc.key)
	}
}

func TestIdentity(t *testing.T) {
	stop := &model.Stop{ID: "S1a", Name: "Bloor-Yonge - Line 2"}

	assert.Equal(t, "S1", Policy{StripSuffix: 1}.Identity(stop))
	assert.Equal(t, "Bloor-Yonge", Policy{Key: KeyStopName, Separator: " - "}.Identity(stop))
	assert.Equal(t, "Bloor", Policy{
		Key:       KeyStopName,
		Separator: " - ",
		Merge:     map[string]string{"Bloor-Yonge": "Bloor"},
	}.Identity(stop))
	assert.Equal(t, "S", Policy{
		StripSuffix: 1,
		Merge:       map[string]string{"S1": "S"},
	}.Identity(stop))
}

func TestResolveByID(t *testing.T) {
	r := NewResolver(Policy{Key: KeyStopID, StripSuffix: 1})

	stations := r.Resolve([]*model.Stop{
		{ID: "S1a", Name: "Station A", Lon: -79.0, Lat: 43.0},
		{ID: "S2b", Name: "Station B", Lon: -79.1, Lat: 43.1},
		{ID: "S3a", Name: "Station A Upper", Lon: -79.0, Lat: 43.0},
		{ID: "S1b", Name: "Station A (southbound)", Lon: -80, Lat: 44},
	})

	assert.Equal(t, []model.Node{
		{ID: "S1", Label: "Station A", Lon: -79.0, Lat: 43.0},
		{ID: "S2", Label: "Station B", Lon: -79.1, Lat: 43.1},
		{ID: "S3", Label: "Station A Upper", Lon: -79.0, Lat: 43.0},
	}, stations.Nodes)
	assert.Equal(t, map[string]string{
		"S1a": "S1",
		"S2b": "S2",
		"S3a": "S3",
		"S1b": "S1",
	}, stations.Lookup)
	assert.True(t, stations.Has("S1"))
	assert.False(t, stations.Has("S1a"))
	assert.False(t, stations.Has(""))
}

func TestResolveByNameMergesAndDiscards(t *testing.T) {
	r := NewResolver(Policy{
		Key:       KeyStopName,
		Separator: " - ",
		Merge: map[string]string{
			"Times Sq":  "Times Sq-42 St",
			"42 St":     "Times Sq-42 St",
			"Grand Ctl": "Grand Central",
		},
		Discard: map[string]bool{"Aqueduct": true},
	})

	stations := r.Resolve([]*model.Stop{
		{ID: "1", Name: "Times Sq - Uptown", Lon: 1, Lat: 1},
		{ID: "2", Name: "42 St", Lon: 2, Lat: 2},
		{ID: "3", Name: "Grand Ctl", Lon: 3, Lat: 3},
		{ID: "4", Name: "Aqueduct - Racetrack", Lon: 4, Lat: 4},
		{ID: "5", Name: "Times Sq - Downtown", Lon: 5, Lat: 5},
	})

	assert.Equal(t, []model.Node{
		{ID: "Times Sq-42 St", Label: "Times Sq-42 St", Lon: 1, Lat: 1},
		{ID: "Grand Central", Label: "Grand Central", Lon: 3, Lat: 3},
	}, stations.Nodes)
	assert.Equal(t, map[string]string{
		"1": "Times Sq-42 St",
		"2": "Times Sq-42 St",
		"3": "Grand Central",
		"4": "Aqueduct",
		"5": "Times Sq-42 St",
	}, stations.Lookup)
	assert.Equal(t, map[string]bool{"Aqueduct": true}, stations.Discarded)
	assert.False(t, stations.Has("Aqueduct"))
}

func TestResolveUnidentifiable(t *testing.T) {
	r := NewResolver(Policy{StripSuffix: 1})

	stations := r.Resolve([]*model.Stop{
		{ID: "N", Name: "Too short"},
	})

	assert.Empty(t, stations.Nodes)
	assert.Empty(t, stations.Lookup)
}

func TestResolveMergeIntoDiscarded(t *testing.T) {
	r := NewResolver(Policy{
		StripSuffix: 1,
		Merge:       map[string]string{"H1": "H"},
		Discard:     map[string]bool{"H": true},
	})

	stations := r.Resolve([]*model.Stop{
		{ID: "H1N", Name: "Shuttle"},
		{ID: "A1N", Name: "A"},
	})

	assert.Equal(t, []model.Node{{ID: "A1", Label: "A"}}, stations.Nodes)
	assert.Equal(t, "H", stations.Lookup["H1N"])
	assert.True(t, stations.Discarded["H"])
}
