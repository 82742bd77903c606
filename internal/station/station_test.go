package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/engine/internal/model"
)

var (
	north = model.Station{ID: "17-01", Name: "Post Noord", Location: model.Coordinate{Lat: 52.10, Lng: 4.40}, Group: "Noord"}
	south = model.Station{ID: "18-01", Name: "Post Zuid", Location: model.Coordinate{Lat: 51.90, Lng: 4.45}, Group: "Zuid"}
	ghost = model.Station{ID: "99-01", Name: "Post Leeg"} // zero coordinates
)

func TestResolve_Override(t *testing.T) {
	r := NewResolver([]model.Station{north}, []model.UnitProfile{{
		CallSign: "17134",
		Override: &model.Coordinate{Lat: 52.05, Lng: 4.42},
	}})

	s, err := r.Resolve("17134")
	require.NoError(t, err)
	assert.Equal(t, 52.05, s.Location.Lat)
	assert.Equal(t, "override:17134", s.ID)
}

func TestResolve_ZeroOverrideIsSkipped(t *testing.T) {
	r := NewResolver([]model.Station{north}, []model.UnitProfile{{
		CallSign:    "17134",
		Override:    &model.Coordinate{},
		StationName: "Post Noord",
	}})

	s, err := r.Resolve("17134")
	require.NoError(t, err)
	assert.Equal(t, north.ID, s.ID)
}

func TestResolve_StationName(t *testing.T) {
	r := NewResolver([]model.Station{north, south}, []model.UnitProfile{{
		CallSign:    "ABC1",
		StationName: "post zuid", // case-insensitive
	}})

	s, err := r.Resolve("ABC1")
	require.NoError(t, err)
	assert.Equal(t, south.ID, s.ID)
}

func TestResolve_GroupLabel(t *testing.T) {
	r := NewResolver([]model.Station{north, south}, []model.UnitProfile{{
		CallSign:    "ABC1",
		StationName: "Post Onbekend",
		Group:       "Zuid",
	}})

	s, err := r.Resolve("ABC1")
	require.NoError(t, err)
	assert.Equal(t, south.ID, s.ID)
}

func TestResolve_CallSignPrefix(t *testing.T) {
	r := NewResolver([]model.Station{south, north}, nil)

	s, err := r.Resolve("17134")
	require.NoError(t, err)
	assert.Equal(t, north.ID, s.ID, "leading digits 17 match station id 17-01")
}

func TestResolve_FirstValidFallback(t *testing.T) {
	r := NewResolver([]model.Station{ghost, south}, nil)

	s, err := r.Resolve("NOPREFIX")
	require.NoError(t, err)
	assert.Equal(t, south.ID, s.ID, "zero-coordinate stations are never resolved")
}

func TestResolve_NoStation(t *testing.T) {
	r := NewResolver([]model.Station{ghost}, nil)

	_, err := r.Resolve("17134")
	assert.ErrorIs(t, err, ErrNoStation)
}

func TestResolve_RefreshedReferenceDataUnblocks(t *testing.T) {
	r := NewResolver(nil, nil)
	_, err := r.Resolve("17134")
	require.ErrorIs(t, err, ErrNoStation)

	r.SetStations([]model.Station{north})
	s, err := r.Resolve("17134")
	require.NoError(t, err)
	assert.Equal(t, north.ID, s.ID)
}

func TestRegionPrefix(t *testing.T) {
	cases := []struct {
		id   string
		want string
	}{
		{"17134", "17"},
		{"9A12", ""},
		{"AMBU1", ""},
		{"", ""},
		{"421", "42"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, regionPrefix(tc.id), tc.id)
	}
}
