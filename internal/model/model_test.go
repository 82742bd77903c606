package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dispatchsim/engine/internal/status"
)

func TestNormalizeCallSign(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"17-134", "17134"},
		{"17 134", "17134"},
		{" ab-12 ", "AB12"},
		{"17134", "17134"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeCallSign(tt.in); got != tt.want {
			t.Errorf("NormalizeCallSign(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClone_DeepCopiesTarget(t *testing.T) {
	rec := UnitRecord{
		ID:     "17134",
		Target: &Target{Kind: TargetIncident, RefID: "inc-1"},
	}
	c := rec.Clone()
	c.Target.RefID = "inc-2"
	if rec.Target.RefID != "inc-1" {
		t.Error("Clone shared the Target pointer")
	}
}

func TestRowRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := UnitRecord{
		ID:           "17134",
		Position:     Coordinate{Lat: 52.01, Lng: 4.41},
		PrevPosition: Coordinate{Lat: 52.0, Lng: 4.4},
		Status:       status.Dispatched,
		Phase:        status.PhaseEnRoute,
		Incident:     "inc-9",
		Target:       &Target{Coordinate: Coordinate{Lat: 52.05, Lng: 4.45}, Kind: TargetIncident, RefID: "inc-9"},
		LastUpdate:   now,
	}

	got := RowFromRecord(rec).ToRecord()
	require.NotNil(t, got.Target)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Position, got.Position)
	assert.Equal(t, rec.PrevPosition, got.PrevPosition)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.Phase, got.Phase)
	assert.Equal(t, rec.Incident, got.Incident)
	assert.Equal(t, *rec.Target, *got.Target)
	assert.Equal(t, rec.LastUpdate, got.LastUpdate)
}

func TestRowRoundTrip_NoTarget(t *testing.T) {
	rec := UnitRecord{ID: "A1", Status: status.AtStation, Phase: status.PhaseIdle}
	got := RowFromRecord(rec).ToRecord()
	assert.Nil(t, got.Target)
	assert.Equal(t, status.AtStation, got.Status)
}

func TestRowFromRecord_CorruptTargetDegrades(t *testing.T) {
	row := UnitRow{ID: "A1", Status: "kz", Phase: "idle", Target: []byte(`{broken`)}
	rec := row.ToRecord()
	assert.Nil(t, rec.Target)
	assert.Equal(t, status.AtStation, rec.Status)
}

func TestMapPoint_ProjectsTo3857(t *testing.T) {
	p := Coordinate{Lat: 52.0, Lng: 4.4}.MapPoint()
	xy, ok := p.XY()
	require.True(t, ok)
	// 4.4E is ~489,755 m east of the meridian in web mercator.
	assert.InDelta(t, 489755, xy.X, 500)
	assert.Greater(t, xy.Y, 6.7e6)
	assert.Less(t, xy.Y, 6.9e6)
}
