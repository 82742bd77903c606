// Package feed provides the external reference data the engine
// reconciles against: the live incident list and the station/roster
// reference data. Sources are polled, never pushed.
package feed

import (
	"context"

	"github.com/dispatchsim/engine/internal/model"
)

// IncidentSource lists the current external incidents.
type IncidentSource interface {
	List(ctx context.Context) ([]model.Incident, error)
}

// StationSource provides the station reference list and the unit roster
// the resolver consults.
type StationSource interface {
	Stations(ctx context.Context) ([]model.Station, error)
	Profiles(ctx context.Context) ([]model.UnitProfile, error)
}
