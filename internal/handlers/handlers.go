// Package handlers binds operator console commands to the simulation
// engine. Commands arrive through the dispatcher as pre-tokenized
// events; every handler validates its arguments and returns a
// JSON-encodable result for the console.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dispatchsim/engine/internal/dispatcher"
	"github.com/dispatchsim/engine/internal/model"
)

// Command names registered on the dispatcher.
const (
	CmdUnitAssign  = "unit:assign"
	CmdUnitRelease = "unit:release"
	CmdUnitMove    = "unit:move"
	CmdSimStatus   = "sim:status"
	CmdSimSnapshot = "sim:snapshot"
)

// Engine is the slice of the scheduler the handlers drive.
type Engine interface {
	AssignToIncident(unitID, incidentID string, coord model.Coordinate)
	ReleaseFromIncident(unitID string)
	StartMovement(unitID string, coord model.Coordinate, kind model.TargetKind, refID string)
	Snapshot() []model.UnitRecord
}

// StatusReporter produces the program status document for sim:status.
type StatusReporter interface {
	ProgramStatusJSON() string
}

// Dependencies holds everything the handlers need.
type Dependencies struct {
	Engine  Engine
	Monitor StatusReporter
	Logger  *slog.Logger
}

// Service provides handler methods for operator commands.
type Service struct {
	deps Dependencies
	log  *slog.Logger
}

// NewService creates a new handler service.
func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{deps: deps, log: log}
}

// Register wires every command onto the dispatcher.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdUnitAssign, s.UnitAssign, dispatcher.Logged(),
		dispatcher.Usage("<unit> <incident> <lat> <lng>"))
	d.Register(CmdUnitRelease, s.UnitRelease, dispatcher.Logged(),
		dispatcher.Usage("<unit>"))
	d.Register(CmdUnitMove, s.UnitMove, dispatcher.Logged(),
		dispatcher.Usage("<unit> <lat> <lng> [station]"))
	d.Register(CmdSimStatus, s.SimStatus)
	d.Register(CmdSimSnapshot, s.SimSnapshot)
	s.log.Debug("Registered operator commands",
		"commands", []string{CmdUnitAssign, CmdUnitRelease, CmdUnitMove, CmdSimStatus, CmdSimSnapshot})
}

// UnitAssign handles unit:assign <unitID> <incidentID> <lat> <lng>.
func (s *Service) UnitAssign(e dispatcher.Event) (any, error) {
	if len(e.Args) < 4 {
		return nil, fmt.Errorf("%s: want <unit> <incident> <lat> <lng>, got %d args", CmdUnitAssign, len(e.Args))
	}
	coord, err := parseCoordinate(e.Args[2], e.Args[3])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CmdUnitAssign, err)
	}
	unitID := model.NormalizeCallSign(e.Args[0])
	s.deps.Engine.AssignToIncident(unitID, e.Args[1], coord)
	return fmt.Sprintf("assigned %s to %s", unitID, e.Args[1]), nil
}

// UnitRelease handles unit:release <unitID>.
func (s *Service) UnitRelease(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("%s: want <unit>", CmdUnitRelease)
	}
	unitID := model.NormalizeCallSign(e.Args[0])
	s.deps.Engine.ReleaseFromIncident(unitID)
	return fmt.Sprintf("released %s", unitID), nil
}

// UnitMove handles unit:move <unitID> <lat> <lng> [stationID].
// The unit is sent on a station-style return leg, so it only moves
// when it has been released and has no other target.
func (s *Service) UnitMove(e dispatcher.Event) (any, error) {
	if len(e.Args) < 3 {
		return nil, fmt.Errorf("%s: want <unit> <lat> <lng> [station]", CmdUnitMove)
	}
	coord, err := parseCoordinate(e.Args[1], e.Args[2])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CmdUnitMove, err)
	}
	refID := ""
	if len(e.Args) > 3 {
		refID = e.Args[3]
	}
	unitID := model.NormalizeCallSign(e.Args[0])
	s.deps.Engine.StartMovement(unitID, coord, model.TargetStation, refID)
	return fmt.Sprintf("moving %s", unitID), nil
}

// SimStatus handles sim:status and returns the monitor's JSON document.
func (s *Service) SimStatus(e dispatcher.Event) (any, error) {
	if s.deps.Monitor == nil {
		return nil, fmt.Errorf("%s: no status service configured", CmdSimStatus)
	}
	return s.deps.Monitor.ProgramStatusJSON(), nil
}

// SimSnapshot handles sim:snapshot and returns all tracked units as JSON.
func (s *Service) SimSnapshot(e dispatcher.Event) (any, error) {
	units := s.deps.Engine.Snapshot()
	out, err := json.Marshal(units)
	if err != nil {
		return nil, fmt.Errorf("%s: marshalling snapshot: %w", CmdSimSnapshot, err)
	}
	return string(out), nil
}

func parseCoordinate(latStr, lngStr string) (model.Coordinate, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("parsing latitude %q: %w", latStr, err)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("parsing longitude %q: %w", lngStr, err)
	}
	return model.Coordinate{Lat: lat, Lng: lng}, nil
}
