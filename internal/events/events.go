// Package events provides the pub/sub stream the engine publishes state
// changes on. Any part of the system can post an event and any
// collaborator (map layer, dispatch board, status displays) can
// subscribe and drain messages at its own pace.
package events

import (
	"time"

	"github.com/dispatchsim/engine/internal/model"
	"github.com/dispatchsim/engine/internal/status"
)

// Kind names an event type for logging and metrics attributes.
type Kind string

const (
	KindUnitStatusChanged    Kind = "unitStatusChanged"
	KindUnitPositionsUpdated Kind = "unitPositionsUpdated"
	KindUnitArrival          Kind = "unitArrival"
	KindUnitArrivedAtStation Kind = "unitArrivedAtStation"
	KindUnitMovementStarted  Kind = "unitMovementStarted"
	KindTickCompleted        Kind = "tickCompleted"
)

// Event is implemented by every payload published on the stream.
type Event interface {
	Kind() Kind
}

// UnitStatusChanged fires on every operational-status transition.
type UnitStatusChanged struct {
	UnitID     string
	From       status.Code
	To         status.Code
	IncidentID string
	Position   model.Coordinate
}

func (UnitStatusChanged) Kind() Kind { return KindUnitStatusChanged }

// UnitPositionsUpdated batches the records that changed this tick.
// Posted at most once per tick, and only when something changed.
type UnitPositionsUpdated struct {
	Records []model.UnitRecord
}

func (UnitPositionsUpdated) Kind() Kind { return KindUnitPositionsUpdated }

// UnitArrival fires exactly once when a unit reaches its incident.
type UnitArrival struct {
	UnitID     string
	Position   model.Coordinate
	IncidentID string
}

func (UnitArrival) Kind() Kind { return KindUnitArrival }

// UnitArrivedAtStation fires exactly once when a return trip completes.
type UnitArrivedAtStation struct {
	UnitID   string
	Position model.Coordinate
}

func (UnitArrivedAtStation) Kind() Kind { return KindUnitArrivedAtStation }

// UnitMovementStarted fires on the tick a unit first moves toward a
// newly assigned target, before any distance is covered.
type UnitMovementStarted struct {
	UnitID string
	Target model.Target
}

func (UnitMovementStarted) Kind() Kind { return KindUnitMovementStarted }

// TickCompleted fires every scheduler tick regardless of change, so
// consumers can tell "no units moving" from "scheduler not running".
type TickCompleted struct {
	Timestamp time.Time
}

func (TickCompleted) Kind() Kind { return KindTickCompleted }
