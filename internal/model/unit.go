package model

import (
	"strings"
	"time"

	"github.com/dispatchsim/engine/internal/status"
)

// TargetKind distinguishes what a unit is driving toward.
type TargetKind string

const (
	TargetIncident TargetKind = "incident"
	TargetStation  TargetKind = "station"
)

// Target is a unit's current destination. Present iff the unit's
// movement phase is not idle (by the end of the tick that set it).
type Target struct {
	Coordinate Coordinate `json:"coordinate"`
	Kind       TargetKind `json:"kind"`
	RefID      string     `json:"refId"`
}

// UnitRecord is the engine's full state for one unit, keyed by the
// normalized call sign. It is created lazily on first reference and
// never deleted; it persists as the unit's last-known state.
//
// All mutation goes through the movement scheduler or its public
// command API. Collaborators read fully-formed copies.
type UnitRecord struct {
	ID           string       `json:"id"`
	Position     Coordinate   `json:"position"`
	PrevPosition Coordinate   `json:"previousPosition"`
	Phase        status.Phase `json:"movementPhase"`
	Status       status.Code  `json:"operationalStatus"`
	Incident     string       `json:"activeIncidentId,omitempty"`
	Target       *Target      `json:"target,omitempty"`
	LastUpdate   time.Time    `json:"lastUpdate"`
}

// Clone returns a deep copy, so callers can hand records across
// goroutine boundaries without sharing the Target pointer.
func (u UnitRecord) Clone() UnitRecord {
	c := u
	if u.Target != nil {
		t := *u.Target
		c.Target = &t
	}
	return c
}

// NormalizeCallSign canonicalizes a unit identifier: uppercase, with
// spaces and dashes stripped, so "17-134", "17 134" and "17134" key the
// same record.
func NormalizeCallSign(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	id = strings.ReplaceAll(id, " ", "")
	id = strings.ReplaceAll(id, "-", "")
	return id
}
