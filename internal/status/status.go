// Package status holds the closed operational-status and movement-phase
// enums and the single transition function that enforces the dispatch
// state machine. All status changes in the engine go through Next; no
// other code compares or rewrites status codes directly.
package status

// Code is the dispatch-visible operational status of a unit.
type Code uint8

const (
	Available Code = iota
	Assigned
	Dispatched
	OnScene
	Released
	Returning
	AtStation
)

// wireCodes are the two-letter codes the dispatch board protocol uses.
// Returning shares "bs" with the legacy "available, returning" status.
var wireCodes = [...]string{
	Available:  "av",
	Assigned:   "ov",
	Dispatched: "ut",
	OnScene:    "tp",
	Released:   "ir",
	Returning:  "bs",
	AtStation:  "kz",
}

var names = [...]string{
	Available:  "available",
	Assigned:   "assigned",
	Dispatched: "dispatched",
	OnScene:    "onScene",
	Released:   "released",
	Returning:  "returning",
	AtStation:  "atStation",
}

// String returns the JSON/log name of the code.
func (c Code) String() string {
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// Wire returns the two-letter dispatch-board code.
func (c Code) Wire() string {
	if int(c) < len(wireCodes) {
		return wireCodes[c]
	}
	return ""
}

// CodeFromWire maps a two-letter code back to a Code. Unknown strings
// map to Available so a corrupt persisted record degrades to an idle unit.
func CodeFromWire(s string) Code {
	for c, w := range wireCodes {
		if w == s {
			return Code(c)
		}
	}
	return Available
}

// Phase describes why a unit's position is or isn't being interpolated.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseEnRoute
	PhaseOnScene
	PhaseReturning
)

var phaseNames = [...]string{
	PhaseIdle:      "idle",
	PhaseEnRoute:   "enRouteToIncident",
	PhaseOnScene:   "onScene",
	PhaseReturning: "returningToStation",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// PhaseFromString parses a persisted phase name. Unknown strings map to idle.
func PhaseFromString(s string) Phase {
	for p, n := range phaseNames {
		if n == s {
			return Phase(p)
		}
	}
	return PhaseIdle
}

// Moving reports whether the phase implies position interpolation.
func (p Phase) Moving() bool {
	return p == PhaseEnRoute || p == PhaseReturning
}
