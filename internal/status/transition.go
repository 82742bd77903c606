package status

// Trigger is an observed event that may advance the status machine.
type Trigger uint8

const (
	// TriggerAssign fires when an assignment command binds the unit to
	// an incident.
	TriggerAssign Trigger = iota
	// TriggerMovementStarted fires when the scheduler observes the unit
	// has actually begun moving, or a target was newly set while idle.
	TriggerMovementStarted
	// TriggerIncidentArrival fires when interpolation reaches an
	// incident target.
	TriggerIncidentArrival
	// TriggerRelease fires when an operator or incident closure frees
	// the unit.
	TriggerRelease
	// TriggerStationArrival fires when interpolation reaches the home
	// station.
	TriggerStationArrival
)

var triggerNames = [...]string{
	TriggerAssign:          "assign",
	TriggerMovementStarted: "movementStarted",
	TriggerIncidentArrival: "incidentArrival",
	TriggerRelease:         "release",
	TriggerStationArrival:  "stationArrival",
}

func (t Trigger) String() string {
	if int(t) < len(triggerNames) {
		return triggerNames[t]
	}
	return "unknown"
}

// Next returns the status a unit moves to when trig fires in state from.
// ok is false when the edge is not in the transition table; callers treat
// that as a logged no-op, never an error, because stale commands racing
// in-flight movement are expected.
func Next(from Code, trig Trigger) (to Code, ok bool) {
	switch trig {
	case TriggerAssign:
		if from == Available || from == AtStation {
			return Assigned, true
		}
	case TriggerMovementStarted:
		switch from {
		case Assigned:
			return Dispatched, true
		case Released:
			return Returning, true
		}
	case TriggerIncidentArrival:
		if from == Dispatched {
			return OnScene, true
		}
	case TriggerRelease:
		if from == OnScene {
			return Released, true
		}
	case TriggerStationArrival:
		if from == Returning {
			return AtStation, true
		}
	}
	return from, false
}

// PhaseFor returns the movement phase a unit enters alongside the given
// status. AtStation and Available both idle the unit.
func PhaseFor(c Code) Phase {
	switch c {
	case Dispatched:
		return PhaseEnRoute
	case OnScene:
		return PhaseOnScene
	case Returning:
		return PhaseReturning
	default:
		return PhaseIdle
	}
}
