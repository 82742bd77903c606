package model

// Incident is an external event units get dispatched to. The engine
// consumes incidents from a feed; it never creates or mutates them.
type Incident struct {
	ID       string     `json:"id"`
	Location Coordinate `json:"coordinates"`
	Units    []string   `json:"assignedUnitIds"`
	Closed   bool       `json:"closed"`
}

// Station is a unit's home base: the default location for a fresh unit
// and the destination of its return trip.
type Station struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Location Coordinate `json:"coordinates"`
	Group    string     `json:"groupLabel,omitempty"`
}

// UnitProfile carries the per-unit reference data the station resolver
// consults: an explicit location override, a station name, and the
// group/post label from the unit roster.
type UnitProfile struct {
	CallSign    string      `json:"callSign"`
	Override    *Coordinate `json:"locationOverride,omitempty"`
	StationName string      `json:"stationName,omitempty"`
	Group       string      `json:"groupLabel,omitempty"`
}
