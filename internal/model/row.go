package model

import (
	"encoding/json"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/dispatchsim/engine/internal/status"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists the structs that represent tables in the
// database schema, for AutoMigrate.
var DatabaseModels = []interface{}{
	&UnitRow{},
	&SimPerformance{},
}

// UnitRow is the persisted form of a UnitRecord: flat columns plus a
// JSON target and an EPSG:3857 point for map layers reading the store.
type UnitRow struct {
	ID         string         `json:"id" gorm:"primarykey;size:31"`
	Lat        float64        `json:"lat"`
	Lng        float64        `json:"lng"`
	PrevLat    float64        `json:"prevLat"`
	PrevLng    float64        `json:"prevLng"`
	Status     string         `json:"operationalStatus" gorm:"size:2;index:idx_unit_status"`
	Phase      string         `json:"movementPhase" gorm:"size:31"`
	Incident   string         `json:"activeIncidentId" gorm:"size:63"`
	Target     datatypes.JSON `json:"target"`
	Point      geom.Point     `json:"-"` // 3857, WKB via the geometry's inherent Scan/Value
	LastUpdate time.Time      `json:"lastUpdate"`
}

func (*UnitRow) TableName() string {
	return "unit_records"
}

// ToRecord converts a persisted row back to an engine record. A corrupt
// target column degrades to no target rather than failing the load.
func (r UnitRow) ToRecord() UnitRecord {
	rec := UnitRecord{
		ID:           r.ID,
		Position:     Coordinate{Lat: r.Lat, Lng: r.Lng},
		PrevPosition: Coordinate{Lat: r.PrevLat, Lng: r.PrevLng},
		Status:       status.CodeFromWire(r.Status),
		Phase:        status.PhaseFromString(r.Phase),
		Incident:     r.Incident,
		LastUpdate:   r.LastUpdate,
	}
	if len(r.Target) > 0 && string(r.Target) != "null" {
		var t Target
		if err := json.Unmarshal(r.Target, &t); err == nil {
			rec.Target = &t
		}
	}
	return rec
}

// RowFromRecord converts an engine record to its persisted form.
func RowFromRecord(rec UnitRecord) UnitRow {
	row := UnitRow{
		ID:         rec.ID,
		Lat:        rec.Position.Lat,
		Lng:        rec.Position.Lng,
		PrevLat:    rec.PrevPosition.Lat,
		PrevLng:    rec.PrevPosition.Lng,
		Status:     rec.Status.Wire(),
		Phase:      rec.Phase.String(),
		Incident:   rec.Incident,
		Point:      rec.Position.MapPoint(),
		LastUpdate: rec.LastUpdate,
	}
	if rec.Target != nil {
		if b, err := json.Marshal(rec.Target); err == nil {
			row.Target = b
		}
	}
	return row
}

// SimPerformance is the model for engine performance samples.
type SimPerformance struct {
	ID                  uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                time.Time `json:"time" gorm:"index:idx_simperformance_time"`
	TickDurationMs      float32   `json:"tickDurationMs"`
	MovingUnits         uint16    `json:"movingUnits"`
	TrackedUnits        uint16    `json:"trackedUnits"`
	PersistQueueLength  uint16    `json:"persistQueueLength"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*SimPerformance) TableName() string {
	return "sim_performances"
}
