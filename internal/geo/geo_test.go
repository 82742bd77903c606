package geo

import (
	"math"
	"testing"
	"time"

	"github.com/dispatchsim/engine/internal/model"
)

var (
	station  = model.Coordinate{Lat: 52.00, Lng: 4.40}
	incident = model.Coordinate{Lat: 52.05, Lng: 4.45}
)

func TestDistance_KnownPair(t *testing.T) {
	// ~6.4 km between the scenario station and incident.
	d := Distance(station, incident)
	if d < 6.0 || d > 7.0 {
		t.Errorf("Distance = %f km, want ~6.4", d)
	}
}

func TestDistance_ZeroForSamePoint(t *testing.T) {
	if d := Distance(station, station); d != 0 {
		t.Errorf("Distance to self = %f, want 0", d)
	}
}

func TestDistance_Symmetric(t *testing.T) {
	ab := Distance(station, incident)
	ba := Distance(incident, station)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("Distance not symmetric: %f vs %f", ab, ba)
	}
}

func TestBearing_Northeast(t *testing.T) {
	b := Bearing(station, incident)
	// Target is north-east of the station: bearing in (0, pi/2).
	if b <= 0 || b >= math.Pi/2 {
		t.Errorf("Bearing = %f rad, want within (0, pi/2)", b)
	}
}

func TestStep_AdvancesTowardTarget(t *testing.T) {
	before := Distance(station, incident)
	pos, arrived := Step(station, incident, 80, 100*time.Millisecond)
	if arrived {
		t.Fatal("must not arrive after one 100ms step at 80 km/h over 6km")
	}
	after := Distance(pos, incident)
	if after >= before {
		t.Errorf("distance did not shrink: before=%f after=%f", before, after)
	}
	// 80 km/h for 100ms is ~2.2 m.
	step := Distance(station, pos)
	if step < 0.0020 || step > 0.0025 {
		t.Errorf("step length = %f km, want ~0.00222", step)
	}
}

func TestStep_SnapsOnFinalStep(t *testing.T) {
	near := model.Coordinate{Lat: 52.049999, Lng: 4.449999}
	pos, arrived := Step(near, incident, 80, 100*time.Millisecond)
	if !arrived {
		t.Fatal("expected arrival when remaining distance is within the step")
	}
	if pos != incident {
		t.Errorf("arrival must snap exactly to target, got %+v", pos)
	}
}

func TestStep_DegenerateCoordinatesArriveImmediately(t *testing.T) {
	pos, arrived := Step(station, station, 80, 100*time.Millisecond)
	if !arrived || pos != station {
		t.Errorf("identical coordinates must short-circuit to arrival, got %+v %v", pos, arrived)
	}
}

func TestStep_UnderThresholdArrivesWithoutBearingMath(t *testing.T) {
	// ~5m away, below the 10m threshold.
	nearby := model.Coordinate{Lat: 52.000045, Lng: 4.4}
	pos, arrived := Step(nearby, station, 80, time.Millisecond)
	if !arrived || pos != station {
		t.Errorf("sub-threshold distance must snap to target, got %+v %v", pos, arrived)
	}
}

func TestStep_ZeroSpeedDoesNotMove(t *testing.T) {
	pos, arrived := Step(station, incident, 0, 100*time.Millisecond)
	if arrived {
		t.Error("zero speed must not arrive")
	}
	if pos != station {
		t.Errorf("zero speed must not move, got %+v", pos)
	}
}

func TestStep_ConvergesInBoundedTicks(t *testing.T) {
	// 6.4 km at 80 km/h is 288s of travel; with 1s ticks allow slack.
	cur := station
	prev := Distance(cur, incident)
	for i := 0; i < 400; i++ {
		var arrived bool
		cur, arrived = Step(cur, incident, 80, time.Second)
		d := Distance(cur, incident)
		if d > prev {
			t.Fatalf("tick %d: distance grew from %f to %f", i, prev, d)
		}
		prev = d
		if arrived {
			if cur != incident {
				t.Fatal("arrival did not snap to target")
			}
			return
		}
	}
	t.Fatal("did not arrive within bounded tick count")
}
