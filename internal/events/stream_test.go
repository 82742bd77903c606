package events

import (
	"testing"
	"time"

	"github.com/dispatchsim/engine/internal/model"
	"github.com/dispatchsim/engine/internal/status"
)

func TestStream_PostAndGet(t *testing.T) {
	s := NewStream(nil)
	sub := s.Subscribe()

	s.Post(TickCompleted{Timestamp: time.Now()})
	s.Post(UnitStatusChanged{UnitID: "17134", From: status.AtStation, To: status.Assigned})

	got := sub.Get()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Kind() != KindTickCompleted {
		t.Errorf("first event kind = %s", got[0].Kind())
	}
	if got[1].Kind() != KindUnitStatusChanged {
		t.Errorf("second event kind = %s", got[1].Kind())
	}

	if again := sub.Get(); len(again) != 0 {
		t.Errorf("second Get should be empty, got %d events", len(again))
	}
}

func TestStream_DropsEventsWithoutSubscribers(t *testing.T) {
	s := NewStream(nil)
	s.Post(TickCompleted{Timestamp: time.Now()})

	sub := s.Subscribe()
	if got := sub.Get(); len(got) != 0 {
		t.Errorf("subscriber must not see events posted before Subscribe, got %d", len(got))
	}
}

func TestStream_IndependentOffsets(t *testing.T) {
	s := NewStream(nil)
	a := s.Subscribe()
	b := s.Subscribe()

	s.Post(UnitArrival{UnitID: "17134", IncidentID: "inc-1"})
	if got := a.Get(); len(got) != 1 {
		t.Fatalf("a expected 1 event, got %d", len(got))
	}

	s.Post(UnitArrivedAtStation{UnitID: "17134", Position: model.Coordinate{Lat: 52, Lng: 4.4}})

	if got := a.Get(); len(got) != 1 {
		t.Errorf("a expected 1 new event, got %d", len(got))
	}
	if got := b.Get(); len(got) != 2 {
		t.Errorf("b expected both events, got %d", len(got))
	}
}

func TestStream_UnsubscribeStopsDelivery(t *testing.T) {
	s := NewStream(nil)
	sub := s.Subscribe()
	sub.Unsubscribe()

	s.Post(TickCompleted{Timestamp: time.Now()})
	if got := sub.Get(); got != nil {
		t.Errorf("Get after Unsubscribe should return nil, got %v", got)
	}
}

func TestStream_CompactsConsumedEvents(t *testing.T) {
	s := NewStream(nil)
	sub := s.Subscribe()
	s.lastCompact = time.Now().Add(-2 * time.Second)

	for i := 0; i < 10; i++ {
		s.Post(TickCompleted{Timestamp: time.Now()})
	}
	sub.Get()

	s.mu.Lock()
	n := len(s.events)
	off := sub.offset
	s.mu.Unlock()
	if n != 0 || off != 0 {
		t.Errorf("expected compacted stream, have %d events, offset %d", n, off)
	}

	// Events posted after compaction are still delivered.
	s.Post(TickCompleted{Timestamp: time.Now()})
	if got := sub.Get(); len(got) != 1 {
		t.Errorf("post-compact delivery broken, got %d events", len(got))
	}
}
