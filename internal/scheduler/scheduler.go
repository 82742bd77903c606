// Package scheduler runs the movement tick loop and exposes the command
// API all collaborators mutate unit state through. Each tick advances
// every targeted unit along its route, drives the status machine on
// movement start and arrival, and batch-persists whatever changed.
//
// The scheduler is the sole writer of unit records. The watcher and the
// operator command dispatcher only call the public commands here, so
// there is never a write/write race between the two timers.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dispatchsim/engine/internal/config"
	"github.com/dispatchsim/engine/internal/events"
	"github.com/dispatchsim/engine/internal/geo"
	"github.com/dispatchsim/engine/internal/model"
	"github.com/dispatchsim/engine/internal/station"
	"github.com/dispatchsim/engine/internal/status"
	"github.com/dispatchsim/engine/internal/store"
)

// StatusSync mirrors status transitions to an external dispatch board.
// Implementations must not block the tick; failures are logged by the
// implementation and never abort a transition.
type StatusSync interface {
	SyncStatus(ctx context.Context, unitID string, code status.Code) error
}

// PerfRecorder receives one performance sample per tick.
type PerfRecorder interface {
	RecordTick(sample model.SimPerformance)
}

// Dependencies holds everything the scheduler needs.
type Dependencies struct {
	Store    store.Backend
	Stream   *events.Stream
	Resolver *station.Resolver
	Sync     StatusSync   // optional
	Perf     PerfRecorder // optional
	Logger   *slog.Logger
}

// Scheduler owns all unit record mutation.
type Scheduler struct {
	deps Dependencies
	cfg  config.SimConfig
	log  *slog.Logger

	// mu serializes ticks and commands; ticks run to completion before
	// the next one is admitted.
	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool

	ticksRun    metric.Int64Counter
	transitions metric.Int64Counter
	rejected    metric.Int64Counter
}

// New creates a scheduler. Uses the global OTel meter for metrics
// (no-op if not configured).
func New(cfg config.SimConfig, deps Dependencies) (*Scheduler, error) {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		deps: deps,
		cfg:  cfg,
		log:  log,
	}

	m := meter()
	var err error

	s.ticksRun, err = m.Int64Counter(
		"scheduler.ticks.run",
		metric.WithDescription("Total movement ticks executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	s.transitions, err = m.Int64Counter(
		"scheduler.transitions.applied",
		metric.WithDescription("Total status transitions applied"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	s.rejected, err = m.Int64Counter(
		"scheduler.commands.rejected",
		metric.WithDescription("Total commands rejected as invalid transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	return s, nil
}

// Start launches the tick loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})

	s.wg.Add(1)
	go s.run()

	s.log.Info("Scheduler started", "tickInterval", s.cfg.TickInterval, "speedKmh", s.cfg.SpeedKmh)
}

// Stop cancels future ticks. Completed ticks are never rolled back.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick advances every targeted unit once. Exposed so the composition
// root and tests can drive the loop with a synthetic clock.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	recs := s.deps.Store.All()

	var changed []model.UnitRecord
	moving := 0

	for _, rec := range recs {
		if rec.Target == nil {
			continue
		}

		// Movement-started transitions run before interpolation so a
		// unit that just received a target changes status in the tick it
		// begins moving, not one tick late.
		if rec.Phase == status.PhaseIdle {
			if s.transition(&rec, status.TriggerMovementStarted) {
				s.deps.Stream.Post(events.UnitMovementStarted{UnitID: rec.ID, Target: *rec.Target})
			}
		}

		if !rec.Phase.Moving() {
			continue
		}
		moving++

		elapsed := now.Sub(rec.LastUpdate)
		if rec.LastUpdate.IsZero() || elapsed <= 0 || elapsed > 10*s.cfg.TickInterval {
			elapsed = s.cfg.TickInterval
		}

		pos, arrived := geo.Step(rec.Position, rec.Target.Coordinate, s.cfg.SpeedKmh, elapsed)
		rec.PrevPosition = rec.Position
		rec.Position = pos
		rec.LastUpdate = now

		if arrived {
			s.arrive(&rec)
		}
		changed = append(changed, rec)
	}

	if len(changed) > 0 {
		if err := s.deps.Store.SaveAll(changed); err != nil {
			s.log.Error("Failed to persist tick batch", "error", err, "records", len(changed))
		}
		s.deps.Stream.Post(events.UnitPositionsUpdated{Records: changed})
	}
	s.deps.Stream.Post(events.TickCompleted{Timestamp: now})

	s.ticksRun.Add(context.Background(), 1)
	if s.deps.Perf != nil {
		s.deps.Perf.RecordTick(model.SimPerformance{
			Time:           now,
			TickDurationMs: float32(time.Since(start).Seconds() * 1000),
			MovingUnits:    uint16(moving),
			TrackedUnits:   uint16(len(recs)),
		})
	}
}

// arrive clears the target and runs the arrival transition matching its
// kind. Arrival events fire exactly once per journey because the target
// is cleared in the same mutation.
func (s *Scheduler) arrive(rec *model.UnitRecord) {
	target := *rec.Target
	rec.Target = nil

	switch target.Kind {
	case model.TargetIncident:
		if s.transition(rec, status.TriggerIncidentArrival) {
			s.deps.Stream.Post(events.UnitArrival{
				UnitID:     rec.ID,
				Position:   rec.Position,
				IncidentID: rec.Incident,
			})
		}
	case model.TargetStation:
		if s.transition(rec, status.TriggerStationArrival) {
			rec.Incident = ""
			s.deps.Stream.Post(events.UnitArrivedAtStation{
				UnitID:   rec.ID,
				Position: rec.Position,
			})
		}
	}
}

// AssignToIncident binds a unit to an incident and targets its
// coordinates. Re-assigning the same incident is a no-op; assigning a
// different incident while bound is rejected, a unit serves one
// incident at a time.
func (s *Scheduler) AssignToIncident(unitID, incidentID string, coord model.Coordinate) {
	unitID = model.NormalizeCallSign(unitID)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.ensureRecord(unitID)

	if rec.Incident == incidentID {
		return
	}
	if rec.Incident != "" {
		s.log.Warn("Rejected cross-assignment, unit already bound",
			"unit", unitID, "incident", incidentID, "boundTo", rec.Incident)
		s.rejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", "assign")))
		return
	}

	if !s.transition(&rec, status.TriggerAssign) {
		return
	}
	rec.Incident = incidentID
	rec.Target = &model.Target{Coordinate: coord, Kind: model.TargetIncident, RefID: incidentID}
	s.deps.Store.Set(rec)
}

// ReleaseFromIncident frees an on-scene unit and targets its home
// station. When no station resolves, the unit stays released with no
// target; the watcher retries resolution on a later pass.
func (s *Scheduler) ReleaseFromIncident(unitID string) {
	unitID = model.NormalizeCallSign(unitID)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.deps.Store.Get(unitID)
	if !ok {
		s.log.Warn("Release for unknown unit", "unit", unitID)
		return
	}

	if !s.transition(&rec, status.TriggerRelease) {
		return
	}

	if home, err := s.deps.Resolver.Resolve(unitID); err != nil {
		s.log.Warn("Return trip deferred, no station resolved", "unit", unitID, "error", err)
	} else {
		rec.Target = &model.Target{Coordinate: home.Location, Kind: model.TargetStation, RefID: home.ID}
	}
	s.deps.Store.Set(rec)
}

// StartMovement targets a unit at arbitrary coordinates. Incident
// targets run the full assignment validation; station targets are only
// accepted for released units waiting on a deferred return trip.
func (s *Scheduler) StartMovement(unitID string, coord model.Coordinate, kind model.TargetKind, refID string) {
	switch kind {
	case model.TargetIncident:
		s.AssignToIncident(unitID, refID, coord)
	case model.TargetStation:
		unitID = model.NormalizeCallSign(unitID)

		s.mu.Lock()
		defer s.mu.Unlock()

		rec, ok := s.deps.Store.Get(unitID)
		if !ok {
			s.log.Warn("Movement command for unknown unit", "unit", unitID)
			return
		}
		if rec.Status != status.Released || rec.Target != nil {
			s.log.Warn("Rejected station movement, unit is not awaiting return",
				"unit", unitID, "status", rec.Status)
			s.rejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", "move")))
			return
		}
		rec.Target = &model.Target{Coordinate: coord, Kind: model.TargetStation, RefID: refID}
		s.deps.Store.Set(rec)
	default:
		s.log.Warn("Movement command with unknown target kind", "unit", unitID, "kind", kind)
	}
}

// RetryDeferredReturns re-resolves stations for released units whose
// return trip was deferred. Called by the watcher each pass.
func (s *Scheduler) RetryDeferredReturns() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.deps.Store.All() {
		if rec.Status != status.Released || rec.Target != nil {
			continue
		}
		home, err := s.deps.Resolver.Resolve(rec.ID)
		if err != nil {
			continue
		}
		rec.Target = &model.Target{Coordinate: home.Location, Kind: model.TargetStation, RefID: home.ID}
		s.deps.Store.Set(rec)
		s.log.Info("Deferred return trip unblocked", "unit", rec.ID, "station", home.ID)
	}
}

// Snapshot returns a copy of every tracked unit record.
func (s *Scheduler) Snapshot() []model.UnitRecord {
	return s.deps.Store.All()
}

// transition advances the status machine for rec, emitting the status
// event and mirroring the change to the board. Returns false for edges
// not in the table, which are logged no-ops.
func (s *Scheduler) transition(rec *model.UnitRecord, trig status.Trigger) bool {
	to, ok := status.Next(rec.Status, trig)
	if !ok {
		s.log.Warn("Invalid transition requested",
			"unit", rec.ID, "status", rec.Status, "trigger", trig)
		s.rejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("trigger", trig.String())))
		return false
	}

	from := rec.Status
	rec.Status = to
	rec.Phase = status.PhaseFor(to)

	s.deps.Stream.Post(events.UnitStatusChanged{
		UnitID:     rec.ID,
		From:       from,
		To:         to,
		IncidentID: rec.Incident,
		Position:   rec.Position,
	})
	s.transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("to", to.String())))

	if s.deps.Sync != nil {
		if err := s.deps.Sync.SyncStatus(context.Background(), rec.ID, to); err != nil {
			s.log.Warn("Board status sync failed", "unit", rec.ID, "status", to, "error", err)
		}
	}
	return true
}

// ensureRecord returns the record for unitID, lazily creating it at the
// resolved home station as at-station. Creation with no resolvable
// station starts the unit at the null island origin and logs it.
func (s *Scheduler) ensureRecord(unitID string) model.UnitRecord {
	if rec, ok := s.deps.Store.Get(unitID); ok {
		return rec
	}

	rec := model.UnitRecord{
		ID:         unitID,
		Status:     status.AtStation,
		Phase:      status.PhaseIdle,
		LastUpdate: time.Now(),
	}
	if home, err := s.deps.Resolver.Resolve(unitID); err != nil {
		s.log.Warn("New unit with no resolvable station", "unit", unitID, "error", err)
	} else {
		rec.Position = home.Location
		rec.PrevPosition = home.Location
	}
	s.deps.Store.Set(rec)
	return rec
}
