// Package watcher reconciles the engine against the external incident
// feed. It runs on its own, slower period and only issues commands
// through the scheduler's public API; it never mutates unit records.
package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dispatchsim/engine/internal/feed"
	"github.com/dispatchsim/engine/internal/model"
	"github.com/dispatchsim/engine/internal/station"
	"github.com/dispatchsim/engine/internal/status"
)

// Engine is the slice of the scheduler's command API the watcher uses.
type Engine interface {
	AssignToIncident(unitID, incidentID string, coord model.Coordinate)
	ReleaseFromIncident(unitID string)
	RetryDeferredReturns()
	Snapshot() []model.UnitRecord
}

// Dependencies holds everything the watcher needs. Stations and
// Resolver are optional together; without them reference data is
// static.
type Dependencies struct {
	Engine    Engine
	Incidents feed.IncidentSource
	Stations  feed.StationSource
	Resolver  *station.Resolver
	Logger    *slog.Logger
}

// Watcher polls the incident feed and turns assignments into movement.
type Watcher struct {
	deps     Dependencies
	interval time.Duration
	log      *slog.Logger

	// processed tracks (incident, unit) pairs already acted on. Entries
	// drop out when the pair leaves the feed, so a re-listed assignment
	// is treated as new.
	processed map[string]struct{}

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a watcher polling at the given interval.
func New(interval time.Duration, deps Dependencies) *Watcher {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		deps:      deps,
		interval:  interval,
		log:       log,
		processed: make(map[string]struct{}),
	}
}

// Start launches the poll loop with an immediate first pass.
func (w *Watcher) Start() {
	w.stopChan = make(chan struct{})
	w.wg.Add(1)
	go w.run()
	w.log.Info("Watcher started", "interval", w.interval)
}

// Stop cancels future passes.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	w.log.Info("Watcher stopped")
}

func (w *Watcher) run() {
	defer w.wg.Done()

	w.Pass(context.Background())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.Pass(context.Background())
		}
	}
}

// Pass runs one reconciliation: refresh reference data, act on new
// assignments, release units whose incident closed or left the feed,
// and retry deferred return trips. A feed failure skips the pass;
// earlier commands stand because all commands are idempotent.
func (w *Watcher) Pass(ctx context.Context) {
	w.refreshReferenceData(ctx)

	incidents, err := w.deps.Incidents.List(ctx)
	if err != nil {
		w.log.Warn("Incident feed poll failed, retrying next pass", "error", err)
		return
	}

	byID := make(map[string]model.Incident, len(incidents))
	seen := make(map[string]struct{})

	for _, inc := range incidents {
		byID[inc.ID] = inc
		for _, unit := range inc.Units {
			unitID := model.NormalizeCallSign(unit)
			key := inc.ID + "|" + unitID
			seen[key] = struct{}{}

			if inc.Closed {
				continue
			}
			if _, done := w.processed[key]; done {
				continue
			}
			w.deps.Engine.AssignToIncident(unitID, inc.ID, inc.Location)
			w.processed[key] = struct{}{}
		}
	}

	// Assignments that left the feed may legitimately reappear later.
	for key := range w.processed {
		if _, ok := seen[key]; !ok {
			delete(w.processed, key)
		}
	}

	for _, rec := range w.deps.Engine.Snapshot() {
		if rec.Status != status.OnScene {
			continue
		}
		inc, present := byID[rec.Incident]
		if !present || inc.Closed {
			w.deps.Engine.ReleaseFromIncident(rec.ID)
		}
	}

	w.deps.Engine.RetryDeferredReturns()
}

func (w *Watcher) refreshReferenceData(ctx context.Context) {
	if w.deps.Stations == nil || w.deps.Resolver == nil {
		return
	}

	if stations, err := w.deps.Stations.Stations(ctx); err != nil {
		w.log.Warn("Station feed poll failed", "error", err)
	} else {
		w.deps.Resolver.SetStations(stations)
	}

	if profiles, err := w.deps.Stations.Profiles(ctx); err != nil {
		w.log.Warn("Roster feed poll failed", "error", err)
	} else {
		w.deps.Resolver.SetProfiles(profiles)
	}
}
