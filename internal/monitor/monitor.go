// Package monitor is the engine's program status service. It collects
// the per-tick performance samples the scheduler emits, enriches them
// with persistence metrics, periodically records them, and renders the
// JSON status the sim:status operator command returns.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/dispatchsim/engine/internal/influx"
	"github.com/dispatchsim/engine/internal/logging"
	"github.com/dispatchsim/engine/internal/model"
	"github.com/dispatchsim/engine/internal/store"
)

// QueueLengthProvider reports pending persistence work.
type QueueLengthProvider interface {
	QueueLength() int
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	DB              *gorm.DB
	LogManager      *logging.SlogManager
	Backend         store.Backend
	Influx          *influx.Manager
	StatusDir       string
	IsDatabaseValid func() bool
}

// Status is the JSON document the sim:status command returns.
type Status struct {
	Time                time.Time `json:"time"`
	Running             bool      `json:"running"`
	LastTick            time.Time `json:"lastTick"`
	TickDurationMs      float32   `json:"tickDurationMs"`
	MovingUnits         uint16    `json:"movingUnits"`
	TrackedUnits        uint16    `json:"trackedUnits"`
	PersistQueueLength  uint16    `json:"persistQueueLength"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}

	latest model.SimPerformance
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// RecordTick receives one sample per scheduler tick, enriches it with
// persistence metrics, and forwards it to Influx. Implements the
// scheduler's PerfRecorder hook.
func (s *Service) RecordTick(sample model.SimPerformance) {
	if q, ok := s.deps.Backend.(QueueLengthProvider); ok {
		sample.PersistQueueLength = uint16(q.QueueLength())
	}
	if w, ok := s.deps.Backend.(store.WriteDurationProvider); ok {
		sample.LastWriteDurationMs = w.GetLastWriteDurationMs()
	}

	s.mu.Lock()
	s.latest = sample
	s.mu.Unlock()

	if s.deps.Influx != nil {
		s.deps.Influx.RecordTick(sample)
	}
}

// ProgramStatus returns the current engine status.
func (s *Service) ProgramStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		Time:                time.Now(),
		Running:             s.isRunning,
		LastTick:            s.latest.Time,
		TickDurationMs:      s.latest.TickDurationMs,
		MovingUnits:         s.latest.MovingUnits,
		TrackedUnits:        s.latest.TrackedUnits,
		PersistQueueLength:  s.latest.PersistQueueLength,
		LastWriteDurationMs: s.latest.LastWriteDurationMs,
	}
}

// ProgramStatusJSON renders the status document for operator commands.
func (s *Service) ProgramStatusJSON() string {
	out, err := json.MarshalIndent(s.ProgramStatus(), "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "%s"}`, err)
	}
	return string(out)
}

// Start starts the status monitor goroutine: once a second it rewrites
// the status file and records the latest sample to the database.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
			if err != nil {
				logger.Error("Error creating status file", "error", err)
			}
		}
		if statusFile != nil {
			defer statusFile.Close()
		}

		ticker := time.NewTicker(1000 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.RLock()
				sample := s.latest
				s.mu.RUnlock()

				if sample.Time.IsZero() {
					continue
				}

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.WriteString(s.ProgramStatusJSON() + "\n")
				}

				if s.deps.DB != nil && s.deps.IsDatabaseValid != nil && s.deps.IsDatabaseValid() {
					row := sample
					if err := s.deps.DB.Create(&row).Error; err != nil {
						logger.Error("Error writing performance sample", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
