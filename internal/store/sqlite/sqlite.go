// Package sqlitestore implements the store.Backend interface using an
// in-memory SQLite database with periodic disk dumps via VACUUM INTO.
// Reads are served from a live map guarded by a RWMutex; writes are
// mirrored into a queue that a background writer drains into the DB in
// batches, so the tick loop never blocks on SQL.
package sqlitestore

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dispatchsim/engine/internal/config"
	"github.com/dispatchsim/engine/internal/database"
	"github.com/dispatchsim/engine/internal/logging"
	"github.com/dispatchsim/engine/internal/model"
	"github.com/dispatchsim/engine/internal/queue"
)

// flushInterval is how often the background writer drains the persist queue.
const flushInterval = 2 * time.Second

// Backend implements store.Backend on an in-memory SQLite database.
type Backend struct {
	cfg config.SQLiteConfig
	log *logging.SlogManager

	db *gorm.DB

	mu    sync.RWMutex
	units map[string]model.UnitRecord

	persist  *queue.Queue[model.UnitRow]
	stopChan chan struct{}
	wg       sync.WaitGroup

	lastWriteMs atomic.Uint32 // float32 bits
}

// New creates a SQLite store backend. If db is nil, Init creates an
// in-memory database of its own.
func New(cfg config.SQLiteConfig, db *gorm.DB, logManager *logging.SlogManager) *Backend {
	return &Backend{
		cfg:     cfg,
		log:     logManager,
		db:      db,
		units:   make(map[string]model.UnitRecord),
		persist: queue.New[model.UnitRow](),
	}
}

// Init opens the database if none was injected, migrates the schema,
// and starts the writer and dump goroutines.
func (b *Backend) Init() error {
	if b.db == nil {
		db, err := database.GetSqliteDBStandalone("")
		if err != nil {
			return fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
		}
		b.db = db
	}

	if err := b.db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})

	b.wg.Add(1)
	go b.writerLoop()

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the background goroutines, flushes pending rows, and
// writes a final disk dump.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
	}

	b.flush()

	if b.cfg.DumpPath != "" {
		if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
			return fmt.Errorf("final dump failed: %w", err)
		}
	}
	return nil
}

// Get returns a copy of the record for id.
func (b *Backend) Get(id string) (model.UnitRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.units[id]
	if !ok {
		return model.UnitRecord{}, false
	}
	return rec.Clone(), true
}

// Set stores a copy of rec and queues it for persistence.
func (b *Backend) Set(rec model.UnitRecord) {
	b.mu.Lock()
	b.units[rec.ID] = rec.Clone()
	b.mu.Unlock()

	b.persist.Push(model.RowFromRecord(rec))
}

// All returns copies of every record, sorted by unit id.
func (b *Backend) All() []model.UnitRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	recs := make([]model.UnitRecord, 0, len(b.units))
	for _, rec := range b.units {
		recs = append(recs, rec.Clone())
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

// SaveAll applies a batch of records and queues them for persistence.
func (b *Backend) SaveAll(recs []model.UnitRecord) error {
	rows := make([]model.UnitRow, 0, len(recs))

	b.mu.Lock()
	for _, rec := range recs {
		b.units[rec.ID] = rec.Clone()
		rows = append(rows, model.RowFromRecord(rec))
	}
	b.mu.Unlock()

	b.persist.Push(rows...)
	return nil
}

// LoadAll reads all persisted rows, repopulates the live map, and
// returns the records. An empty table yields no records and no error.
func (b *Backend) LoadAll() ([]model.UnitRecord, error) {
	var rows []model.UnitRow
	if err := b.db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load unit rows: %w", err)
	}

	recs := make([]model.UnitRecord, 0, len(rows))
	b.mu.Lock()
	for _, row := range rows {
		rec := row.ToRecord()
		b.units[rec.ID] = rec
		recs = append(recs, rec.Clone())
	}
	b.mu.Unlock()

	return recs, nil
}

// GetLastWriteDurationMs reports the duration of the last queue flush.
func (b *Backend) GetLastWriteDurationMs() float32 {
	return math.Float32frombits(b.lastWriteMs.Load())
}

// QueueLength reports how many rows are waiting for the writer.
func (b *Backend) QueueLength() int {
	return b.persist.Len()
}

// writerLoop periodically drains the persist queue into the database.
func (b *Backend) writerLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

// flush upserts all queued rows. Rows are deduplicated by unit id,
// keeping the newest LastUpdate, so a unit updated many times between
// flushes costs one write. On failure the rows are requeued for the
// next cycle; dedup by timestamp rather than queue position means a
// requeued stale row can never shadow a fresher write that was queued
// while the failing flush was in flight.
func (b *Backend) flush() {
	rows := b.persist.Drain()
	if len(rows) == 0 {
		return
	}

	latest := make(map[string]int, len(rows))
	for i, row := range rows {
		if j, ok := latest[row.ID]; ok && rows[j].LastUpdate.After(row.LastUpdate) {
			continue
		}
		latest[row.ID] = i
	}
	batch := make([]model.UnitRow, 0, len(latest))
	for i, row := range rows {
		if latest[row.ID] == i {
			batch = append(batch, row)
		}
	}

	start := time.Now()
	err := b.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&batch).Error
	if err != nil {
		b.logger().Error("Failed to flush unit rows", "error", err, "rows", len(batch))
		b.persist.Push(rows...)
		return
	}
	b.lastWriteMs.Store(math.Float32bits(float32(time.Since(start).Seconds() * 1000)))
}

// dumpLoop periodically dumps the in-memory database to disk.
// VACUUM INTO is a point-in-time snapshot, so writes keep flowing.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
				b.logger().Error("Failed to dump DB to disk", "error", err)
			} else {
				b.logger().Debug("Dumped DB to disk", "duration", time.Since(start))
			}
		}
	}
}

func (b *Backend) logger() *slog.Logger {
	if b.log != nil {
		return b.log.Logger()
	}
	return slog.Default()
}
