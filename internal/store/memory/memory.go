// Package memory implements the store.Backend interface with an
// in-process map and JSON snapshot persistence.
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dispatchsim/engine/internal/config"
	"github.com/dispatchsim/engine/internal/model"
)

// Backend stores unit records in memory and snapshots them to JSON.
type Backend struct {
	cfg config.MemoryConfig

	mu    sync.RWMutex
	units map[string]model.UnitRecord
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		units: make(map[string]model.UnitRecord),
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close flushes a final snapshot.
func (b *Backend) Close() error {
	b.mu.RLock()
	recs := b.snapshotLocked()
	b.mu.RUnlock()
	return b.writeSnapshot(recs)
}

// Get looks up a unit record by normalized id.
func (b *Backend) Get(id string) (model.UnitRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.units[id]
	if !ok {
		return model.UnitRecord{}, false
	}
	return rec.Clone(), true
}

// Set stores a unit record, replacing any previous state atomically.
func (b *Backend) Set(rec model.UnitRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.units[rec.ID] = rec.Clone()
}

// All returns copies of every tracked record, ordered by id.
func (b *Backend) All() []model.UnitRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Backend) snapshotLocked() []model.UnitRecord {
	recs := make([]model.UnitRecord, 0, len(b.units))
	for _, rec := range b.units {
		recs = append(recs, rec.Clone())
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

// SaveAll applies the changed records and writes the snapshot file.
func (b *Backend) SaveAll(recs []model.UnitRecord) error {
	b.mu.Lock()
	for _, rec := range recs {
		b.units[rec.ID] = rec.Clone()
	}
	all := b.snapshotLocked()
	b.mu.Unlock()

	return b.writeSnapshot(all)
}

// LoadAll reads the snapshot file and fills the live map. A missing or
// malformed snapshot is an empty store, never a startup failure.
func (b *Backend) LoadAll() ([]model.UnitRecord, error) {
	if b.cfg.SnapshotPath == "" {
		return nil, nil
	}

	f, err := os.Open(b.cfg.SnapshotPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, nil
	}
	defer f.Close()

	var r io.Reader = f
	if b.cfg.CompressOutput || strings.HasSuffix(b.cfg.SnapshotPath, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil
		}
		defer gz.Close()
		r = gz
	}

	var recs []model.UnitRecord
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, nil
	}

	b.mu.Lock()
	for _, rec := range recs {
		b.units[rec.ID] = rec.Clone()
	}
	b.mu.Unlock()
	return recs, nil
}

func (b *Backend) writeSnapshot(recs []model.UnitRecord) error {
	if b.cfg.SnapshotPath == "" {
		return nil
	}

	f, err := os.Create(b.cfg.SnapshotPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	if b.cfg.CompressOutput || strings.HasSuffix(b.cfg.SnapshotPath, ".gz") {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}
