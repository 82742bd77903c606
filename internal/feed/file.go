package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dispatchsim/engine/internal/model"
)

// IncidentFile reads incidents from a JSON array on disk. The file is
// re-parsed only when its mtime changes between polls, so scenario
// files can be edited while a session runs.
type IncidentFile struct {
	path string

	mu     sync.Mutex
	mtime  time.Time
	cached []model.Incident
}

// NewIncidentFile creates a file-backed incident source.
func NewIncidentFile(path string) *IncidentFile {
	return &IncidentFile{path: path}
}

// List returns the incidents currently in the file.
func (f *IncidentFile) List(_ context.Context) ([]model.Incident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("stat incident file: %w", err)
	}
	if info.ModTime().Equal(f.mtime) {
		return f.cached, nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read incident file: %w", err)
	}

	var incidents []model.Incident
	if err := json.Unmarshal(raw, &incidents); err != nil {
		return nil, fmt.Errorf("parse incident file %s: %w", f.path, err)
	}

	f.mtime = info.ModTime()
	f.cached = incidents
	return incidents, nil
}

// stationFileDoc is the on-disk shape of the reference data file.
type stationFileDoc struct {
	Stations []model.Station     `json:"stations"`
	Units    []model.UnitProfile `json:"units"`
}

// StationFile reads station and roster reference data from one JSON
// document, with the same mtime-based cache as IncidentFile.
type StationFile struct {
	path string

	mu    sync.Mutex
	mtime time.Time
	doc   stationFileDoc
}

// NewStationFile creates a file-backed station source.
func NewStationFile(path string) *StationFile {
	return &StationFile{path: path}
}

func (f *StationFile) load() (stationFileDoc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		return stationFileDoc{}, fmt.Errorf("stat station file: %w", err)
	}
	if info.ModTime().Equal(f.mtime) {
		return f.doc, nil
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return stationFileDoc{}, fmt.Errorf("read station file: %w", err)
	}

	var doc stationFileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return stationFileDoc{}, fmt.Errorf("parse station file %s: %w", f.path, err)
	}

	f.mtime = info.ModTime()
	f.doc = doc
	return doc, nil
}

// Stations returns the station reference list.
func (f *StationFile) Stations(_ context.Context) ([]model.Station, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return doc.Stations, nil
}

// Profiles returns the unit roster.
func (f *StationFile) Profiles(_ context.Context) ([]model.UnitProfile, error) {
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	return doc.Units, nil
}
