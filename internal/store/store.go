// Package store defines the position store: the durable mapping from
// normalized unit id to its current record, and the interface its
// pluggable backends implement.
//
// The store is the only shared mutable resource in the engine. All
// mutation flows through the movement scheduler and its command API;
// collaborators read fully-formed record copies and never observe a
// partial update.
package store

import "github.com/dispatchsim/engine/internal/model"

// Backend is the interface all position store implementations satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Live state
	Get(id string) (model.UnitRecord, bool)
	Set(rec model.UnitRecord)
	All() []model.UnitRecord

	// Bulk persistence
	SaveAll(recs []model.UnitRecord) error
	LoadAll() ([]model.UnitRecord, error)
}

// WriteDurationProvider is an optional interface backends implement to
// expose their last persistence cycle duration for monitoring.
type WriteDurationProvider interface {
	GetLastWriteDurationMs() float32
}
