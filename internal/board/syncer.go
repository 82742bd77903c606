package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dispatchsim/engine/internal/channel"
	"github.com/dispatchsim/engine/internal/status"
)

// syncQueueSize bounds the number of unmirrored transitions. The board
// is best-effort: beyond this the oldest wait and new ones are dropped.
const syncQueueSize = 256

// syncItem is one queued transition.
type syncItem struct {
	unitID string
	code   status.Code
}

// Syncer mirrors status transitions to the board from a background
// worker so the tick loop never blocks on HTTP. It implements the
// scheduler's StatusSync hook.
type Syncer struct {
	client *Client
	log    *slog.Logger

	queue channel.Channel[syncItem]
	wg    sync.WaitGroup
}

// NewSyncer creates a syncer over the given client.
func NewSyncer(client *Client, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{
		client: client,
		log:    log,
		queue:  channel.New[syncItem](syncQueueSize),
	}
}

// Start launches the delivery worker.
func (s *Syncer) Start() {
	s.wg.Add(1)
	go s.worker()
}

// Stop closes the queue and waits for queued updates to deliver.
// SyncStatus must not be called after Stop.
func (s *Syncer) Stop() {
	s.queue.Close()
	s.wg.Wait()
}

// SyncStatus queues one transition for delivery. A full queue drops the
// update and reports it; the engine treats that as any other board
// failure.
func (s *Syncer) SyncStatus(_ context.Context, unitID string, code status.Code) error {
	if !s.queue.TrySend(syncItem{unitID: unitID, code: code}) {
		return fmt.Errorf("board sync queue full, dropped %s for %s", code, unitID)
	}
	return nil
}

// QueueLength reports the number of undelivered updates.
func (s *Syncer) QueueLength() int {
	return s.queue.Len()
}

func (s *Syncer) worker() {
	defer s.wg.Done()

	for item := range s.queue.Receive() {
		if err := s.client.PostStatus(context.Background(), item.unitID, item.code); err != nil {
			s.log.Warn("Board status delivery failed",
				"unit", item.unitID, "status", item.code, "error", err)
		}
	}
}
