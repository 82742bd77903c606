package events

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Stream is the fan-out event bus. Posting appends to a shared slice;
// each subscription tracks its own read offset and drains with Get.
// Storage for events every subscriber has seen is reclaimed
// periodically so memory use doesn't grow without bound.
type Stream struct {
	mu            sync.Mutex
	events        []Event
	lastCompact   time.Time
	subscriptions map[*Subscription]struct{}
	logger        *slog.Logger
}

// Subscription is one consumer's cursor into the stream.
type Subscription struct {
	stream *Stream
	// offset into the stream's event slice up to which this subscriber
	// has consumed events.
	offset int
	source string
}

// NewStream creates an empty event stream.
func NewStream(logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		subscriptions: make(map[*Subscription]struct{}),
		logger:        logger,
	}
}

// Subscribe registers a new subscriber. Events posted before
// subscription are never reported to it.
func (s *Stream) Subscribe() *Subscription {
	// Record the subscriber's callsite to debug subscribers that stop
	// consuming events.
	_, fn, line, _ := runtime.Caller(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{
		stream: s,
		offset: len(s.events),
		source: fmt.Sprintf("%s:%d", fn, line),
	}
	s.subscriptions[sub] = struct{}{}
	return sub
}

// Post adds an event to the stream. Ignored when no one is subscribed.
func (s *Stream) Post(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.subscriptions) == 0 {
		return
	}
	s.events = append(s.events, ev)
}

// Get returns the events posted since the subscription's last Get.
func (sub *Subscription) Get() []Event {
	s := sub.stream
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub]; !ok {
		s.logger.Error("Get on unregistered subscription", "source", sub.source)
		return nil
	}

	out := make([]Event, len(s.events)-sub.offset)
	copy(out, s.events[sub.offset:])
	sub.offset = len(s.events)

	if time.Since(s.lastCompact) > time.Second {
		s.compact()
		s.lastCompact = time.Now()
	}
	return out
}

// Unsubscribe removes the subscriber; its unread events are dropped.
func (sub *Subscription) Unsubscribe() {
	s := sub.stream
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub]; !ok {
		s.logger.Error("Unsubscribe on unregistered subscription", "source", sub.source)
		return
	}
	delete(s.subscriptions, sub)
	sub.stream = nil
}

// compact drops events all subscribers have consumed. Caller holds mu.
func (s *Stream) compact() {
	minOffset := len(s.events)
	for sub := range s.subscriptions {
		if sub.offset < minOffset {
			minOffset = sub.offset
		}
	}
	if minOffset == 0 {
		return
	}
	n := copy(s.events, s.events[minOffset:])
	s.events = s.events[:n]
	for sub := range s.subscriptions {
		sub.offset -= minOffset
	}
}
