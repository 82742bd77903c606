// Package queue provides a generic thread-safe FIFO used to buffer
// unit rows between the tick loop and the persistence writer.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe queue.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear removes all items from the queue.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// Drain returns all items in insertion order and empties the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}
