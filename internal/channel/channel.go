// Package channel provides generic channel interfaces for decoupled
// communication between the engine and its background workers.
package channel

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	TrySend(T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// New creates a new buffered channel with the given size.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
