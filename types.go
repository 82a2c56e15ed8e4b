// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The
// queue stores a copy of the pointed-to value, so the original can be
// modified after Enqueue returns.
type Producer[T any] interface {
	// Enqueue adds an element to the queue. It never blocks and never
	// reports a full queue; the only error is ErrExhausted.
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// The element is returned by value. The slot it occupied is cleared to
// allow garbage collection of referenced objects.
type Consumer[T any] interface {
	// Dequeue removes and returns the oldest element (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is empty and
	// (zero-value, ErrSpin) if a concurrent operation must finish first.
	Dequeue() (T, error)

	// DequeueSpin retries Dequeue while it reports ErrSpin.
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	DequeueSpin() (T, error)
}

// Unbounded is the combined producer-consumer interface of Queue.
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// IsEmpty is advisory only.
type Unbounded[T any] interface {
	Producer[T]
	Consumer[T]
	IsEmpty() bool
}

var (
	_ Unbounded[int] = (*Queue[int])(nil)
	_ Producer[int]  = (*Blocking[int])(nil)
)
