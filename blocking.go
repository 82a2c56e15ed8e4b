// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

import (
	"context"
	"time"

	"code.hybscloud.com/atomix"
)

// Blocking is a Queue whose consumers can wait for elements.
//
// Waiting consumers register a waiter on a second Queue before parking.
// Each Enqueue wakes at most one registered waiter. The element queue
// itself stays lock-free; only consumers that ask to wait ever park.
//
// Example:
//
//	q := ulfq.NewBlocking[Job]()
//
//	go func() {
//	    for {
//	        job, err := q.Dequeue(ctx)
//	        if err != nil {
//	            return // ctx done
//	        }
//	        job.Run()
//	    }
//	}()
//
//	q.Enqueue(&job)
type Blocking[T any] struct {
	items   *Queue[T]
	waiters *Queue[*waiter]
}

// waiter is one parked consumer. state moves 0 → 1 exactly once, either
// by a producer waking it or by the consumer abandoning it.
type waiter struct {
	state atomix.Uint64
	ready chan struct{}
}

func newWaiter() *waiter {
	return &waiter{ready: make(chan struct{}, 1)}
}

// wake reports whether this call delivered the wakeup.
func (w *waiter) wake() bool {
	if !w.state.CompareAndSwapAcqRel(0, 1) {
		return false
	}
	w.ready <- struct{}{}
	return true
}

// abandon reports whether the waiter had already been woken.
func (w *waiter) abandon() bool {
	return !w.state.CompareAndSwapAcqRel(0, 1)
}

// NewBlocking creates an empty blocking queue with the default arena chunk size.
func NewBlocking[T any]() *Blocking[T] {
	return newBlocking[T](DefaultChunkSize)
}

func newBlocking[T any](chunk int) *Blocking[T] {
	return &Blocking[T]{
		items:   newQueue[T](chunk),
		waiters: newQueue[*waiter](chunk),
	}
}

// Enqueue adds an element and wakes one waiting consumer, if any.
// Returns ErrExhausted under the same condition as Queue.Enqueue.
func (b *Blocking[T]) Enqueue(elem *T) error {
	if err := b.items.Enqueue(elem); err != nil {
		return err
	}
	// The element's publication must be ordered before the waiter scan.
	atomix.BarrierAcqRel()
	b.notify()
	return nil
}

// TryDequeue is a single non-blocking Dequeue.
// Returns ErrWouldBlock if empty, ErrSpin if a concurrent operation is in flight.
func (b *Blocking[T]) TryDequeue() (T, error) {
	return b.items.Dequeue()
}

// Dequeue removes and returns the oldest element, waiting until one is
// available or ctx is done. On cancellation it makes one last attempt and
// otherwise returns ctx.Err().
func (b *Blocking[T]) Dequeue(ctx context.Context) (T, error) {
	for {
		if elem, err := b.items.DequeueSpin(); err == nil {
			return elem, nil
		}

		w := newWaiter()
		if err := b.waiters.Enqueue(&w); err != nil {
			var zero T
			return zero, err
		}
		// Re-check after registering: an Enqueue that finished before
		// the registration could not have seen this waiter. The fence
		// pairs with the one in Enqueue so that at least one side sees
		// the other's store.
		atomix.BarrierAcqRel()
		if elem, err := b.items.DequeueSpin(); err == nil {
			b.abandon(w)
			return elem, nil
		}

		select {
		case <-w.ready:
		case <-ctx.Done():
			b.abandon(w)
			if elem, err := b.items.DequeueSpin(); err == nil {
				return elem, nil
			}
			var zero T
			return zero, ctx.Err()
		}
	}
}

// DequeueTimeout is Dequeue with a deadline d from now.
// Returns context.DeadlineExceeded if nothing arrived in time.
func (b *Blocking[T]) DequeueTimeout(d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return b.Dequeue(ctx)
}

// IsEmpty is Queue.IsEmpty of the element queue. Advisory only.
func (b *Blocking[T]) IsEmpty() bool {
	return b.items.IsEmpty()
}

// Footprint returns the nodes allocated by the element and waiter queues.
func (b *Blocking[T]) Footprint() int {
	return b.items.Footprint() + b.waiters.Footprint()
}

// notify wakes the oldest waiter that is still parked.
func (b *Blocking[T]) notify() {
	for {
		w, err := b.waiters.DequeueSpin()
		if err != nil {
			return
		}
		if w.wake() {
			return
		}
	}
}

// abandon retires w. A wakeup already delivered to w is passed on, so a
// consumer that leaves never swallows a wakeup meant for the queue.
func (b *Blocking[T]) abandon(w *waiter) {
	if w.abandon() {
		b.notify()
	}
}
