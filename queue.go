// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Queue is an unbounded lock-free multi-producer multi-consumer FIFO queue.
//
// Producers link new nodes at head; consumers remove at tail. Each node
// carries a sequence index, one more than its prev neighbor. The running
// index counter names the node due for removal next, and a consumer only
// removes the tail after it has checked the tail's index against the
// counter and claimed that index. This makes removal strictly FIFO and
// unique without locks.
//
// Removed nodes go to a lock-free cache and are reused by later enqueues.
// Nothing is ever freed; memory is retained in proportion to the peak depth.
//
// Head word format: [lo = head ref | hi = index of the next run start].
// hi is meaningful only while lo is empty: it is the index the next node
// linked onto an empty queue receives.
//
// The head word is placed 16-byte aligned inside its own buffer: a Queue
// may live anywhere, including the stack or inside another struct, where
// the 128-bit CAS would fault on an 8-byte aligned field.
//
// Memory: one 64-byte node plus one T per element at peak depth.
type Queue[T any] struct {
	_     pad
	head  *atomix.Uint128 // Producers CAS here; points into headBuf
	_     pad
	tail  atomix.Uint64 // Oldest node; may briefly trail a removal
	_     pad
	index atomix.Uint64 // Sequence index due for removal
	_     pad
	arena *arena[T]
	cache cache[T]

	headBuf []byte
}

// NewQueue creates an empty queue with the default arena chunk size.
func NewQueue[T any]() *Queue[T] {
	return newQueue[T](DefaultChunkSize)
}

func newQueue[T any](chunk int) *Queue[T] {
	q := &Queue[T]{}
	q.init(chunk)
	return q
}

// init prepares a zero Queue in place.
func (q *Queue[T]) init(chunk int) {
	q.headBuf = make([]byte, 64)
	_, q.head = atomix.PlaceAlignedUint128(q.headBuf, 0)
	q.arena = newArena[T](chunk)
	q.cache = cache[T]{arena: q.arena}
}

// Enqueue adds an element to the queue. The element is copied.
//
// Enqueue never blocks and never waits. It returns nil, or ErrExhausted
// if the cache is empty and the node handle space is used up.
func (q *Queue[T]) Enqueue(elem *T) error {
	h := q.cache.pop()
	if h == 0 {
		var ok bool
		if h, ok = q.arena.alloc(); !ok {
			return ErrExhausted
		}
	}
	n := q.arena.node(h)
	*q.arena.data(h) = *elem
	gen, _ := n.state.LoadAcquire()
	self := makeRef(h, gen)

	// prev and the run-start index are written while the node is private,
	// so a linked node is never seen without them.
	sw := spin.Wait{}
	var prev ref
	for {
		lo, hi := q.head.LoadAcquire()
		prev = ref(lo)
		n.prev.StoreRelease(lo)
		if prev == nilRef {
			n.state.StoreRelease(gen, hi+1)
		} else {
			n.state.StoreRelease(gen, 0)
		}
		if q.head.CompareAndSwapAcqRel(lo, hi, uint64(self), 0) {
			break
		}
		sw.Once()
	}

	if prev == nilRef {
		// Run start. The previous tail, if any, has been removed;
		// its remover only CASes tail away from its own node.
		q.tail.StoreRelease(uint64(self))
		return nil
	}

	// A consumer may be waiting on exactly this store.
	q.arena.node(prev.handle()).next.StoreRelease(uint64(self))
	q.arena.resolve(self)
	return nil
}

// Dequeue removes and returns the oldest element.
//
// Returns (zero-value, ErrWouldBlock) if the queue is empty, or
// (zero-value, ErrSpin) if the oldest element cannot be removed until a
// concurrent Enqueue finishes linking it. Both are non-failures; ErrSpin
// is safe to retry immediately. See DequeueSpin.
//
// A Dequeue that finds another consumer's removal half done completes
// that removal before it looks again, so a stalled consumer never blocks
// the rest.
func (q *Queue[T]) Dequeue() (T, error) {
	sw := spin.Wait{}
	for {
		t := ref(q.tail.LoadAcquire())
		if t == nilRef {
			var zero T
			return zero, ErrWouldBlock
		}
		idx, ok := q.arena.resolve(t)
		if !ok {
			// Tail was removed and recycled after we read it.
			sw.Once()
			continue
		}
		want := q.index.LoadAcquire()

		if idx > want {
			// A run start linked after a drain while the remover of the
			// previous run's last node has not bumped the counter yet.
			// The counter can only trail by that one bump; finish it.
			if idx == want+1 {
				q.index.CompareAndSwapAcqRel(want, idx)
			}
			sw.Once()
			continue
		}
		if idx < want {
			// Another consumer claimed the tail. Help it move tail on.
			next, ok := q.successor(t)
			if !ok {
				sw.Once()
				continue
			}
			if next == nilRef {
				// t went as the only node and its remover has not cleared
				// tail yet. A run start linked since stores tail itself.
				q.tail.CompareAndSwapAcqRel(uint64(t), uint64(nilRef))
				continue
			}
			q.advance(t, next, idx)
			sw.Once()
			continue
		}

		lo, hi := q.head.LoadAcquire()
		if ref(lo) == t {
			// Single node: the head CAS is the claim.
			if !q.head.CompareAndSwapAcqRel(lo, hi, uint64(nilRef), idx+1) {
				sw.Once()
				continue
			}
			q.index.CompareAndSwapAcqRel(idx, idx+1)
			q.tail.CompareAndSwapAcqRel(uint64(t), uint64(nilRef))
			return q.release(t.handle()), nil
		}

		next, ok := q.successor(t)
		if !ok {
			sw.Once()
			continue
		}
		if next == nilRef {
			if ref(lo) == nilRef && hi == idx+1 {
				// Another consumer removed t as the only node and has not
				// bumped the counter. Finish its removal for it.
				q.index.CompareAndSwapAcqRel(idx, idx+1)
				q.tail.CompareAndSwapAcqRel(uint64(t), uint64(nilRef))
				continue
			}
			// The enqueuer that replaced head has not linked next yet, or
			// has started a new run and not stored tail yet.
			var zero T
			return zero, ErrSpin
		}
		if !q.index.CompareAndSwapAcqRel(want, want+1) {
			sw.Once()
			continue
		}
		q.advance(t, next, idx)
		return q.release(t.handle()), nil
	}
}

// DequeueSpin calls Dequeue until the result is not ErrSpin.
//
// Returns the element, or (zero-value, ErrWouldBlock) if the queue is empty.
// DequeueSpin adds no synchronization of its own. It is lock-free, not
// wait-free: a single caller can be starved by an adversarial scheduler.
func (q *Queue[T]) DequeueSpin() (T, error) {
	sw := spin.Wait{}
	for {
		elem, err := q.Dequeue()
		if err != ErrSpin {
			return elem, err
		}
		sw.Once()
	}
}

// IsEmpty reports whether the queue looked empty at the instant of the call.
//
// The answer is advisory only: it is not linearizable against concurrent
// Enqueue or Dequeue calls and may be stale by the time it is returned.
// Never use it as a precondition for correctness; use the ErrWouldBlock
// result of Dequeue instead.
func (q *Queue[T]) IsEmpty() bool {
	return ref(q.tail.LoadAcquire()) == nilRef
}

// Footprint returns the number of nodes the queue ever allocated.
// Nodes are never freed, so this is also its current node memory.
func (q *Queue[T]) Footprint() int {
	return q.arena.footprint()
}

// successor reads the next link of t, validated against t's generation.
func (q *Queue[T]) successor(t ref) (next ref, ok bool) {
	n := q.arena.node(t.handle())
	next = ref(n.next.LoadAcquire())
	gen, _ := n.state.LoadAcquire()
	return next, t.owns(gen)
}

// advance publishes the index of next and swings tail from t to next.
// The index must be published before tail moves, and before t is
// recycled, so walks through t can still terminate.
func (q *Queue[T]) advance(t, next ref, idx uint64) {
	n := q.arena.node(next.handle())
	if gen, _, set := n.index(); !set && next.owns(gen) {
		n.publish(gen, idx+1)
	}
	q.tail.CompareAndSwapAcqRel(uint64(t), uint64(next))
}

// release takes the payload of a claimed node and returns the node to the cache.
func (q *Queue[T]) release(h uint32) T {
	slot := q.arena.data(h)
	elem := *slot
	var zero T
	*slot = zero
	q.cache.push(h)
	return elem
}
