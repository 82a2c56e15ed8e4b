// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ulfq provides an unbounded lock-free MPMC FIFO queue.
//
// Any number of goroutines may call Enqueue and Dequeue concurrently. No
// Queue operation takes a lock or parks the calling goroutine: Enqueue
// never reports a full queue, and Dequeue either returns an element or
// reports one of two non-failure conditions.
//
// # Quick Start
//
//	q := ulfq.NewQueue[Event]()
//
//	ev := Event{ID: 1}
//	q.Enqueue(&ev)
//
//	ev, err := q.DequeueSpin()
//	if ulfq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// Builder API for tuning:
//
//	q := ulfq.Build[Event](ulfq.New().ChunkSize(1024))
//	b := ulfq.BuildBlocking[Event](ulfq.New())
//
// # Dequeue Results
//
// Dequeue has three outcomes:
//
//	elem, nil           - the oldest element was removed
//	zero, ErrWouldBlock - the queue was empty
//	zero, ErrSpin       - a concurrent Enqueue must finish first
//
// ErrSpin is returned when the oldest element is still being linked: a
// producer has swung head to a new node but not yet connected it to its
// older neighbor, or has not yet stored it as tail. Removals left half done by other consumers are
// completed by the caller and never show up as ErrSpin. It is always safe to retry immediately. DequeueSpin does this
// and only returns an element or ErrWouldBlock:
//
//	backoff := iox.Backoff{}
//	for {
//	    elem, err := q.DequeueSpin()
//	    if err != nil {
//	        backoff.Wait()
//	        continue
//	    }
//	    backoff.Reset()
//	    process(elem)
//	}
//
// # Algorithm
//
// Nodes form a doubly linked chain. Producers swing head to their node with
// a CAS; the node's prev link is fixed before it is published and never
// changes while it is linked. The enqueuer then sets next on the former
// head. Consumers remove at tail.
//
// Every node has a sequence index, one more than its prev neighbor. The
// index is resolved lazily: whoever needs it first walks prev to the
// nearest published index and publishes the sum with a CAS. The queue keeps
// a running counter naming the index due for removal. A consumer removes
// the tail only after checking its index against the counter and claiming
// that index with a CAS (or, for a single-node queue, by swinging head to
// empty). Removal is therefore strictly FIFO, and no two consumers remove
// the same node, even though producers link concurrently at head.
//
// # Memory
//
// Removed nodes are pushed to a lock-free cache and reused by later
// enqueues. Nodes are never freed: they live in an arena of doubling chunks
// addressed by 32-bit handles, so any handle any goroutine holds stays
// valid for the queue's lifetime. Links carry a generation tag that is
// bumped whenever a node is recycled, which makes every CAS ABA-safe and
// lets a reader detect that a node it reached was recycled under it.
//
// The cost is retained memory proportional to the peak queue depth: the
// cache never shrinks. Footprint reports the number of nodes held.
//
// # Blocking
//
// Blocking wraps a Queue for consumers that prefer to wait:
//
//	q := ulfq.NewBlocking[Job]()
//	job, err := q.Dequeue(ctx)            // waits until an element or ctx done
//	job, err = q.DequeueTimeout(time.Second)
//
// Producers stay lock-free; each Enqueue wakes at most one waiting consumer.
//
// # Empty Checks
//
// IsEmpty is advisory. It reflects a single observation of the tail and is
// not linearizable against concurrent producers or consumers. Never use it
// as a precondition for correctness; act on Dequeue results instead.
//
// # Progress
//
// The queue is lock-free, not wait-free. An individual Dequeue may retry or
// report ErrSpin while others make progress, and DequeueSpin can in
// principle be starved by an adversarial scheduler. Callers that bound
// DequeueSpin with their own deadline must treat giving up as advisory.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomix memory orderings. Concurrent tests are
// excluded under the race detector via RaceEnabled.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package ulfq
