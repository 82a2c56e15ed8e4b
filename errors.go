// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock reports an empty queue on Dequeue.
//
// ErrWouldBlock is a control flow signal, not a failure. The result is an
// instantaneous observation; an element may arrive the moment after.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrSpin reports that Dequeue lost a race with a concurrent Enqueue or
// Dequeue that has not finished yet. Retrying is always safe and will
// succeed or report empty once the other operation completes.
//
// ErrSpin wraps ErrWouldBlock, so IsWouldBlock and IsSemantic hold for it.
// Use IsSpin to tell it apart from an empty queue.
//
// Example:
//
//	for {
//	    v, err := q.Dequeue()
//	    if ulfq.IsSpin(err) {
//	        continue // in-flight operation, retry now
//	    }
//	    if err != nil {
//	        break // empty
//	    }
//	    process(v)
//	}
var ErrSpin = fmt.Errorf("ulfq: concurrent operation in flight: %w", iox.ErrWouldBlock)

// ErrExhausted reports that Enqueue needed a fresh node and the node
// handle space (2^32-1 nodes per queue) is used up. It is a real failure:
// the element was not enqueued.
var ErrExhausted = errors.New("ulfq: node handle space exhausted")

// IsWouldBlock reports whether err indicates the operation would block,
// either because the queue is empty or because of ErrSpin.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSpin reports whether err is, or wraps, ErrSpin.
func IsSpin(err error) bool {
	return errors.Is(err, ErrSpin)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic]. ErrSpin wraps ErrWouldBlock, so it counts.
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock and ErrSpin.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
