// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

import (
	"math/bits"

	"code.hybscloud.com/atomix"
)

const (
	// maxHandle is the largest node handle; handles are 1-based uint32.
	maxHandle = 1<<32 - 1

	// maxChunks covers maxHandle for any first-chunk size >= 2.
	maxChunks = 32
)

// chunk is one arena segment. Nodes and payloads share an offset.
type chunk[T any] struct {
	nodes []node
	data  []T
}

// arena hands out nodes addressed by stable handles.
//
// Chunk k holds base<<k nodes and starts at handle base*(2^k-1)+1, so the
// arena doubles as it grows and a handle maps to its chunk with one
// bit-length computation. Chunks are never released: any handle any
// goroutine holds stays dereferenceable for the arena's lifetime.
type arena[T any] struct {
	_      pad
	count  atomix.Uint64 // Handles handed out
	_      pad
	chunks [maxChunks]atomix.Pointer[chunk[T]]
	shift  uint // log2(base)
}

func newArena[T any](base int) *arena[T] {
	base = roundToPow2(base)
	return &arena[T]{shift: uint(bits.TrailingZeros64(uint64(base)))}
}

// locate maps a handle to its chunk and offset.
func (a *arena[T]) locate(h uint32) (k int, off uint64) {
	p := uint64(h) - 1
	k = bits.Len64(p>>a.shift+1) - 1
	off = p - (uint64(1)<<k-1)<<a.shift
	return k, off
}

// alloc returns a fresh node, or ok=false when the handle space is used up.
// Lock-free: one fetch-add, plus a CAS when the handle opens a new chunk.
func (a *arena[T]) alloc() (h uint32, ok bool) {
	n := a.count.AddAcqRel(1)
	if n > maxHandle {
		return 0, false
	}
	h = uint32(n)
	k, _ := a.locate(h)
	if a.chunks[k].LoadAcquire() == nil {
		size := 1 << (a.shift + uint(k))
		c := &chunk[T]{nodes: make([]node, size), data: make([]T, size)}
		a.chunks[k].CompareAndSwapAcqRel(nil, c)
	}
	return h, true
}

// node returns the node for a handle obtained from alloc.
func (a *arena[T]) node(h uint32) *node {
	k, off := a.locate(h)
	return &a.chunks[k].LoadAcquire().nodes[off]
}

// data returns the payload slot for a handle obtained from alloc.
func (a *arena[T]) data(h uint32) *T {
	k, off := a.locate(h)
	return &a.chunks[k].LoadAcquire().data[off]
}

// footprint returns the number of nodes ever allocated.
func (a *arena[T]) footprint() int {
	n := a.count.LoadAcquire()
	if n > maxHandle {
		n = maxHandle
	}
	return int(n)
}
