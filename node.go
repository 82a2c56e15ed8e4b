// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

import "code.hybscloud.com/atomix"

// ref is a generation-tagged node handle.
//
// Layout: [hi 32 = generation | lo 32 = handle]
//
// Handle 0 is never allocated, so the zero ref is the empty link. The
// generation is bumped each time a node enters the cache; a ref captured
// before a recycle never equals one captured after it.
type ref uint64

const nilRef ref = 0

func makeRef(handle uint32, gen uint64) ref {
	return ref(uint64(uint32(gen))<<32 | uint64(handle))
}

func (r ref) handle() uint32 { return uint32(r) }
func (r ref) gen() uint32    { return uint32(r >> 32) }

// owns reports whether gen is the generation r was captured at.
func (r ref) owns(gen uint64) bool { return uint32(gen) == r.gen() }

// node is one linked cell.
//
// state packs the generation (lo) and the sequence index plus one (hi).
// hi == 0 means the index is not resolved yet. Within one generation hi
// moves from 0 to its final value at most once.
//
// prev is written only while the node is private to its enqueuer. next is
// written once per generation, by the enqueuer of the newer neighbor.
// link threads the node through the cache and carries no meaning otherwise.
//
// The payload lives beside the node in its arena chunk, keeping every
// node exactly one cache line and the 128-bit state word 16-byte aligned.
type node struct {
	state atomix.Uint128
	next  atomix.Uint64
	prev  atomix.Uint64
	link  atomix.Uint64
	_     [64 - 40]byte // Pad to cache line
}

// index returns the published sequence index, if any.
func (n *node) index() (gen, idx uint64, ok bool) {
	gen, hi := n.state.LoadAcquire()
	if hi == 0 {
		return gen, 0, false
	}
	return gen, hi - 1, true
}

// publish sets the index of generation gen from unset to idx.
// Fails when a peer published first or the node was recycled.
func (n *node) publish(gen, idx uint64) bool {
	return n.state.CompareAndSwapAcqRel(gen, 0, gen, idx+1)
}
