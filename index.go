// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

import "code.hybscloud.com/spin"

// resolve returns the sequence index of the node r names.
//
// A published index is returned as is. Otherwise the prev chain is walked,
// counting hops, down to the nearest node with a published index i, and
// i+hops is published by CAS from unset. Indices grow by exactly one along
// the chain and prev never changes while a node is linked, so a competing
// publisher can only have written the same value; losing the CAS is benign.
//
// Returns ok=false when the node itself has been recycled since r was read.
//
// A walk that meets a recycled ancestor is restarted. An ancestor is only
// recycled after its remover published the index of its successor, so the
// restarted walk stops at or before that successor.
func (a *arena[T]) resolve(r ref) (idx uint64, ok bool) {
	n := a.node(r.handle())
	sw := spin.Wait{}
	for {
		gen, idx, set := n.index()
		if !r.owns(gen) {
			return 0, false
		}
		if set {
			return idx, true
		}
		base, hops, found := a.walk(r)
		if found {
			if n.publish(gen, base+hops) {
				return base + hops, true
			}
			continue
		}
		sw.Once()
	}
}

// walk follows prev links from r to the nearest published index.
// found is false when any node on the way was recycled mid-walk.
func (a *arena[T]) walk(r ref) (base, hops uint64, found bool) {
	cur := r
	for {
		n := a.node(cur.handle())
		prev := ref(n.prev.LoadAcquire())
		gen, _ := n.state.LoadAcquire()
		if !cur.owns(gen) || prev == nilRef {
			// A linked node without prev is a run start and always has
			// its index published before it becomes reachable.
			return 0, 0, false
		}
		hops++
		pgen, pidx, set := a.node(prev.handle()).index()
		if !prev.owns(pgen) {
			return 0, 0, false
		}
		if set {
			return pidx, hops, true
		}
		cur = prev
	}
}
