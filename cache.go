// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// cache is a lock-free LIFO free-list of detached nodes.
//
// The top word packs [hi 32 = ABA tag | lo 32 = handle]. Every successful
// push or pop bumps the tag, so a pop that read a stale top cannot succeed.
//
// Nodes enter the cache on removal and leave it on enqueue. They are never
// released, which is what lets readers dereference any handle they hold
// without hazard pointers or epochs. The cache can only grow or hold steady.
type cache[T any] struct {
	_     pad
	top   atomix.Uint64
	_     pad
	arena *arena[T]
}

// push resets a removed node and links it as the new top.
//
// The generation bump comes first: it retires every ref to the node before
// next is cleared. prev is left as it was.
func (c *cache[T]) push(h uint32) {
	n := c.arena.node(h)
	for {
		gen, hi := n.state.LoadAcquire()
		if n.state.CompareAndSwapAcqRel(gen, hi, gen+1, 0) {
			break
		}
	}
	n.next.StoreRelease(uint64(nilRef))

	sw := spin.Wait{}
	for {
		top := c.top.LoadAcquire()
		n.link.StoreRelaxed(top & 0xffffffff)
		if c.top.CompareAndSwapAcqRel(top, (top>>32+1)<<32|uint64(h)) {
			return
		}
		sw.Once()
	}
}

// pop unlinks the top node. Returns 0 if the cache is empty.
func (c *cache[T]) pop() uint32 {
	sw := spin.Wait{}
	for {
		top := c.top.LoadAcquire()
		h := uint32(top)
		if h == 0 {
			return 0
		}
		below := c.arena.node(h).link.LoadAcquire()
		if c.top.CompareAndSwapAcqRel(top, (top>>32+1)<<32|below) {
			return h
		}
		sw.Once()
	}
}

// len counts cached nodes. Only meaningful at quiescence.
func (c *cache[T]) len() int {
	var n int
	for h := uint32(c.top.LoadAcquire()); h != 0; h = uint32(c.arena.node(h).link.LoadAcquire()) {
		n++
	}
	return n
}
