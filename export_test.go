// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

// Census counts the nodes linked from tail and the nodes in the cache.
// Only meaningful at quiescence.
func (q *Queue[T]) Census() (linked, cached int) {
	for r := ref(q.tail.LoadAcquire()); r != nilRef; r = ref(q.arena.node(r.handle()).next.LoadAcquire()) {
		linked++
	}
	return linked, q.cache.len()
}

// NextIndex returns the sequence index due for removal.
func (q *Queue[T]) NextIndex() uint64 {
	return q.index.LoadAcquire()
}

// Waiters returns the number of waiter nodes the blocking queue allocated.
func (b *Blocking[T]) Waiters() int {
	return b.waiters.Footprint()
}
