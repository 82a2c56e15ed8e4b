// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq

// DefaultChunkSize is the number of nodes in the first arena chunk.
const DefaultChunkSize = 64

// Options configures queue creation.
type Options struct {
	// First arena chunk, in nodes (rounds up to next power of 2).
	// Each later chunk doubles the previous one.
	chunkSize int
}

// Builder creates queues with fluent configuration.
//
// Example:
//
//	// Plain lock-free queue
//	q := ulfq.Build[Event](ulfq.New())
//
//	// Blocking queue, larger first chunk for a known burst size
//	q := ulfq.BuildBlocking[*Request](ulfq.New().ChunkSize(4096))
type Builder struct {
	opts Options
}

// New creates a queue builder with default options.
func New() *Builder {
	return &Builder{opts: Options{chunkSize: DefaultChunkSize}}
}

// ChunkSize sets the size of the first arena chunk in nodes.
//
// The arena grows by doubling, so the chunk size only trades the memory
// committed up front against how many growth steps a deep queue takes.
// It is not a capacity: the queue stays unbounded.
//
// Rounds up to the next power of 2. Panics if n < 2.
func (b *Builder) ChunkSize(n int) *Builder {
	if n < 2 {
		panic("ulfq: chunk size must be >= 2")
	}
	b.opts.chunkSize = n
	return b
}

// Build creates a Queue[T].
func Build[T any](b *Builder) *Queue[T] {
	return newQueue[T](b.opts.chunkSize)
}

// BuildBlocking creates a Blocking[T]. The waiter queue uses the same options.
func BuildBlocking[T any](b *Builder) *Blocking[T] {
	return newBlocking[T](b.opts.chunkSize)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
