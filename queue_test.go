// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/ulfq"
)

// =============================================================================
// Test Helpers
// =============================================================================

// waitForCount waits until counter reaches target or timeout expires.
func waitForCount(t *testing.T, timeout time.Duration, counter *atomix.Int64, target int64, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for counter.Load() < target {
		if time.Now().After(deadline) {
			t.Fatalf("timeout after %v: %s (got %d, want %d)", timeout, msg, counter.Load(), target)
		}
		backoff.Wait()
	}
}

// checkCensus verifies every allocated node is either linked or cached.
func checkCensus[T any](t *testing.T, q *ulfq.Queue[T], wantLinked int) {
	t.Helper()
	linked, cached := q.Census()
	if linked != wantLinked {
		t.Fatalf("Census: %d linked, want %d", linked, wantLinked)
	}
	if linked+cached != q.Footprint() {
		t.Fatalf("Census: %d linked + %d cached != footprint %d", linked, cached, q.Footprint())
	}
}

// =============================================================================
// Sequential Behavior
// =============================================================================

func TestQueueBasic(t *testing.T) {
	q := ulfq.NewQueue[int]()

	if !q.IsEmpty() {
		t.Fatalf("IsEmpty on new queue: got false")
	}
	if _, err := q.Dequeue(); !errors.Is(err, ulfq.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}

	for i := range 200 {
		v := i + 100
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if q.IsEmpty() {
		t.Fatalf("IsEmpty after enqueue: got true")
	}

	for i := range 200 {
		val, err := q.DequeueSpin()
		if err != nil {
			t.Fatalf("DequeueSpin(%d): %v", i, err)
		}
		if val != i+100 {
			t.Fatalf("DequeueSpin(%d): got %d, want %d", i, val, i+100)
		}
	}

	if _, err := q.DequeueSpin(); !errors.Is(err, ulfq.ErrWouldBlock) {
		t.Fatalf("DequeueSpin on empty: got %v, want ErrWouldBlock", err)
	}
	if ulfq.IsSpin(nil) {
		t.Fatalf("IsSpin(nil): got true")
	}
	if !q.IsEmpty() {
		t.Fatalf("IsEmpty after drain: got false")
	}
	checkCensus(t, q, 0)
}

// TestScenarioInterleaved enqueues and dequeues alternately across a drain.
func TestScenarioInterleaved(t *testing.T) {
	q := ulfq.NewQueue[int]()
	enq := func(v int) {
		t.Helper()
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue(%d): %v", v, err)
		}
	}
	deq := func(want int) {
		t.Helper()
		got, err := q.DequeueSpin()
		if err != nil || got != want {
			t.Fatalf("DequeueSpin: got (%d, %v), want %d", got, err, want)
		}
	}

	enq(1)
	enq(2)
	deq(1)
	enq(3)
	deq(2)
	deq(3)
	if _, err := q.DequeueSpin(); !errors.Is(err, ulfq.ErrWouldBlock) {
		t.Fatalf("DequeueSpin on drained queue: got %v, want ErrWouldBlock", err)
	}
	checkCensus(t, q, 0)
	if q.Footprint() > 3 {
		t.Fatalf("Footprint: got %d, want <= 3", q.Footprint())
	}
}

// TestTerminalEmptiness checks that k dequeues after k enqueues leave the
// queue empty, for fill depths that cross arena chunk boundaries.
func TestTerminalEmptiness(t *testing.T) {
	for _, k := range []int{1, 2, 3, 7, 64, 65, 1000} {
		q := ulfq.Build[int](ulfq.New().ChunkSize(4))
		for i := range k {
			q.Enqueue(&i)
		}
		checkCensus(t, q, k)
		for i := range k {
			if _, err := q.DequeueSpin(); err != nil {
				t.Fatalf("k=%d: DequeueSpin(%d): %v", k, i, err)
			}
		}
		if _, err := q.DequeueSpin(); !errors.Is(err, ulfq.ErrWouldBlock) {
			t.Fatalf("k=%d: got %v, want ErrWouldBlock", k, err)
		}
		checkCensus(t, q, 0)
		if q.NextIndex() != uint64(k) {
			t.Fatalf("k=%d: NextIndex %d", k, q.NextIndex())
		}
	}
}

// TestFillDrainReuse verifies that removed nodes are reused: repeated
// fill/drain cycles never grow the footprint beyond the peak depth.
func TestFillDrainReuse(t *testing.T) {
	q := ulfq.Build[int](ulfq.New().ChunkSize(2))
	const depth = 16

	for cycle := range 2000 {
		for i := range depth {
			v := cycle*depth + i
			if err := q.Enqueue(&v); err != nil {
				t.Fatalf("Cycle %d, enqueue %d: %v", cycle, i, err)
			}
		}
		for i := range depth {
			v, err := q.Dequeue()
			if err != nil {
				t.Fatalf("Cycle %d, dequeue %d: %v", cycle, i, err)
			}
			if expected := cycle*depth + i; v != expected {
				t.Fatalf("Cycle %d, dequeue %d: got %d, want %d", cycle, i, v, expected)
			}
		}
	}
	if q.Footprint() != depth {
		t.Fatalf("Footprint: got %d, want %d", q.Footprint(), depth)
	}
	checkCensus(t, q, 0)
}

// TestSequentialNeverSpins: without concurrency there is nothing in flight.
func TestSequentialNeverSpins(t *testing.T) {
	q := ulfq.NewQueue[int]()
	for round := range 100 {
		for i := range round % 5 {
			q.Enqueue(&i)
		}
		for {
			_, err := q.Dequeue()
			if ulfq.IsSpin(err) {
				t.Fatalf("round %d: sequential Dequeue reported ErrSpin", round)
			}
			if err != nil {
				break
			}
		}
	}
}

func TestEnqueueCopies(t *testing.T) {
	type payload struct {
		ID   int
		Name string
		Buf  [32]byte
	}
	q := ulfq.NewQueue[payload]()

	p := payload{ID: 1, Name: "first"}
	p.Buf[31] = 0xAB
	q.Enqueue(&p)
	p.ID, p.Name = 2, "changed"

	got, err := q.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got.ID != 1 || got.Name != "first" || got.Buf[31] != 0xAB {
		t.Fatalf("Dequeue: got %+v, want the value at Enqueue time", got)
	}
}

func TestPointerElements(t *testing.T) {
	q := ulfq.NewQueue[*int]()
	values := make([]int, 10)
	for i := range values {
		values[i] = i * 7
		p := &values[i]
		q.Enqueue(&p)
	}
	for i := range values {
		p, err := q.DequeueSpin()
		if err != nil {
			t.Fatalf("DequeueSpin(%d): %v", i, err)
		}
		if p != &values[i] {
			t.Fatalf("DequeueSpin(%d): wrong pointer", i)
		}
	}
}

// =============================================================================
// Concurrency
// =============================================================================

// TestSingleNodeContention races one Enqueue against one Dequeue on an
// empty queue. Dequeue sees either nothing or the element, never ErrSpin.
func TestSingleNodeContention(t *testing.T) {
	if ulfq.RaceEnabled {
		t.Skip("skip: concurrent single-node test")
	}

	for round := range 5000 {
		q := ulfq.NewQueue[int]()
		var wg sync.WaitGroup
		var got int
		var err error
		start := make(chan struct{})

		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			v := 1
			q.Enqueue(&v)
		}()
		go func() {
			defer wg.Done()
			<-start
			got, err = q.Dequeue()
		}()
		close(start)
		wg.Wait()

		switch {
		case err == nil:
			if got != 1 {
				t.Fatalf("round %d: got %d, want 1", round, got)
			}
		case ulfq.IsSpin(err):
			t.Fatalf("round %d: single-node Dequeue reported ErrSpin", round)
		case !errors.Is(err, ulfq.ErrWouldBlock):
			t.Fatalf("round %d: unexpected error %v", round, err)
		}
	}
}

// TestFIFOPerProducer checks that a single consumer sees each producer's
// values in the order that producer enqueued them.
func TestFIFOPerProducer(t *testing.T) {
	if ulfq.RaceEnabled {
		t.Skip("skip: concurrent FIFO test")
	}

	const (
		numP     = 4
		perProd  = 20000
		sentinel = 1_000_000
	)
	q := ulfq.Build[int](ulfq.New().ChunkSize(8))
	var wg sync.WaitGroup

	for p := range numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range perProd {
				v := id*sentinel + i
				q.Enqueue(&v)
			}
		}(p)
	}

	last := make([]int, numP)
	for i := range last {
		last[i] = -1
	}
	backoff := iox.Backoff{}
	deadline := time.Now().Add(10 * time.Second)
	for received := 0; received < numP*perProd; {
		v, err := q.DequeueSpin()
		if err != nil {
			if time.Now().After(deadline) {
				t.Fatalf("timeout: received %d of %d", received, numP*perProd)
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()
		id, seq := v/sentinel, v%sentinel
		if seq <= last[id] {
			t.Fatalf("producer %d: got %d after %d", id, seq, last[id])
		}
		last[id] = seq
		received++
	}
	wg.Wait()
}

// TestNoLossNoDuplication runs P producers against C consumers and checks
// every value is dequeued exactly once.
func TestNoLossNoDuplication(t *testing.T) {
	if ulfq.RaceEnabled {
		t.Skip("skip: concurrent stress test")
	}

	tests := []struct {
		name       string
		numP, numC int
		perProd    int
		chunk      int
	}{
		{"1x1", 1, 1, 50000, 64},
		{"1x4", 1, 4, 50000, 2},
		{"4x1", 4, 1, 12500, 2},
		{"4x4", 4, 4, 12500, 8},
		{"8x8", 8, 8, 6250, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testNoLossNoDuplication(t, ulfq.Build[int](ulfq.New().ChunkSize(tt.chunk)), tt.numP, tt.numC, tt.perProd)
		})
	}
}

func testNoLossNoDuplication(t *testing.T, q *ulfq.Queue[int], numP, numC, perProd int) {
	t.Helper()

	total := numP * perProd
	seen := make([]atomix.Int32, total)
	var wg sync.WaitGroup
	var produced, consumed atomix.Int64

	for p := range numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range perProd {
				v := id*perProd + i
				if err := q.Enqueue(&v); err != nil {
					t.Errorf("Enqueue: %v", err)
					return
				}
				produced.Add(1)
			}
		}(p)
	}

	done := make(chan struct{})
	for range numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for {
				select {
				case <-done:
					return
				default:
				}
				v, err := q.Dequeue()
				if err != nil {
					if !ulfq.IsSpin(err) {
						backoff.Wait()
					}
					continue
				}
				backoff.Reset()
				seen[v].Add(1)
				consumed.Add(1)
			}
		}()
	}

	waitForCount(t, 20*time.Second, &consumed, int64(total), "consumers")
	close(done)
	wg.Wait()

	if _, err := q.DequeueSpin(); !errors.Is(err, ulfq.ErrWouldBlock) {
		t.Fatalf("queue not empty after all values consumed: %v", err)
	}
	for i := range seen {
		if seen[i].Load() != 1 {
			t.Fatalf("value %d seen %d times", i, seen[i].Load())
		}
	}
	if produced.Load() != int64(total) || consumed.Load() != int64(total) {
		t.Fatalf("produced %d, consumed %d, want %d", produced.Load(), consumed.Load(), total)
	}
	checkCensus(t, q, 0)
}

// TestDequeueUniqueness races many consumers over a prefilled queue.
func TestDequeueUniqueness(t *testing.T) {
	if ulfq.RaceEnabled {
		t.Skip("skip: concurrent uniqueness test")
	}

	const (
		items     = 100000
		consumers = 8
	)
	q := ulfq.NewQueue[int]()
	for i := range items {
		q.Enqueue(&i)
	}

	var wg sync.WaitGroup
	seen := make([]atomix.Int32, items)
	counts := make([]int, consumers)
	for c := range consumers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				v, err := q.DequeueSpin()
				if err != nil {
					return
				}
				seen[v].Add(1)
				counts[id]++
			}
		}(c)
	}
	wg.Wait()

	var sum int
	for _, n := range counts {
		sum += n
	}
	if sum != items {
		t.Fatalf("dequeued %d, want %d", sum, items)
	}
	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("value %d seen %d times", i, n)
		}
	}
	checkCensus(t, q, 0)
}

// TestMixedStress has every goroutine both enqueue and dequeue, keeping the
// queue shallow so the single-node and run-start paths are hit constantly.
func TestMixedStress(t *testing.T) {
	if ulfq.RaceEnabled {
		t.Skip("skip: concurrent stress test")
	}

	const (
		workers = 8
		ops     = 20000
	)
	q := ulfq.Build[int](ulfq.New().ChunkSize(2))
	seen := make([]atomix.Int32, workers*ops)
	var wg sync.WaitGroup
	var consumed atomix.Int64

	for w := range workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range ops {
				v := id*ops + i
				q.Enqueue(&v)
				got, err := q.DequeueSpin()
				if err == nil {
					seen[got].Add(1)
					consumed.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	for {
		got, err := q.DequeueSpin()
		if err != nil {
			break
		}
		seen[got].Add(1)
		consumed.Add(1)
	}

	if consumed.Load() != workers*ops {
		t.Fatalf("consumed %d, want %d", consumed.Load(), workers*ops)
	}
	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("value %d seen %d times", i, n)
		}
	}
	checkCensus(t, q, 0)
}
