// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ulfq_test

import (
	"fmt"
	"time"

	"code.hybscloud.com/ulfq"
)

// ExampleNewQueue demonstrates FIFO order through an unbounded queue.
func ExampleNewQueue() {
	q := ulfq.NewQueue[int]()

	// Enqueue never reports a full queue
	for i := 1; i <= 5; i++ {
		v := i * 10
		q.Enqueue(&v)
	}

	for {
		v, err := q.DequeueSpin()
		if err != nil {
			break // empty
		}
		fmt.Println(v)
	}

	// Output:
	// 10
	// 20
	// 30
	// 40
	// 50
}

// ExampleBuild demonstrates the fluent builder API.
func ExampleBuild() {
	// A larger first chunk suits a known burst; the queue still grows past it
	q := ulfq.Build[string](ulfq.New().ChunkSize(1024))

	for _, s := range []string{"alpha", "beta", "gamma"} {
		q.Enqueue(&s)
	}
	v, _ := q.Dequeue()
	fmt.Println(v, q.IsEmpty())

	// Output:
	// alpha false
}

// ExampleQueue_Dequeue shows how to tell the three Dequeue results apart.
func ExampleQueue_Dequeue() {
	q := ulfq.NewQueue[int]()
	v := 7
	q.Enqueue(&v)

	for range 2 {
		got, err := q.Dequeue()
		switch {
		case err == nil:
			fmt.Println("value", got)
		case ulfq.IsSpin(err):
			fmt.Println("retry") // concurrent operation in flight
		case ulfq.IsWouldBlock(err):
			fmt.Println("empty")
		}
	}

	// Output:
	// value 7
	// empty
}

// ExampleNewBlocking demonstrates a consumer waiting with a deadline.
func ExampleNewBlocking() {
	q := ulfq.NewBlocking[string]()

	if _, err := q.DequeueTimeout(10 * time.Millisecond); err != nil {
		fmt.Println("timed out:", err)
	}

	msg := "ready"
	q.Enqueue(&msg)
	v, _ := q.DequeueTimeout(time.Second)
	fmt.Println(v)

	// Output:
	// timed out: context deadline exceeded
	// ready
}

// Example_structPayload shows that the queue stores a copy of the element.
func Example_structPayload() {
	type Event struct {
		ID   int
		Kind string
	}
	q := ulfq.NewQueue[Event]()

	ev := Event{ID: 1, Kind: "open"}
	q.Enqueue(&ev)
	ev.Kind = "close" // does not affect the queued copy
	q.Enqueue(&ev)

	for range 2 {
		e, _ := q.DequeueSpin()
		fmt.Printf("%d %s\n", e.ID, e.Kind)
	}

	// Output:
	// 1 open
	// 1 close
}
