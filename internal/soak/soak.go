// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package soak drives an ulfq queue with concurrent producers and consumers
// and checks that every value comes out exactly once.
package soak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/ulfq"
	"github.com/alitto/pond"
	"github.com/rs/zerolog"
)

var (
	// ErrLost reports values that were enqueued but never dequeued.
	ErrLost = errors.New("soak: values lost")

	// ErrDuplicated reports values that were dequeued more than once.
	ErrDuplicated = errors.New("soak: values dequeued more than once")
)

// Report summarizes one round.
type Report struct {
	Enqueued   int64
	Dequeued   int64
	Spins      int64 // Dequeue calls that reported ErrSpin
	Empties    int64 // Dequeue calls that found the queue empty
	Duplicates int   // Values seen more than once
	Missing    int   // Values never seen
	Footprint  int   // Nodes allocated by the queue
	Elapsed    time.Duration
}

// round is the shared state of one Run.
type round struct {
	cfg      Config
	total    int64
	seen     []atomix.Int32
	enqueued atomix.Int64
	consumed atomix.Int64
	spins    atomix.Int64
	empties  atomix.Int64
	done     context.CancelFunc
}

func (r *round) record(v int) {
	if v >= 0 && v < len(r.seen) {
		r.seen[v].Add(1)
	}
	if r.consumed.AddAcqRel(1) == r.total {
		r.done()
	}
}

// Run executes one round: cfg.Producers goroutines each enqueue cfg.Items
// distinct values while cfg.Consumers goroutines dequeue them. After all
// workers join, the queue is drained until empty and every value must
// have been seen exactly once.
//
// Returns ErrLost or ErrDuplicated (wrapped with counts) on a violation,
// ctx.Err() if ctx ended first, or an Enqueue error. The Report is filled
// in every case except an invalid cfg.
func Run(ctx context.Context, cfg Config, log zerolog.Logger, m *Metrics) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := &round{
		cfg:   cfg,
		total: int64(cfg.total()),
		seen:  make([]atomix.Int32, cfg.total()),
		done:  cancel,
	}

	b := ulfq.New().ChunkSize(cfg.ChunkSize)
	var (
		produce   func(*int) error
		consume   func()
		drain     func() (int, error)
		footprint func() int
	)
	if cfg.Blocking {
		q := ulfq.BuildBlocking[int](b)
		produce = q.Enqueue
		consume = func() { r.consumeBlocking(runCtx, q) }
		drain = func() (int, error) { return drainBlocking(q) }
		footprint = q.Footprint
	} else {
		q := ulfq.Build[int](b)
		produce = q.Enqueue
		consume = func() { r.consumeSpinning(runCtx, q) }
		drain = q.DequeueSpin
		footprint = q.Footprint
	}

	log.Debug().
		Int("producers", cfg.Producers).
		Int("consumers", cfg.Consumers).
		Int("items", cfg.Items).
		Bool("blocking", cfg.Blocking).
		Msg("soak round started")

	start := time.Now()
	if r.total == 0 {
		cancel()
	}
	workers := cfg.Producers + cfg.Consumers
	pool := pond.New(workers, workers)
	errs := make([]error, cfg.Producers)
	for p := range cfg.Producers {
		pool.Submit(func() {
			if err := r.produce(p, produce); err != nil {
				errs[p] = err
				cancel()
			}
		})
	}
	for range cfg.Consumers {
		pool.Submit(consume)
	}
	pool.StopAndWait()

	// Drain: whatever is left must come out before the queue reports empty.
	for {
		v, err := drain()
		if err != nil {
			break
		}
		r.record(v)
	}

	rep := Report{
		Enqueued:  r.enqueued.Load(),
		Dequeued:  r.consumed.Load(),
		Spins:     r.spins.Load(),
		Empties:   r.empties.Load(),
		Footprint: footprint(),
		Elapsed:   time.Since(start),
	}
	for i := range r.seen {
		switch n := r.seen[i].Load(); {
		case n == 0:
			rep.Missing++
		case n > 1:
			rep.Duplicates++
		}
	}

	err := errors.Join(errs...)
	if err == nil && rep.Enqueued < r.total {
		err = ctx.Err()
	}
	if err == nil {
		err = rep.verify(r.total)
	}
	m.observe(rep, err != nil)

	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Int64("enqueued", rep.Enqueued).
		Int64("dequeued", rep.Dequeued).
		Int64("spins", rep.Spins).
		Int64("empties", rep.Empties).
		Int("duplicates", rep.Duplicates).
		Int("missing", rep.Missing).
		Int("footprint", rep.Footprint).
		Dur("elapsed", rep.Elapsed).
		Msg("soak round finished")
	return rep, err
}

func (rep Report) verify(total int64) error {
	var errs []error
	if rep.Missing > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d", ErrLost, rep.Missing, total))
	}
	if rep.Duplicates > 0 {
		errs = append(errs, fmt.Errorf("%w: %d of %d", ErrDuplicated, rep.Duplicates, total))
	}
	return errors.Join(errs...)
}

// produce enqueues the values id*Items .. id*Items+Items-1.
func (r *round) produce(id int, enqueue func(*int) error) error {
	for i := range r.cfg.Items {
		v := id*r.cfg.Items + i
		if err := enqueue(&v); err != nil {
			return fmt.Errorf("producer %d: %w", id, err)
		}
		r.enqueued.AddAcqRel(1)
	}
	return nil
}

func (r *round) consumeSpinning(ctx context.Context, q *ulfq.Queue[int]) {
	var spins, empties int64
	defer func() {
		r.spins.AddAcqRel(spins)
		r.empties.AddAcqRel(empties)
	}()

	backoff := iox.Backoff{}
	for ctx.Err() == nil {
		v, err := q.Dequeue()
		switch {
		case err == nil:
			r.record(v)
			backoff.Reset()
		case ulfq.IsSpin(err):
			spins++
		default:
			empties++
			backoff.Wait()
		}
	}
}

func (r *round) consumeBlocking(ctx context.Context, q *ulfq.Blocking[int]) {
	for {
		v, err := q.Dequeue(ctx)
		if err != nil {
			return
		}
		r.record(v)
	}
}

func drainBlocking(q *ulfq.Blocking[int]) (int, error) {
	for {
		v, err := q.TryDequeue()
		if !ulfq.IsSpin(err) {
			return v, err
		}
	}
}
