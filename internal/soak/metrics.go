// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package soak

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports soak counters. A nil *Metrics records nothing.
type Metrics struct {
	Enqueued  prometheus.Counter
	Dequeued  prometheus.Counter
	Spins     prometheus.Counter
	Empties   prometheus.Counter
	Rounds    prometheus.Counter
	Failures  prometheus.Counter
	Footprint prometheus.Gauge
}

// NewMetrics creates the soak metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ulfq",
			Subsystem: "soak",
			Name:      name,
			Help:      help,
		})
	}
	m := &Metrics{
		Enqueued: counter("enqueued_total", "Values enqueued."),
		Dequeued: counter("dequeued_total", "Values dequeued."),
		Spins:    counter("spins_total", "Dequeue calls that reported ErrSpin."),
		Empties:  counter("empties_total", "Dequeue calls that found the queue empty."),
		Rounds:   counter("rounds_total", "Completed soak rounds."),
		Failures: counter("failures_total", "Rounds that lost or duplicated values."),
		Footprint: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ulfq",
			Subsystem: "soak",
			Name:      "footprint_nodes",
			Help:      "Nodes allocated by the queue of the last round.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.Enqueued, m.Dequeued, m.Spins, m.Empties, m.Rounds, m.Failures, m.Footprint,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(r Report, failed bool) {
	if m == nil {
		return
	}
	m.Enqueued.Add(float64(r.Enqueued))
	m.Dequeued.Add(float64(r.Dequeued))
	m.Spins.Add(float64(r.Spins))
	m.Empties.Add(float64(r.Empties))
	m.Rounds.Inc()
	if failed {
		m.Failures.Inc()
	}
	m.Footprint.Set(float64(r.Footprint))
}
