// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/election/utils/wrappers"
)

// Metrics is the decision kernel's metric set.
type Metrics struct {
	// LiveElections tracks the number of elections currently held in
	// the kernel's map.
	LiveElections prometheus.Gauge

	// DecisionTime tracks how long (in ns) an election took to reach
	// its decision.
	DecisionTime Averager
}

// New registers the kernel's metrics against reg and returns them. reg
// may be nil, in which case the metrics still count locally but are not
// exported; useful for tests that construct many kernels.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		LiveElections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "elections_live",
			Help: "Number of elections currently in the elections map.",
		}),
	}
	if reg == nil {
		m.DecisionTime = &averager{}
		return m, nil
	}

	errs := wrappers.Errs{}
	errs.Add(reg.Register(m.LiveElections))
	m.DecisionTime = NewAveragerWithErrs(
		"election_decision_duration_ns",
		"time (in ns) an election took to reach its decision",
		reg,
		&errs,
	)
	return m, errs.Err()
}
