// Copyright (C) 2026 Compiler Design Lab, Saarland University
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package divergence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	divergentValuesMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vplan_rv_divergence_values_marked_total",
		Help: "Total values marked divergent across all Propagator.Compute runs",
	})

	joinBlockComputations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vplan_rv_divergence_oracle_join_block_computations_total",
		Help: "Total JoinBlockOracle cache-miss computations",
	})

	propagatorIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vplan_rv_divergence_propagator_worklist_iterations",
		Help:    "Work-list pops per Propagator.Compute call",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	})
)
