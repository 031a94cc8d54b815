// Copyright (c) 2025 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toggleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "likes_toggles_total",
			Help: "Like toggles by outcome (liked, unliked, exhausted).",
		},
		[]string{"result"},
	)

	txConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "likes_tx_conflicts_total",
		Help: "Optimistic transaction conflicts seen while toggling likes.",
	})

	storeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "likes_store_errors_total",
			Help: "Like store failures by ledger operation.",
		},
		[]string{"operation"},
	)
)
