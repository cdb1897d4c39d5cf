package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_total",
			Help: "Total number of finished dispatches by final state",
		},
		[]string{"state"},
	)

	OfferOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_offer_outcomes_total",
			Help: "Offer resolutions by outcome",
		},
		[]string{"outcome"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Time from dispatch start to final state",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	DispatchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_in_flight",
			Help: "Number of dispatches currently running",
		},
	)
)

const (
	outcomeSkipped  = "skipped"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)
