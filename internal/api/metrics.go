// ABOUTME: Prometheus metrics for the HTTP layer.
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	listingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scanmgr",
		Subsystem: "api",
		Name:      "listings_total",
		Help:      "Resource listings served, by resource type and outcome.",
	}, []string{"resource", "outcome"})

	listingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scanmgr",
		Subsystem: "api",
		Name:      "listing_duration_seconds",
		Help:      "Resource listing latency, by resource type.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"resource"})
)
