// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relay"

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions currently held by the registry.",
	})

	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Session state transitions by target state.",
	}, []string{"state"})

	Negotiations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "negotiations_total",
		Help:      "Offer negotiations by result.",
	}, []string{"result"})

	RelayPackets = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_packets_total",
		Help:      "RTP packets handled by relay tracks by outcome.",
	}, []string{"outcome"})

	TargetBitrate = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "target_bitrate_bps",
		Help:      "Outbound target bitrate applied by relay tracks.",
		Buckets:   prometheus.ExponentialBuckets(125_000, 2, 8),
	})
)
