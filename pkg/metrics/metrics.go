package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "archive", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "archive", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "archive", Name: "feed_mutations_total", Help: "Mutation gateway operations by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	FeedSnapshots = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "archive", Name: "feed_snapshots_delivered_total", Help: "Full feed snapshots delivered to live subscribers."},
	)
	LiveSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "archive", Name: "feed_live_subscribers", Help: "Currently connected live feed subscribers."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Mutations)
	reg.MustRegister(FeedSnapshots)
	reg.MustRegister(LiveSubscribers)
}
