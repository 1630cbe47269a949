package services

import "github.com/prometheus/client_golang/prometheus"

var metricsNamespace = "nudge"

var (
	heartbeatsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "heartbeats_total",
		Help:      "Heartbeats recorded.",
	})

	nudgesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "nudges_total",
		Help:      "Nudge requests by result.",
	}, []string{"result"})

	deliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "deliveries_total",
		Help:      "Per-endpoint push deliveries by outcome.",
	}, []string{"outcome"})

	subscriptionsPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "subscriptions_pruned_total",
		Help:      "Subscriptions removed after the push service reported them gone.",
	})

	deliveryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "delivery_duration_seconds",
		Help:      "Latency of single push deliveries.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)

const (
	nudgeResultSent          = "sent"
	nudgeResultNoSubscribers = "no_subscribers"
	nudgeResultFailed        = "failed"
)

func init() {
	prometheus.MustRegister(heartbeatsTotal)
	prometheus.MustRegister(nudgesTotal)
	prometheus.MustRegister(deliveriesTotal)
	prometheus.MustRegister(subscriptionsPruned)
	prometheus.MustRegister(deliveryDuration)
}
