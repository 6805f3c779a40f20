package rate

import "github.com/prometheus/client_golang/prometheus"

var (
	remainingGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thinqhome_rate_limit_remaining",
			Help: "Remaining requests reported by the provider for a quota window",
		},
		[]string{"provider", "window"},
	)
	retryAfterGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thinqhome_rate_limit_retry_after_seconds",
			Help: "Seconds left in the current provider cooldown",
		},
		[]string{"provider"},
	)
	responsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thinqhome_provider_responses_total",
			Help: "Provider responses by HTTP status code",
		},
		[]string{"provider", "code"},
	)
	blockedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thinqhome_rate_limit_blocked_total",
			Help: "Requests blocked by the rate-limit wrapper",
		},
		[]string{"provider", "reason"},
	)
	cacheEntriesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thinqhome_rate_limit_cache_entries",
			Help: "Cached responses available for replay while rate limited",
		},
		[]string{"provider"},
	)
)

// MetricsCollectors returns the budget collectors shared by all providers.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		remainingGauge,
		retryAfterGauge,
		responsesTotal,
		blockedCounter,
		cacheEntriesGauge,
	}
}
