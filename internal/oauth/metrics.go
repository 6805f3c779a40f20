package oauth

import (
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"
)

var (
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thinqhome_oauth_refresh_total",
			Help: "OAuth refresh attempts by result",
		},
		[]string{"provider", "result"},
	)
	tokenValid = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thinqhome_oauth_token_valid",
			Help: "Whether the last refresh produced a usable access token",
		},
		[]string{"provider"},
	)
	tokenExpiry = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thinqhome_oauth_token_expiry_timestamp_seconds",
			Help: "Unix time the current access token expires",
		},
		[]string{"provider"},
	)
	remotePersistOK = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thinqhome_oauth_remote_persist_ok",
			Help: "Whether the last blob mirror write succeeded",
		},
		[]string{"provider"},
	)
	scopeMismatch = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thinqhome_oauth_scope_mismatch_total",
			Help: "Stored states rejected for a scope other than the declared one",
		},
		[]string{"provider"},
	)
)

func recordRefresh(provider string, token *oauth2.Token, ok bool) {
	if !ok {
		refreshTotal.WithLabelValues(provider, "failure").Inc()
		tokenValid.WithLabelValues(provider).Set(0)
		return
	}
	refreshTotal.WithLabelValues(provider, "success").Inc()
	tokenValid.WithLabelValues(provider).Set(1)
	if token != nil && !token.Expiry.IsZero() {
		tokenExpiry.WithLabelValues(provider).Set(float64(token.Expiry.Unix()))
	}
}

func recordMirror(provider string, err error) {
	if err != nil {
		remotePersistOK.WithLabelValues(provider).Set(0)
		return
	}
	remotePersistOK.WithLabelValues(provider).Set(1)
}

// MetricsCollectors returns the token lifecycle collectors shared by all
// providers.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		refreshTotal,
		tokenValid,
		tokenExpiry,
		remotePersistOK,
		scopeMismatch,
	}
}
