package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/thinqhome/internal/core"
)

// NewMux wires the HTTP surface: health, metrics, dashboards, and any
// handlers the plugins contribute.
func NewMux(plugins []core.Plugin, registry *prometheus.Registry) (*http.ServeMux, error) {
	assets, err := core.DashboardAssets(plugins)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/health", HealthHandler(plugins))
	mux.Handle("/metrics", MetricsHandler(registry))
	mux.Handle("/dashboards/", DashboardsHandler(assets))
	for _, p := range plugins {
		if registrant, ok := p.(core.HTTPRegistrant); ok {
			registrant.RegisterHTTP(mux)
		}
	}
	return mux, nil
}
