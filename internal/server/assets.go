package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/joshp123/thinqhome/internal/core"
)

// promLogger routes promhttp errors into the structured log.
type promLogger struct{}

func (promLogger) Println(v ...interface{}) {
	log.Warn().Str("component", "metrics").Msg(fmt.Sprint(v...))
}

// MetricsHandler exposes the registry. Collection errors are logged and the
// remaining metrics are still served.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog:      promLogger{},
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      registry,
	})
}

// DashboardsHandler serves dashboard JSON by path and lists all dashboards at
// the /dashboards/ root.
func DashboardsHandler(assets []core.DashboardAsset) http.Handler {
	byPath := make(map[string][]byte, len(assets))
	for _, asset := range assets {
		byPath[asset.Path] = asset.JSON
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Cache-Control", "no-cache")
		if r.URL.Path == "/dashboards/" {
			writeJSON(w, http.StatusOK, map[string]any{"dashboards": assets})
			return
		}
		data, ok := byPath[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
