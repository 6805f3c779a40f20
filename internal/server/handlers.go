package server

import (
	"net/http"

	"github.com/joshp123/thinqhome/internal/core"
)

type pluginHealth struct {
	ID      string            `json:"id"`
	Status  core.HealthStatus `json:"status"`
	Message string            `json:"message,omitempty"`
}

// HealthHandler reports plugin health. It answers 503 while any plugin is in
// the error state; degraded plugins still count as live.
func HealthHandler(plugins []core.Plugin) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		code := http.StatusOK
		report := make([]pluginHealth, 0, len(plugins))
		for _, p := range plugins {
			status := p.Health()
			if !status.Live() {
				code = http.StatusServiceUnavailable
			}
			report = append(report, pluginHealth{ID: p.ID(), Status: status, Message: p.HealthMessage()})
		}

		writeJSON(w, code, map[string]any{"ok": code == http.StatusOK, "plugins": report})
	})
}
