package core

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/oauth"
)

// Plugin is what every compiled-in integration provides to the host.
type Plugin interface {
	ID() string
	Manifest() Manifest
	AgentsMD() string
	OAuthDeclaration() oauth.Declaration
	Dashboards() []Dashboard
	RegisterGRPC(grpc.ServiceRegistrar) error
	Collectors() []prometheus.Collector
	Health() HealthStatus
	HealthMessage() string
}

// EntityProvider is implemented by plugins that contribute climate entities
// to the host platform.
type EntityProvider interface {
	SetupEntities(ctx context.Context, add climate.AddEntitiesFunc) error
}

// HTTPRegistrant lets a plugin mount extra handlers on the HTTP mux.
type HTTPRegistrant interface {
	RegisterHTTP(*http.ServeMux)
}

// Manifest is the registry metadata for a plugin.
type Manifest struct {
	PluginID    string
	DisplayName string
	Version     string
	Services    []string
}

// Dashboard is an embedded Grafana dashboard.
type Dashboard struct {
	Name string
	JSON []byte
}

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "HEALTHY"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthError    HealthStatus = "ERROR"
)

// Live reports whether the plugin can still serve; a degraded plugin can.
func (s HealthStatus) Live() bool {
	return s == HealthHealthy || s == HealthDegraded
}
