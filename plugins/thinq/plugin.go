package thinq

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/config"
	"github.com/joshp123/thinqhome/internal/core"
	"github.com/joshp123/thinqhome/internal/oauth"
	"github.com/joshp123/thinqhome/internal/rate"
)

//go:embed AGENTS.md
var agentsMD string

//go:embed dashboard.json
var dashboardJSON []byte

// DiscoveryRetryInterval is how often a failed discovery is retried.
const DiscoveryRetryInterval = time.Minute

// Plugin implements the thinqhome plugin contract for LG ThinQ appliances.
type Plugin struct {
	client         *Client
	statePath      string
	discoveryRetry time.Duration

	mu            sync.RWMutex
	registry      Registry
	health        core.HealthStatus
	healthMessage string
}

var (
	_ core.Plugin         = (*Plugin)(nil)
	_ core.EntityProvider = (*Plugin)(nil)
	_ rate.RateLimited    = (*Plugin)(nil)
)

// NewPlugin constructs the ThinQ plugin from config. Construction errors are
// reported through Health rather than aborting startup.
func NewPlugin(cfg *config.ThinqConfig, oauthCfg *config.OAuthConfig) (*Plugin, bool) {
	if cfg == nil {
		return nil, false
	}

	runtimeCfg, err := ConfigFromYAML(cfg, oauthCfg)
	if err != nil {
		return &Plugin{health: core.HealthError, healthMessage: err.Error()}, true
	}

	p := &Plugin{statePath: runtimeCfg.StatePath}
	client, err := NewClient(runtimeCfg, p.OAuthDeclaration(), p.RateLimits(), oauthCfg)
	if err != nil {
		p.health = core.HealthError
		p.healthMessage = err.Error()
		return p, true
	}

	return NewPluginWithClient(client, runtimeCfg.StatePath), true
}

// NewPluginWithClient builds a healthy plugin around an existing client.
func NewPluginWithClient(client *Client, statePath string) *Plugin {
	return &Plugin{client: client, statePath: statePath, discoveryRetry: DiscoveryRetryInterval, health: core.HealthHealthy}
}

func (p *Plugin) ID() string {
	return "thinq"
}

func (p *Plugin) Manifest() core.Manifest {
	return core.Manifest{
		PluginID:    "thinq",
		DisplayName: "LG ThinQ",
		Version:     "0.1.0",
		Services:    []string{ServiceName},
	}
}

func (p *Plugin) AgentsMD() string {
	return agentsMD
}

func (p *Plugin) OAuthDeclaration() oauth.Declaration {
	statePath := p.statePath
	if statePath == "" {
		statePath = defaultStatePath
	}
	return oauth.Declaration{
		Provider:     "thinq",
		Flow:         oauth.FlowAuthCode,
		AuthorizeURL: "https://us.m.lgaccount.com/emp/oauth2/authorize",
		TokenURL:     "https://us.m.lgaccount.com/emp/oauth2/token",
		Scope:        "offline_access",
		StatePath:    statePath,
	}
}

func (p *Plugin) RateLimits() rate.Declaration {
	return rate.Provider("thinq").
		MaxRequestsPer(rate.Minute, 60).
		MaxRequestsPer(rate.Day, 10000).
		CacheFor(time.Minute).
		CooldownFor(2 * time.Minute).
		ReadHeaders(rate.Headers{RetryAfter: "Retry-After"})
}

func (p *Plugin) Dashboards() []core.Dashboard {
	return []core.Dashboard{{Name: "thinq-overview", JSON: dashboardJSON}}
}

func (p *Plugin) RegisterGRPC(server grpc.ServiceRegistrar) error {
	return RegisterThinqService(server, p, p.client)
}

func (p *Plugin) Collectors() []prometheus.Collector {
	if p.client == nil {
		return nil
	}
	return []prometheus.Collector{NewMetricsCollector(p)}
}

// SetupEntities discovers devices and registers their climate entities. If
// discovery fails the plugin is degraded and discovery is retried in the
// background until it succeeds or ctx is done.
func (p *Plugin) SetupEntities(ctx context.Context, add climate.AddEntitiesFunc) error {
	if p.client == nil {
		return fmt.Errorf("thinq client not configured: %s", p.HealthMessage())
	}

	registry, err := Discover(ctx, p.client)
	if err != nil {
		p.setHealth(core.HealthDegraded, err.Error())
		go p.retryDiscovery(ctx, add)
		return err
	}
	p.install(registry, add)
	return nil
}

func (p *Plugin) retryDiscovery(ctx context.Context, add climate.AddEntitiesFunc) {
	interval := p.discoveryRetry
	if interval <= 0 {
		interval = DiscoveryRetryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := log.With().Str("component", "thinq").Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			registry, err := Discover(ctx, p.client)
			if err != nil {
				p.setHealth(core.HealthDegraded, err.Error())
				logger.Warn().Err(err).Dur("retry_in", interval).Msg("discovery failed")
				continue
			}
			p.setHealth(core.HealthHealthy, "")
			p.install(registry, add)
			logger.Info().Int("devices", len(registry.All())).Msg("discovery recovered")
			return
		}
	}
}

func (p *Plugin) install(registry Registry, add climate.AddEntitiesFunc) {
	p.mu.Lock()
	p.registry = registry
	p.mu.Unlock()

	SetupEntry(registry, add)
}

// Registry returns the devices found by the last discovery.
func (p *Plugin) Registry() Registry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.registry
}

func (p *Plugin) Health() core.HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

func (p *Plugin) HealthMessage() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthMessage
}

func (p *Plugin) setHealth(status core.HealthStatus, message string) {
	p.mu.Lock()
	p.health = status
	p.healthMessage = message
	p.mu.Unlock()
}
