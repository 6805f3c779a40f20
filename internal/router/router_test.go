package router

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/core"
	"github.com/joshp123/thinqhome/internal/oauth"
)

type testPlugin struct {
	registerErr error
	registered  *bool
}

func (p testPlugin) ID() string { return "demo" }

func (p testPlugin) Manifest() core.Manifest {
	return core.Manifest{PluginID: "demo", DisplayName: "Demo", Version: "0.1.0"}
}

func (p testPlugin) AgentsMD() string { return "" }

func (p testPlugin) OAuthDeclaration() oauth.Declaration { return oauth.Declaration{} }

func (p testPlugin) Dashboards() []core.Dashboard { return nil }

func (p testPlugin) RegisterGRPC(grpc.ServiceRegistrar) error {
	if p.registered != nil {
		*p.registered = true
	}
	return p.registerErr
}

func (p testPlugin) Collectors() []prometheus.Collector { return nil }

func (p testPlugin) Health() core.HealthStatus { return core.HealthHealthy }

func (p testPlugin) HealthMessage() string { return "" }

func TestRegisterPluginsServesRegistryAndClimate(t *testing.T) {
	var registered bool
	plugins := []core.Plugin{testPlugin{registered: &registered}}

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	if err := RegisterPlugins(server, plugins, climate.NewPlatform()); err != nil {
		t.Fatalf("RegisterPlugins: %v", err)
	}
	if !registered {
		t.Fatalf("expected plugin services to be registered")
	}
	go func() { _ = server.Serve(lis) }()
	defer server.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	summaries, err := core.NewRegistryClient(conn).ListPlugins(context.Background())
	if err != nil {
		t.Fatalf("ListPlugins: %v", err)
	}
	if len(summaries) != 1 || summaries[0].PluginID != "demo" {
		t.Fatalf("unexpected plugins: %+v", summaries)
	}

	states, err := climate.NewClient(conn).ListEntities(context.Background())
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected no entities, got %d", len(states))
	}
}

func TestRegisterPluginsPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	err := RegisterPlugins(grpc.NewServer(), []core.Plugin{testPlugin{registerErr: boom}}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped plugin error, got %v", err)
	}
}
