package thinq

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/core"
	"github.com/joshp123/thinqhome/internal/rpc"
)

func setupPlugin(t *testing.T) (*Plugin, *climate.Platform, *fakeCloud) {
	t.Helper()

	client, cloud := newTestClient(t)
	plugin := NewPluginWithClient(client, "")
	platform := climate.NewPlatform()
	if err := plugin.SetupEntities(context.Background(), platform.AddEntities); err != nil {
		t.Fatalf("SetupEntities: %v", err)
	}
	return plugin, platform, cloud
}

func dialPlugin(t *testing.T, plugin *Plugin) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	if err := plugin.RegisterGRPC(server); err != nil {
		t.Fatalf("RegisterGRPC: %v", err)
	}
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSetupEntitiesRegistersClimate(t *testing.T) {
	plugin, platform, _ := setupPlugin(t)

	if plugin.Health() != core.HealthHealthy {
		t.Fatalf("expected healthy plugin, got %s", plugin.Health())
	}
	state, ok := platform.State("climate.living_room")
	if !ok {
		t.Fatalf("expected climate.living_room, got %v", platform.EntityIDs())
	}
	if state.State != string(climate.HVACModeDry) || state.UniqueID != "ac-1-AC" {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.Attributes.MinTemp != 18 || state.Attributes.MaxTemp != 30 {
		t.Fatalf("unexpected bounds: %+v", state.Attributes)
	}
}

func TestSetupEntitiesWithoutClient(t *testing.T) {
	plugin := &Plugin{health: core.HealthError, healthMessage: "country is required"}
	if err := plugin.SetupEntities(context.Background(), func([]climate.Climate) {}); err == nil {
		t.Fatalf("expected error without client")
	}
	if plugin.Collectors() != nil {
		t.Fatalf("expected no collectors without client")
	}
}

func TestSetupEntitiesRetriesFailedDiscovery(t *testing.T) {
	client, cloud := newTestClient(t)
	cloud.devicesStatus = http.StatusServiceUnavailable

	plugin := NewPluginWithClient(client, "")
	plugin.discoveryRetry = 10 * time.Millisecond
	platform := climate.NewPlatform()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := plugin.SetupEntities(ctx, platform.AddEntities); err == nil {
		t.Fatalf("expected discovery error")
	}
	if plugin.Health() != core.HealthDegraded {
		t.Fatalf("expected degraded plugin, got %s", plugin.Health())
	}
	if len(platform.EntityIDs()) != 0 {
		t.Fatalf("expected no entities before discovery succeeds")
	}

	cloud.mu.Lock()
	cloud.devicesStatus = 0
	cloud.mu.Unlock()

	deadline := time.Now().Add(5 * time.Second)
	for len(platform.EntityIDs()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("discovery was not retried; health %s: %s", plugin.Health(), plugin.HealthMessage())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := platform.State("climate.living_room"); !ok {
		t.Fatalf("expected climate.living_room, got %v", platform.EntityIDs())
	}
	if plugin.Health() != core.HealthHealthy || len(plugin.Registry().All()) != 1 {
		t.Fatalf("expected healthy plugin with one device, got %s %d", plugin.Health(), len(plugin.Registry().All()))
	}
}

func TestThinqServiceOverGRPC(t *testing.T) {
	plugin, _, _ := setupPlugin(t)
	conn := dialPlugin(t, plugin)
	ctx := context.Background()

	var list struct {
		Devices []deviceView `json:"devices"`
	}
	if err := rpc.Invoke(ctx, conn, ServiceName, "ListDevices", map[string]any{}, &list); err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(list.Devices) != 1 || list.Devices[0].ID != "ac-1" || !list.Devices[0].Available {
		t.Fatalf("unexpected devices: %+v", list.Devices)
	}

	var raw struct {
		DeviceID string         `json:"device_id"`
		State    map[string]any `json:"state"`
	}
	if err := rpc.Invoke(ctx, conn, ServiceName, "GetDeviceState", map[string]any{"device_id": "ac-1"}, &raw); err != nil {
		t.Fatalf("GetDeviceState: %v", err)
	}
	if raw.DeviceID != "ac-1" || raw.State["airConJobMode"] == nil {
		t.Fatalf("unexpected raw state: %+v", raw)
	}

	err := rpc.Invoke(ctx, conn, ServiceName, "RefreshDevice", map[string]any{"device_id": "missing"}, nil)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	err = rpc.Invoke(ctx, conn, ServiceName, "GetDeviceState", map[string]any{}, nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestMetricsCollectorReadsCachedState(t *testing.T) {
	plugin, _, _ := setupPlugin(t)

	registry := prometheus.NewRegistry()
	for _, c := range plugin.Collectors() {
		registry.MustRegister(c)
	}
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetGauge() != nil {
				values[family.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}

	checks := map[string]float64{
		"thinqhome_thinq_scrape_success":      1,
		"thinqhome_thinq_device_available":    1,
		"thinqhome_thinq_on_off":              1,
		"thinqhome_thinq_operation_mode":      1,
		"thinqhome_thinq_current_temperature": 24,
		"thinqhome_thinq_target_temperature":  21,
	}
	for name, want := range checks {
		got, ok := values[name]
		if !ok {
			t.Fatalf("missing metric %s", name)
		}
		if got != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
	}
}
