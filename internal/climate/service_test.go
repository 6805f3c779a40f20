package climate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func dialClimateService(t *testing.T, platform *Platform) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	if err := RegisterClimateService(server, platform); err != nil {
		t.Fatalf("register: %v", err)
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
	return NewClient(conn)
}

func TestClimateServiceOverGRPC(t *testing.T) {
	p, entity := newTestPlatform(t)
	client := dialClimateService(t, p)
	ctx := context.Background()

	states, err := client.ListEntities(ctx)
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if len(states) != 1 || states[0].EntityID != "climate.bedroom" {
		t.Fatalf("unexpected entities: %+v", states)
	}
	if states[0].Attributes.CurrentTemperature == nil || *states[0].Attributes.CurrentTemperature != 24.5 {
		t.Fatalf("unexpected current temperature: %v", states[0].Attributes.CurrentTemperature)
	}
	if !states[0].Attributes.SupportedFeatures.Has(FeatureSwingMode) {
		t.Fatalf("expected swing feature, got %d", states[0].Attributes.SupportedFeatures)
	}

	state, err := client.CallService(ctx, "climate.bedroom", ServiceSetFanMode, map[string]any{"fan_mode": "HIGH"})
	if err != nil {
		t.Fatalf("CallService: %v", err)
	}
	if state.Attributes.FanMode != "HIGH" || entity.fanMode != "HIGH" {
		t.Fatalf("fan mode not applied: %+v", state.Attributes)
	}

	got, err := client.GetEntity(ctx, "climate.bedroom")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.Attributes.FanMode != "HIGH" {
		t.Fatalf("unexpected fan mode: %s", got.Attributes.FanMode)
	}
}

func TestClimateServiceStatusCodes(t *testing.T) {
	p, _ := newTestPlatform(t)
	client := dialClimateService(t, p)
	ctx := context.Background()

	if _, err := client.GetEntity(ctx, "climate.missing"); status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := client.CallService(ctx, "climate.bedroom", "set_hvac_mode", map[string]any{"hvac_mode": "turbo"}); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if _, err := client.CallService(ctx, "climate.bedroom", "dance", nil); status.Code(err) != codes.Unimplemented {
		t.Fatalf("expected Unimplemented, got %v", err)
	}
}

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w [x]", ErrInvalidHVACMode), codes.InvalidArgument},
		{fmt.Errorf("%w: a", ErrNotSupported), codes.FailedPrecondition},
		{errors.New("socket closed"), codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(StatusFromError(tc.err)); got != tc.want {
			t.Fatalf("%v: expected %s, got %s", tc.err, tc.want, got)
		}
	}
	if StatusFromError(nil) != nil {
		t.Fatalf("nil error must map to nil")
	}
}
