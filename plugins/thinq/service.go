package thinq

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joshp123/thinqhome/internal/rpc"
)

const ServiceName = "thinqhome.plugins.thinq.v1.ThinqService"

// devices is the view of the plugin the service needs.
type devices interface {
	Registry() Registry
}

type deviceView struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Model      string  `json:"model,omitempty"`
	Available  bool    `json:"available"`
	LastUpdate string  `json:"last_update,omitempty"`
	State      ACState `json:"state"`
}

type service struct {
	devices devices
	client  *Client
}

func RegisterThinqService(server grpc.ServiceRegistrar, devices devices, client *Client) error {
	svc := &service{devices: devices, client: client}
	return rpc.Register(server, rpc.Service{
		Package: "thinqhome.plugins.thinq.v1",
		Name:    "ThinqService",
		Methods: []rpc.Method{
			{Name: "ListDevices", Handler: svc.ListDevices},
			{Name: "GetDeviceState", Handler: svc.GetDeviceState},
			{Name: "RefreshDevice", Handler: svc.RefreshDevice},
		},
	})
}

func (s *service) ListDevices(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	views := []deviceView{}
	for _, d := range s.devices.Registry().All() {
		views = append(views, viewOf(d))
	}
	return encode(map[string]any{"devices": views})
}

// GetDeviceState returns the raw cloud state document of a device.
func (s *service) GetDeviceState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.client == nil {
		return nil, status.Error(codes.FailedPrecondition, "thinq client not configured")
	}
	d, err := s.lookup(req)
	if err != nil {
		return nil, err
	}

	payload, err := s.client.StateJSON(ctx, d.UniqueID())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get device state: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, status.Errorf(codes.Internal, "decode device state: %v", err)
	}
	return encode(map[string]any{"device_id": d.UniqueID(), "state": raw})
}

// RefreshDevice polls a device immediately and returns the cached view.
func (s *service) RefreshDevice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	d, err := s.lookup(req)
	if err != nil {
		return nil, err
	}
	if err := d.Refresh(ctx); err != nil {
		return nil, status.Errorf(codes.Unavailable, "refresh device: %v", err)
	}
	return encode(map[string]any{"device": viewOf(d)})
}

func (s *service) lookup(req *structpb.Struct) (*Device, error) {
	deviceID := rpc.StringField(req, "device_id")
	if deviceID == "" {
		return nil, status.Error(codes.InvalidArgument, "device_id is required")
	}
	d, ok := s.devices.Registry().Find(deviceID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "device %q not found", deviceID)
	}
	return d, nil
}

func viewOf(d *Device) deviceView {
	view := deviceView{
		ID:        d.UniqueID(),
		Name:      d.Name(),
		Type:      string(d.Type()),
		Model:     d.DeviceInfo().Model,
		Available: d.Available(),
		State:     d.State(),
	}
	if ts := d.LastUpdate(); !ts.IsZero() {
		view.LastUpdate = ts.UTC().Format(time.RFC3339)
	}
	return view
}

func encode(v any) (*structpb.Struct, error) {
	out, err := rpc.Encode(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}
