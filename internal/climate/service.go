package climate

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joshp123/thinqhome/internal/rpc"
)

const ServiceName = "thinqhome.climate.v1.ClimateService"

type callRequest struct {
	EntityID string         `json:"entity_id"`
	Service  string         `json:"service"`
	Data     map[string]any `json:"data"`
}

type entityResponse struct {
	Entity State `json:"entity"`
}

type listResponse struct {
	Entities []State `json:"entities"`
}

// RegisterClimateService exposes the platform over gRPC.
func RegisterClimateService(server grpc.ServiceRegistrar, platform *Platform) error {
	svc := &service{platform: platform}
	return rpc.Register(server, rpc.Service{
		Package: "thinqhome.climate.v1",
		Name:    "ClimateService",
		Methods: []rpc.Method{
			{Name: "ListEntities", Handler: svc.ListEntities},
			{Name: "GetEntity", Handler: svc.GetEntity},
			{Name: "CallService", Handler: svc.CallService},
		},
	})
}

type service struct {
	platform *Platform
}

func (s *service) ListEntities(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.platform == nil {
		return nil, status.Error(codes.FailedPrecondition, "climate platform not configured")
	}
	return encode(listResponse{Entities: s.platform.States()})
}

func (s *service) GetEntity(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.platform == nil {
		return nil, status.Error(codes.FailedPrecondition, "climate platform not configured")
	}
	entityID := rpc.StringField(req, "entity_id")
	if entityID == "" {
		return nil, status.Error(codes.InvalidArgument, "entity_id is required")
	}

	state, ok := s.platform.State(entityID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "entity %q not found", entityID)
	}
	return encode(entityResponse{Entity: state})
}

func (s *service) CallService(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.platform == nil {
		return nil, status.Error(codes.FailedPrecondition, "climate platform not configured")
	}

	var in callRequest
	if err := rpc.Decode(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	if in.EntityID == "" {
		return nil, status.Error(codes.InvalidArgument, "entity_id is required")
	}
	if in.Service == "" {
		return nil, status.Error(codes.InvalidArgument, "service is required")
	}

	if err := s.platform.CallService(ctx, in.EntityID, in.Service, in.Data); err != nil {
		return nil, StatusFromError(err)
	}

	state, _ := s.platform.State(in.EntityID)
	return encode(entityResponse{Entity: state})
}

// StatusFromError maps climate sentinels to gRPC status codes.
func StatusFromError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEntityNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrUnknownService):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, ErrNotSupported):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrInvalidServiceData), errors.Is(err, ErrInvalidHVACMode):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}

func encode(v any) (*structpb.Struct, error) {
	out, err := rpc.Encode(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}

// Client calls a remote ClimateService.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) ListEntities(ctx context.Context) ([]State, error) {
	var out listResponse
	if err := rpc.Invoke(ctx, c.conn, ServiceName, "ListEntities", nil, &out); err != nil {
		return nil, err
	}
	return out.Entities, nil
}

func (c *Client) GetEntity(ctx context.Context, entityID string) (State, error) {
	var out entityResponse
	if err := rpc.Invoke(ctx, c.conn, ServiceName, "GetEntity", map[string]any{"entity_id": entityID}, &out); err != nil {
		return State{}, err
	}
	return out.Entity, nil
}

func (c *Client) CallService(ctx context.Context, entityID, service string, data map[string]any) (State, error) {
	if data == nil {
		data = map[string]any{}
	}
	req := callRequest{EntityID: entityID, Service: service, Data: data}
	var out entityResponse
	if err := rpc.Invoke(ctx, c.conn, ServiceName, "CallService", req, &out); err != nil {
		return State{}, err
	}
	return out.Entity, nil
}
