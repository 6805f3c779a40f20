package core

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joshp123/thinqhome/internal/rpc"
)

const RegistryServiceName = "thinqhome.registry.v1.Registry"

// PluginSummary is a registry list entry.
type PluginSummary struct {
	PluginID    string `json:"plugin_id"`
	DisplayName string `json:"display_name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
}

// DashboardRef points at a dashboard served over HTTP.
type DashboardRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// PluginDescriptor is the full registry view of a plugin.
type PluginDescriptor struct {
	PluginID      string         `json:"plugin_id"`
	DisplayName   string         `json:"display_name"`
	Version       string         `json:"version"`
	Services      []string       `json:"services"`
	AgentsMD      string         `json:"agents_md"`
	Status        string         `json:"status"`
	HealthMessage string         `json:"health_message,omitempty"`
	Dashboards    []DashboardRef `json:"dashboards"`
}

type listPluginsResponse struct {
	Plugins []PluginSummary `json:"plugins"`
}

type describePluginResponse struct {
	Plugin *PluginDescriptor `json:"plugin,omitempty"`
}

// RegistryService provides plugin discovery to clients.
type RegistryService struct {
	plugins []Plugin
	mu      sync.RWMutex
}

func NewRegistryService(plugins []Plugin) *RegistryService {
	return &RegistryService{plugins: plugins}
}

// Register exposes the registry on server.
func (r *RegistryService) Register(server grpc.ServiceRegistrar) error {
	return rpc.Register(server, rpc.Service{
		Package: "thinqhome.registry.v1",
		Name:    "Registry",
		Methods: []rpc.Method{
			{Name: "ListPlugins", Handler: r.handleListPlugins},
			{Name: "DescribePlugin", Handler: r.handleDescribePlugin},
		},
	})
}

func (r *RegistryService) ListPlugins(ctx context.Context) []PluginSummary {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	plugins := make([]PluginSummary, 0, len(r.plugins))
	for _, p := range r.plugins {
		manifest := p.Manifest()
		plugins = append(plugins, PluginSummary{
			PluginID:    manifest.PluginID,
			DisplayName: manifest.DisplayName,
			Version:     manifest.Version,
			Status:      string(p.Health()),
		})
	}
	return plugins
}

func (r *RegistryService) DescribePlugin(ctx context.Context, pluginID string) (PluginDescriptor, bool) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		manifest := p.Manifest()
		if manifest.PluginID != pluginID {
			continue
		}

		descriptor := PluginDescriptor{
			PluginID:      manifest.PluginID,
			DisplayName:   manifest.DisplayName,
			Version:       manifest.Version,
			Services:      manifest.Services,
			AgentsMD:      p.AgentsMD(),
			Status:        string(p.Health()),
			HealthMessage: p.HealthMessage(),
		}
		for _, d := range p.Dashboards() {
			descriptor.Dashboards = append(descriptor.Dashboards, DashboardRef{
				Name: d.Name,
				Path: "/dashboards/" + manifest.PluginID + "/" + d.Name + ".json",
			})
		}
		return descriptor, true
	}

	return PluginDescriptor{}, false
}

func (r *RegistryService) handleListPlugins(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return encodeResponse(listPluginsResponse{Plugins: r.ListPlugins(ctx)})
}

func (r *RegistryService) handleDescribePlugin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pluginID := rpc.StringField(req, "plugin_id")
	if pluginID == "" {
		return nil, status.Error(codes.InvalidArgument, "plugin_id is required")
	}
	descriptor, ok := r.DescribePlugin(ctx, pluginID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "plugin %q not found", pluginID)
	}
	return encodeResponse(describePluginResponse{Plugin: &descriptor})
}

func encodeResponse(v any) (*structpb.Struct, error) {
	out, err := rpc.Encode(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return out, nil
}

// RegistryClient queries a remote registry.
type RegistryClient struct {
	conn grpc.ClientConnInterface
}

func NewRegistryClient(conn grpc.ClientConnInterface) *RegistryClient {
	return &RegistryClient{conn: conn}
}

func (c *RegistryClient) ListPlugins(ctx context.Context) ([]PluginSummary, error) {
	var out listPluginsResponse
	if err := rpc.Invoke(ctx, c.conn, RegistryServiceName, "ListPlugins", nil, &out); err != nil {
		return nil, err
	}
	return out.Plugins, nil
}

func (c *RegistryClient) DescribePlugin(ctx context.Context, pluginID string) (PluginDescriptor, error) {
	var out describePluginResponse
	if err := rpc.Invoke(ctx, c.conn, RegistryServiceName, "DescribePlugin", map[string]string{"plugin_id": pluginID}, &out); err != nil {
		return PluginDescriptor{}, err
	}
	if out.Plugin == nil {
		return PluginDescriptor{}, status.Errorf(codes.NotFound, "plugin %q not found", pluginID)
	}
	return *out.Plugin, nil
}
