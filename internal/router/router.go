package router

import (
	"fmt"

	"google.golang.org/grpc"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/core"
)

// RegisterPlugins registers the core services and every plugin service on
// the gRPC server. A nil platform skips the climate service.
func RegisterPlugins(server grpc.ServiceRegistrar, plugins []core.Plugin, platform *climate.Platform) error {
	if err := core.NewRegistryService(plugins).Register(server); err != nil {
		return fmt.Errorf("register registry service: %w", err)
	}

	if platform != nil {
		if err := climate.RegisterClimateService(server, platform); err != nil {
			return fmt.Errorf("register climate service: %w", err)
		}
	}

	for _, p := range plugins {
		if err := p.RegisterGRPC(server); err != nil {
			return fmt.Errorf("register %s: %w", p.ID(), err)
		}
	}
	return nil
}
