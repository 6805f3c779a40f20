package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/config"
	"github.com/joshp123/thinqhome/internal/core"
	"github.com/joshp123/thinqhome/internal/logging"
	"github.com/joshp123/thinqhome/internal/mqttbridge"
	"github.com/joshp123/thinqhome/internal/oauth"
	"github.com/joshp123/thinqhome/internal/plugins"
	"github.com/joshp123/thinqhome/internal/rate"
	"github.com/joshp123/thinqhome/internal/router"
	"github.com/joshp123/thinqhome/internal/server"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "oauth" {
		oauthMain(os.Args[2:])
		return
	}

	flags := flag.NewFlagSet("thinqhome", flag.ExitOnError)
	configPath := flags.String("config", envOrDefault("THINQHOME_CONFIG", config.DefaultPath), "Path to config.yaml")
	allPlugins := flags.Bool("all-plugins", false, "Run every compiled plugin regardless of config sections")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("config", err)
	}
	if err := logging.Setup(cfg.Core.LogLevel, cfg.Core.LogFormat, os.Stderr); err != nil {
		fatal("logging", err)
	}

	if err := run(cfg, *allPlugins); err != nil {
		log.Fatal().Err(err).Msg("thinqhome stopped")
	}
}

func run(cfg *config.Config, allPlugins bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	compiled := plugins.Compiled(cfg)
	enabled := config.EnabledPlugins(cfg)
	if err := core.ValidateEnabledPlugins(compiled, enabled, allPlugins); err != nil {
		return err
	}
	active := core.FilterPlugins(compiled, enabled, allPlugins)
	if err := core.ValidatePlugins(active); err != nil {
		return err
	}
	for _, p := range active {
		event := log.Info()
		if p.Health() != core.HealthHealthy {
			event = log.Warn().Str("health_message", p.HealthMessage())
		}
		event.Str("component", "core").Str("plugin", p.ID()).Str("health", string(p.Health())).Msg("plugin loaded")
	}

	if written, err := core.WriteDashboards(cfg.Core.DashboardDir, active); err != nil {
		log.Warn().Err(err).Str("component", "core").Msg("write dashboards failed")
	} else if written > 0 {
		log.Info().Str("component", "core").Int("count", written).Str("dir", cfg.Core.DashboardDir).Msg("dashboards written")
	}

	platform := climate.NewPlatform()
	for _, p := range active {
		provider, ok := p.(core.EntityProvider)
		if !ok {
			continue
		}
		if err := provider.SetupEntities(ctx, platform.AddEntities); err != nil {
			log.Warn().Err(err).Str("component", "core").Str("plugin", p.ID()).Msg("entity setup failed")
		}
	}

	grpcServer, err := server.NewGRPCServer(cfg.Core.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	if err := router.RegisterPlugins(grpcServer.Server, active, platform); err != nil {
		return err
	}

	shared := append(oauth.MetricsCollectors(), rate.MetricsCollectors()...)
	shared = append(shared,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "thinqhome_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"version": version},
		}, func() float64 { return 1 }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "thinqhome_climate_entities",
			Help: "Registered climate entities",
		}, func() float64 { return float64(len(platform.EntityIDs())) }),
	)
	metricsRegistry, err := core.MetricsRegistry(active, shared...)
	if err != nil {
		return err
	}
	mux, err := server.NewMux(active, metricsRegistry)
	if err != nil {
		return err
	}

	httpServer := server.NewHTTPServer(cfg.Core.HTTPAddr, mux)

	var bridge *mqttbridge.Bridge
	if cfg.MQTT != nil {
		opts, err := mqttbridge.OptionsFromConfig(cfg.MQTT)
		if err != nil {
			return err
		}
		bridge = mqttbridge.New(platform, opts)
		if err := bridge.Start(); err != nil {
			log.Warn().Err(err).Str("component", "mqtt").Msg("bridge start failed")
			bridge = nil
		}
	}

	go platform.Run(ctx, cfg.Core.ScanInterval())

	errCh := make(chan error, 2)
	go func() {
		log.Info().Str("component", "grpc").Str("addr", cfg.Core.GRPCAddr).Msg("serving")
		if err := grpcServer.Serve(); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		log.Info().Str("component", "http").Str("addr", cfg.Core.HTTPAddr).Msg("serving")
		if err := httpServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Str("component", "core").Msg("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if bridge != nil {
		bridge.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Err(err).Str("component", "http").Msg("shutdown failed")
	}
	grpcServer.Stop(shutdownCtx)
	return runErr
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
