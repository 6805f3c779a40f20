package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SchemaVersion                      = 1
	DefaultPath                        = "/etc/thinqhome/config.yaml"
	DefaultGRPCAddr                    = "0.0.0.0:9000"
	DefaultHTTPAddr                    = "0.0.0.0:8080"
	DefaultDashboardDir                = "/var/lib/thinqhome/dashboards"
	DefaultLogLevel                    = "info"
	DefaultLogFormat                   = "json"
	DefaultScanIntervalSeconds         = 30
	DefaultOAuthPrefix                 = "thinqhome/oauth"
	DefaultOAuthRefreshIntervalSeconds = 600
	DefaultMQTTClientID                = "thinqhome"
	DefaultMQTTDiscoveryPrefix         = "homeassistant"
	DefaultMQTTTopicPrefix             = "thinqhome"
)

// Config is the root of the daemon configuration file.
type Config struct {
	SchemaVersion int          `yaml:"schema_version"`
	Core          *CoreConfig  `yaml:"core"`
	OAuth         *OAuthConfig `yaml:"oauth"`
	MQTT          *MQTTConfig  `yaml:"mqtt"`
	Thinq         *ThinqConfig `yaml:"thinq"`
}

type CoreConfig struct {
	GRPCAddr            string `yaml:"grpc_addr"`
	HTTPAddr            string `yaml:"http_addr"`
	DashboardDir        string `yaml:"dashboard_dir"`
	LogLevel            string `yaml:"log_level"`
	LogFormat           string `yaml:"log_format"`
	ScanIntervalSeconds int    `yaml:"scan_interval_seconds"`
}

// ScanInterval is how often the platform polls its entities.
func (c *CoreConfig) ScanInterval() time.Duration {
	if c == nil || c.ScanIntervalSeconds <= 0 {
		return DefaultScanIntervalSeconds * time.Second
	}
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

type OAuthConfig struct {
	BlobEndpoint           string `yaml:"blob_endpoint"`
	BlobBucket             string `yaml:"blob_bucket"`
	BlobPrefix             string `yaml:"blob_prefix"`
	BlobAccessKeyFile      string `yaml:"blob_access_key_file"`
	BlobSecretKeyFile      string `yaml:"blob_secret_key_file"`
	BlobRegion             string `yaml:"blob_region"`
	RefreshEnabled         *bool  `yaml:"refresh_enabled"`
	RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
}

// MQTTConfig enables the Home Assistant MQTT bridge when present.
type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	Username        string `yaml:"username"`
	PasswordFile    string `yaml:"password_file"`
	ClientID        string `yaml:"client_id"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	TopicPrefix     string `yaml:"topic_prefix"`
}

// ThinqConfig enables the LG ThinQ plugin when present.
type ThinqConfig struct {
	BootstrapFile string `yaml:"bootstrap_file"`
	BaseURL       string `yaml:"base_url"`
	Country       string `yaml:"country"`
	ClientID      string `yaml:"client_id"`
	APIKeyFile    string `yaml:"api_key_file"`
	StatePath     string `yaml:"state_path"`
}

// Load parses the YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes config bytes. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Core == nil {
		cfg.Core = &CoreConfig{}
	}
	if cfg.Core.GRPCAddr == "" {
		cfg.Core.GRPCAddr = DefaultGRPCAddr
	}
	if cfg.Core.HTTPAddr == "" {
		cfg.Core.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Core.DashboardDir == "" {
		cfg.Core.DashboardDir = DefaultDashboardDir
	}
	if cfg.Core.LogLevel == "" {
		cfg.Core.LogLevel = DefaultLogLevel
	}
	if cfg.Core.LogFormat == "" {
		cfg.Core.LogFormat = DefaultLogFormat
	}
	if cfg.Core.ScanIntervalSeconds == 0 {
		cfg.Core.ScanIntervalSeconds = DefaultScanIntervalSeconds
	}

	if cfg.OAuth == nil {
		cfg.OAuth = &OAuthConfig{}
	}
	if cfg.OAuth.BlobPrefix == "" {
		cfg.OAuth.BlobPrefix = DefaultOAuthPrefix
	}
	if cfg.OAuth.RefreshEnabled == nil {
		enabled := true
		cfg.OAuth.RefreshEnabled = &enabled
	}
	if cfg.OAuth.RefreshIntervalSeconds == 0 {
		cfg.OAuth.RefreshIntervalSeconds = DefaultOAuthRefreshIntervalSeconds
	}

	if cfg.MQTT != nil {
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = DefaultMQTTClientID
		}
		if cfg.MQTT.DiscoveryPrefix == "" {
			cfg.MQTT.DiscoveryPrefix = DefaultMQTTDiscoveryPrefix
		}
		if cfg.MQTT.TopicPrefix == "" {
			cfg.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
		}
	}
}

// Validate enforces required invariants beyond YAML typing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.SchemaVersion != SchemaVersion {
		return fmt.Errorf("schema_version must be %d", SchemaVersion)
	}

	if cfg.Core == nil {
		return fmt.Errorf("core config is required")
	}
	if cfg.Core.GRPCAddr == "" {
		return fmt.Errorf("core.grpc_addr is required")
	}
	if cfg.Core.HTTPAddr == "" {
		return fmt.Errorf("core.http_addr is required")
	}
	if cfg.Core.DashboardDir == "" {
		return fmt.Errorf("core.dashboard_dir is required")
	}
	switch cfg.Core.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("core.log_level must be one of debug, info, warn, error")
	}
	switch cfg.Core.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("core.log_format must be json or console")
	}
	if cfg.Core.ScanIntervalSeconds < 0 {
		return fmt.Errorf("core.scan_interval_seconds must not be negative")
	}

	if cfg.OAuth == nil {
		return fmt.Errorf("oauth config is required")
	}
	if cfg.Thinq != nil {
		if cfg.OAuth.BlobEndpoint == "" {
			return fmt.Errorf("oauth.blob_endpoint is required")
		}
		if cfg.OAuth.BlobBucket == "" {
			return fmt.Errorf("oauth.blob_bucket is required")
		}
		if cfg.OAuth.BlobAccessKeyFile == "" {
			return fmt.Errorf("oauth.blob_access_key_file is required")
		}
		if cfg.OAuth.BlobSecretKeyFile == "" {
			return fmt.Errorf("oauth.blob_secret_key_file is required")
		}
		if cfg.Thinq.BootstrapFile == "" {
			return fmt.Errorf("thinq.bootstrap_file is required")
		}
		if cfg.Thinq.Country == "" {
			return fmt.Errorf("thinq.country is required")
		}
	}

	if cfg.MQTT != nil && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}

	return nil
}

// EnabledPlugins maps enabled plugin IDs based on config presence.
func EnabledPlugins(cfg *Config) map[string]bool {
	enabled := make(map[string]bool)
	if cfg == nil {
		return enabled
	}
	if cfg.Thinq != nil {
		enabled["thinq"] = true
	}
	return enabled
}

// BootstrapPathForProvider resolves the bootstrap file path from config.
func BootstrapPathForProvider(cfg *Config, provider string) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("config is required")
	}
	switch provider {
	case "thinq":
		if cfg.Thinq == nil || cfg.Thinq.BootstrapFile == "" {
			return "", fmt.Errorf("thinq bootstrap_file is required")
		}
		return cfg.Thinq.BootstrapFile, nil
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}
