package thinq

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joshp123/thinqhome/internal/config"
	"github.com/joshp123/thinqhome/internal/oauth"
)

const (
	defaultBaseURL   = "https://api-eic.lgthinq.com"
	defaultStatePath = "/var/lib/thinqhome/thinq-credentials.json"
)

// Config defines runtime configuration for the ThinQ client.
type Config struct {
	BaseURL       string
	BootstrapFile string
	Country       string
	ClientID      string
	APIKey        string
	StatePath     string
	// RefreshInterval drives background token refresh; 0 refreshes on demand only.
	RefreshInterval time.Duration
}

// ConfigFromYAML resolves the runtime config, reading secrets from disk.
func ConfigFromYAML(cfg *config.ThinqConfig, oauthCfg *config.OAuthConfig) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("thinq config is required")
	}

	out := Config{
		BaseURL:         strings.TrimSpace(cfg.BaseURL),
		BootstrapFile:   strings.TrimSpace(cfg.BootstrapFile),
		Country:         strings.ToUpper(strings.TrimSpace(cfg.Country)),
		ClientID:        strings.TrimSpace(cfg.ClientID),
		StatePath:       strings.TrimSpace(cfg.StatePath),
		RefreshInterval: oauth.RefreshInterval(oauthCfg),
	}
	if out.BaseURL == "" {
		out.BaseURL = defaultBaseURL
	}
	if out.StatePath == "" {
		out.StatePath = defaultStatePath
	}
	if out.BootstrapFile == "" {
		return Config{}, fmt.Errorf("thinq.bootstrap_file is required")
	}
	if len(out.Country) != 2 {
		return Config{}, fmt.Errorf("thinq.country must be a two-letter country code")
	}

	if path := strings.TrimSpace(cfg.APIKeyFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read thinq api key: %w", err)
		}
		out.APIKey = strings.TrimSpace(string(data))
	}

	return out, nil
}
