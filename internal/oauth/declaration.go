package oauth

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/joshp123/thinqhome/internal/config"
)

// FlowAuthCode is the LG account authorization-code flow. It is the only
// flow ThinQ accounts support.
const FlowAuthCode = "auth_code"

const DefaultRefreshInterval = 10 * time.Minute

// Declaration is the token contract a plugin hands to the Manager.
type Declaration struct {
	Provider     string
	Flow         string
	AuthorizeURL string
	TokenURL     string
	Scope        string
	StatePath    string
}

// Validate checks what the Manager needs before it touches disk.
func (d Declaration) Validate() error {
	switch {
	case d.Provider == "":
		return fmt.Errorf("provider is required")
	case d.Scope == "":
		return fmt.Errorf("%s: scope is required", d.Provider)
	case d.TokenURL == "":
		return fmt.Errorf("%s: token url is required", d.Provider)
	case d.StatePath == "":
		return fmt.Errorf("%s: state path is required", d.Provider)
	case !filepath.IsAbs(d.StatePath):
		return fmt.Errorf("%s: state path %q must be absolute", d.Provider, d.StatePath)
	case d.Flow != "" && d.Flow != FlowAuthCode:
		return fmt.Errorf("%s: unsupported flow %q", d.Provider, d.Flow)
	}
	return nil
}

// Config builds the oauth2 client config for the given client credentials.
func (d Declaration) Config(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  d.AuthorizeURL,
			TokenURL: d.TokenURL,
		},
		Scopes: strings.Fields(d.Scope),
	}
}

// RefreshInterval resolves the background refresh period; 0 disables it.
func RefreshInterval(cfg *config.OAuthConfig) time.Duration {
	if cfg == nil {
		return DefaultRefreshInterval
	}
	if cfg.RefreshEnabled != nil && !*cfg.RefreshEnabled {
		return 0
	}
	if cfg.RefreshIntervalSeconds > 0 {
		return time.Duration(cfg.RefreshIntervalSeconds) * time.Second
	}
	return DefaultRefreshInterval
}
