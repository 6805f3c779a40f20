package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("schema_version: 1\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Core.GRPCAddr != DefaultGRPCAddr || cfg.Core.HTTPAddr != DefaultHTTPAddr {
		t.Fatalf("unexpected addrs: %+v", cfg.Core)
	}
	if cfg.Core.ScanInterval() != 30*time.Second {
		t.Fatalf("unexpected scan interval: %s", cfg.Core.ScanInterval())
	}
	if cfg.OAuth.BlobPrefix != DefaultOAuthPrefix {
		t.Fatalf("unexpected blob prefix: %s", cfg.OAuth.BlobPrefix)
	}
	if cfg.OAuth.RefreshEnabled == nil || !*cfg.OAuth.RefreshEnabled {
		t.Fatalf("expected refresh enabled by default")
	}
	if len(EnabledPlugins(cfg)) != 0 {
		t.Fatalf("expected no plugins enabled")
	}
}

func TestLoadThinqConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `schema_version: 1
core:
  log_level: debug
  log_format: console
oauth:
  blob_endpoint: http://minio:9000
  blob_bucket: thinqhome
  blob_access_key_file: /run/secrets/ak
  blob_secret_key_file: /run/secrets/sk
thinq:
  bootstrap_file: /run/secrets/thinq.json
  country: NL
mqtt:
  broker: tcp://localhost:1883
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !EnabledPlugins(cfg)["thinq"] {
		t.Fatalf("expected thinq enabled")
	}
	if cfg.MQTT.DiscoveryPrefix != DefaultMQTTDiscoveryPrefix || cfg.MQTT.TopicPrefix != DefaultMQTTTopicPrefix {
		t.Fatalf("unexpected mqtt defaults: %+v", cfg.MQTT)
	}
	bootstrap, err := BootstrapPathForProvider(cfg, "thinq")
	if err != nil || bootstrap != "/run/secrets/thinq.json" {
		t.Fatalf("unexpected bootstrap path %q (%v)", bootstrap, err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"schema", "schema_version: 2\n", "schema_version"},
		{"unknown key", "schema_version: 1\nbogus: true\n", "parse config"},
		{"log level", "schema_version: 1\ncore:\n  log_level: loud\n", "core.log_level"},
		{"thinq needs blob", "schema_version: 1\nthinq:\n  bootstrap_file: /b\n  country: NL\n", "oauth.blob_endpoint"},
		{"mqtt broker", "schema_version: 1\nmqtt:\n  topic_prefix: x\n", "mqtt.broker"},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.body))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.want, err)
		}
	}
}
