package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
	"github.com/conorfennell/qbank/internal/srs"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewFlagSet("test"), nil)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" || cfg.DB.Path != "qbank.db" {
		t.Errorf("Unexpected defaults: %+v %+v", cfg.HTTP, cfg.DB)
	}
	if cfg.Auth.AccessTTL != 15*time.Minute || cfg.Auth.RefreshTTL != 30*24*time.Hour {
		t.Errorf("Unexpected token lifetimes: %+v", cfg.Auth)
	}
	if cfg.SRS != srs.DefaultParams() {
		t.Errorf("Expected default scheduling params, got %+v", cfg.SRS)
	}
	if cfg.Stats.WeakestTagsLimit != 5 {
		t.Errorf("Expected weakest tags limit 5, got %d", cfg.Stats.WeakestTagsLimit)
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		t.Errorf("Expected a generated secret, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qbank.yaml")
	yamlConfig := `
http:
  addr: ":9000"
  cors_origins: ["https://a.example"]
db:
  path: from-file.db
auth:
  jwt_secret: "file-secret-0123456789"
srs:
  knew_factor: 3.0
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(yamlConfig), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("QBANK_DB__PATH", "from-env.db")
	t.Setenv("QBANK_HTTP__CORS_ORIGINS", "https://b.example, https://c.example")
	t.Setenv("QBANK_SRS__MIN_INTERVAL", "5m")
	t.Setenv("QBANK_LOG__LEVEL", "error")

	cfg, err := Load(NewFlagSet("test"), []string{"--config", path, "--log-level", "debug"})
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	testCases := []struct {
		name string
		got  any
		want any
	}{
		{"file beats default", cfg.HTTP.Addr, ":9000"},
		{"env beats file", cfg.DB.Path, "from-env.db"},
		{"env list", cfg.HTTP.CORSOrigins, []string{"https://b.example", "https://c.example"}},
		{"flag beats env", cfg.Log.Level, "debug"},
		{"file srs value", cfg.SRS.KnewFactor, 3.0},
		{"env duration", cfg.SRS.MinInterval, 5 * time.Minute},
		{"untouched default", cfg.SRS.AlmostFactor, 1.3},
		{"secret from file", cfg.Auth.JWTSecret, "file-secret-0123456789"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !reflect.DeepEqual(tc.got, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, tc.got)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr error
	}{
		{"bad log level", nil, []string{"--log-level", "loud"}, domain.ErrInvalidInput},
		{"short secret", map[string]string{"QBANK_AUTH__JWT_SECRET": "short"}, nil, domain.ErrInvalidInput},
		{"refresh shorter than access", map[string]string{"QBANK_AUTH__REFRESH_TTL": "1m"}, nil, domain.ErrInvalidInput},
		{"bad srs ordering", map[string]string{"QBANK_SRS__ALMOST_GAIN": "0.9"}, nil, srs.ErrInvalidParams},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(NewFlagSet("test"), tc.args)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(NewFlagSet("test"), []string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestSlogLevel(t *testing.T) {
	if got := (LogConfig{Level: "warn"}).SlogLevel().String(); got != "WARN" {
		t.Errorf("Expected WARN, got %s", got)
	}
}
