// Package config loads the server configuration. Values are layered:
// built-in defaults, then an optional YAML file, then QBANK_* environment
// variables, then command-line flags.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/conorfennell/qbank/internal/srs"
	"github.com/conorfennell/qbank/internal/validate"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read as configuration. Nested keys
// use a double underscore, e.g. QBANK_HTTP__ADDR for http.addr.
const EnvPrefix = "QBANK_"

// Config is the complete server configuration.
type Config struct {
	HTTP  HTTPConfig  `koanf:"http"`
	DB    DBConfig    `koanf:"db"`
	Auth  AuthConfig  `koanf:"auth"`
	Sync  SyncConfig  `koanf:"sync"`
	Log   LogConfig   `koanf:"log"`
	SRS   srs.Params  `koanf:"srs"`
	Stats StatsConfig `koanf:"stats"`
}

type HTTPConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// AuthRate and AuthBurst limit login and registration attempts per client.
	AuthRate  float64 `koanf:"auth_rate" validate:"gt=0"`
	AuthBurst int     `koanf:"auth_burst" validate:"min=1"`
}

type DBConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type AuthConfig struct {
	// JWTSecret signs access and refresh tokens. When empty a random secret
	// is generated at startup and tokens do not survive a restart.
	JWTSecret    string        `koanf:"jwt_secret" validate:"omitempty,min=16"`
	AccessTTL    time.Duration `koanf:"access_ttl" validate:"gt=0"`
	RefreshTTL   time.Duration `koanf:"refresh_ttl" validate:"gtfield=AccessTTL"`
	CookieSecure bool          `koanf:"cookie_secure"`
}

type SyncConfig struct {
	ReposDir string `koanf:"repos_dir" validate:"required"`
	// DecksDir is the only directory local sources may be added from over
	// HTTP. Empty allows git URLs only.
	DecksDir    string `koanf:"decks_dir"`
	Concurrency int    `koanf:"concurrency" validate:"min=1,max=64"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type StatsConfig struct {
	// WeakestTagsLimit caps the weakest tags on the dashboard; 0 shows all.
	WeakestTagsLimit int `koanf:"weakest_tags_limit" validate:"min=0"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	p := srs.DefaultParams()
	return map[string]any{
		"http.addr":                ":8080",
		"http.cors_origins":        []string{"http://localhost:5173"},
		"http.read_timeout":        "10s",
		"http.write_timeout":       "30s",
		"http.shutdown_timeout":    "10s",
		"http.auth_rate":           1.0,
		"http.auth_burst":          5,
		"db.path":                  "qbank.db",
		"auth.jwt_secret":          "",
		"auth.access_ttl":          "15m",
		"auth.refresh_ttl":         "720h",
		"auth.cookie_secure":       false,
		"sync.repos_dir":           "repos",
		"sync.decks_dir":           "",
		"sync.concurrency":         4,
		"log.level":                "info",
		"log.format":               "text",
		"srs.forgot_retain":        p.ForgotRetain,
		"srs.almost_gain":          p.AlmostGain,
		"srs.knew_gain":            p.KnewGain,
		"srs.min_interval":         p.MinInterval.String(),
		"srs.graduating_interval":  p.GraduatingInterval.String(),
		"srs.max_interval":         p.MaxInterval.String(),
		"srs.almost_factor":        p.AlmostFactor,
		"srs.knew_factor":          p.KnewFactor,
		"stats.weakest_tags_limit": 5,
	}
}

// flagKeys maps command-line flags onto configuration keys. Flags missing
// here are actions handled by the caller.
var flagKeys = map[string]string{
	"addr":      "http.addr",
	"db":        "db.path",
	"log-level": "log.level",
}

// NewFlagSet defines every flag the server understands.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to a YAML configuration file")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("db", "qbank.db", "Path to the SQLite database")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("add-source", "", "Add a deck source (local directory or git URL) and exit")
	fs.String("account", "", "Account email that owns --add-source or is synced by --sync")
	fs.Bool("sync", false, "Import all deck sources and exit")
	fs.String("check", "", "Parse the markdown decks in a directory, report problems and exit")
	return fs
}

// Load parses args with fs and layers the configuration.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.JWTSecret = secret
		slog.Warn("No auth.jwt_secret configured; generated a random one. Tokens will not survive a restart.")
	}
	return &cfg, nil
}

// Validate checks every section, including the scheduling parameters.
func (c *Config) Validate() error {
	if err := validate.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.SRS.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel converts the configured level name.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewHandler returns the slog handler selected by Format.
func (c LogConfig) NewHandler() slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

// envKey turns QBANK_AUTH__JWT_SECRET into auth.jwt_secret.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "http.cors_origins" {
		return key, splitList(value)
	}
	return key, value
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
