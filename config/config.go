/*
Package config loads the shop server configuration.

PRECEDENCE (lowest to highest):
  1. Built-in defaults (Default)
  2. YAML file passed with -config
  3. .env file in the working directory, if present
  4. SHOP_* environment variables
  5. Command-line flags applied by cmd/server

ENVIRONMENT:
  SHOP_PORT                  HTTP port
  SHOP_DB_PATH               SQLite path, ":memory:" for an ephemeral DB
  SHOP_TIMEZONE              IANA zone used for calendar-day reporting
  SHOP_LOG_MODE              "development" or "production"
  SHOP_LOG_FILE              Enables rotated file logging to this path
  SHOP_CORS_ORIGINS          Comma-separated allowed origins
  SHOP_TRUSTED_PROXIES       Comma-separated proxy IPs or CIDRs allowed to set X-Forwarded-For
  SHOP_RATE_LIMIT_WINDOW     e.g. "15m"
  SHOP_RATE_LIMIT_MAX        Requests per window per client
  SHOP_RATE_LIMIT_CLIENTS    Clients tracked at once
  SHOP_SUMMARY_ENABLED       Run the daily summary job
  SHOP_SUMMARY_CRON          Cron spec for the daily summary job
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type SystemConfig struct {
	Location string `yaml:"location"`
}

type WebConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	// DemoScenarios exposes /api/scenarios, which can wipe the database.
	DemoScenarios bool `yaml:"demo_scenarios"`
	// TrustedProxies lists the reverse proxies whose X-Forwarded-For and
	// X-Real-IP headers name the client. Empty means the peer address is used.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
	MaxClients  int           `yaml:"max_clients"`
}

type JobsConfig struct {
	DailySummaryEnabled bool   `yaml:"daily_summary_enabled"`
	DailySummarySpec    string `yaml:"daily_summary_spec"`
}

// AppConfig is the full server configuration.
type AppConfig struct {
	System    SystemConfig    `yaml:"system"`
	Web       WebConfig       `yaml:"web"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    LogConfig       `yaml:"logger"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Jobs      JobsConfig      `yaml:"jobs"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *AppConfig {
	return &AppConfig{
		System: SystemConfig{Location: "Local"},
		Web: WebConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{Path: "shop.db"},
		Logger:   LogConfig{Mode: "development", Filename: "logs/shop.log"},
		RateLimit: RateLimitConfig{
			Window:      15 * time.Minute,
			MaxRequests: 100,
			MaxClients:  10000,
		},
		Jobs: JobsConfig{
			DailySummaryEnabled: true,
			DailySummarySpec:    "5 0 * * *",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and the process environment.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from SHOP_* variables found by lookup.
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	get := func(key string, apply func(v string) error) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		if err := apply(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	get("SHOP_PORT", func(v string) (err error) {
		c.Web.Port, err = cast.ToIntE(v)
		return err
	})
	get("SHOP_DB_PATH", func(v string) error { c.Database.Path = v; return nil })
	get("SHOP_TIMEZONE", func(v string) error { c.System.Location = v; return nil })
	get("SHOP_LOG_MODE", func(v string) error { c.Logger.Mode = v; return nil })
	get("SHOP_LOG_FILE", func(v string) error {
		c.Logger.Filename = v
		c.Logger.FileEnable = true
		return nil
	})
	get("SHOP_CORS_ORIGINS", func(v string) error {
		c.Web.CORSOrigins = splitList(v)
		return nil
	})
	get("SHOP_TRUSTED_PROXIES", func(v string) error {
		c.Web.TrustedProxies = splitList(v)
		return nil
	})
	get("SHOP_DEMO_SCENARIOS", func(v string) (err error) {
		c.Web.DemoScenarios, err = cast.ToBoolE(v)
		return err
	})
	get("SHOP_RATE_LIMIT_WINDOW", func(v string) (err error) {
		c.RateLimit.Window, err = cast.ToDurationE(v)
		return err
	})
	get("SHOP_RATE_LIMIT_MAX", func(v string) (err error) {
		c.RateLimit.MaxRequests, err = cast.ToIntE(v)
		return err
	})
	get("SHOP_RATE_LIMIT_CLIENTS", func(v string) (err error) {
		c.RateLimit.MaxClients, err = cast.ToIntE(v)
		return err
	})
	get("SHOP_SUMMARY_ENABLED", func(v string) (err error) {
		c.Jobs.DailySummaryEnabled, err = cast.ToBoolE(v)
		return err
	})
	get("SHOP_SUMMARY_CRON", func(v string) error { c.Jobs.DailySummarySpec = v; return nil })

	return errors.Join(errs...)
}

// Validate rejects values the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Web.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		return err
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.MaxRequests <= 0 || c.RateLimit.MaxClients <= 0 {
		return errors.New("rate limit window, max requests and max clients must be positive")
	}
	if c.Jobs.DailySummaryEnabled && c.Jobs.DailySummarySpec == "" {
		return errors.New("daily summary cron spec is required when the job is enabled")
	}
	return nil
}

// Location resolves System.Location.
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.System.Location)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.System.Location, err)
	}
	return loc, nil
}

// TrustedProxyNets parses Web.TrustedProxies. A bare address is a single-host
// network.
func (c *AppConfig) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.Web.TrustedProxies))
	for _, p := range c.Web.TrustedProxies {
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: not an IP address", p)
			}
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
