// Package config loads the relay configuration from defaults, an optional
// config file and the environment.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/distribution/reference"
	"github.com/spf13/viper"

	"github.com/bnema/imagerelay/internal/domain"
	"github.com/bnema/imagerelay/pkg/until"
)

// EnvPrefix is prepended to every environment override, e.g. IMAGERELAY_SERVER_ADDR.
const EnvPrefix = "IMAGERELAY"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Registry RegistryConfig `mapstructure:"registry"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Prune    PruneConfig    `mapstructure:"prune"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string          `mapstructure:"addr"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For header is honored.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// RateLimitConfig limits relay requests per client IP. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type DockerConfig struct {
	// Host overrides DOCKER_HOST when set.
	Host string `mapstructure:"host"`
}

type RegistryConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type RelayConfig struct {
	DestinationRepository string `mapstructure:"destination_repository"`
}

type SyncConfig struct {
	// StrictTag aborts a sync when tagging fails instead of logging and moving on.
	StrictTag bool `mapstructure:"strict_tag"`
}

type PruneConfig struct {
	// Until accepts a timestamp, a Go duration, or day/week units ("7d", "2w").
	Until string `mapstructure:"until"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Credentials returns the destination registry credentials.
func (c *Config) Credentials() domain.Credentials {
	return domain.Credentials{
		Username: c.Registry.Username,
		Password: c.Registry.Password,
	}
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:3030")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit.rps", 0)
	v.SetDefault("server.rate_limit.burst", 5)
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("docker.host", "")
	v.SetDefault("relay.destination_repository", "dierbei/csi_demo")
	v.SetDefault("sync.strict_tag", false)
	v.SetDefault("prune.until", "1m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The bare USERNAME/PASSWORD variables are what existing deployments set.
	_ = v.BindEnv("registry.username", EnvPrefix+"_REGISTRY_USERNAME", "USERNAME")
	_ = v.BindEnv("registry.password", EnvPrefix+"_REGISTRY_PASSWORD", "PASSWORD")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Registry.Username == "" {
		return fmt.Errorf("%w: registry username is required (set USERNAME)", domain.ErrInvalidConfig)
	}
	if c.Registry.Password == "" {
		return fmt.Errorf("%w: registry password is required (set PASSWORD)", domain.ErrInvalidConfig)
	}

	if c.Relay.DestinationRepository == "" {
		return fmt.Errorf("%w: relay.destination_repository is required", domain.ErrInvalidConfig)
	}
	named, err := reference.ParseNormalizedNamed(c.Relay.DestinationRepository)
	if err != nil {
		return fmt.Errorf("%w: relay.destination_repository: %v", domain.ErrInvalidConfig, err)
	}
	if !reference.IsNameOnly(named) {
		return fmt.Errorf("%w: relay.destination_repository must not carry a tag or digest", domain.ErrInvalidConfig)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", domain.ErrInvalidConfig)
	}
	if c.Server.RateLimit.RPS > 0 && c.Server.RateLimit.Burst < 1 {
		return fmt.Errorf("%w: server.rate_limit.burst must be >= 1 when rate limiting is enabled", domain.ErrInvalidConfig)
	}

	for _, proxy := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(proxy); err == nil {
			continue
		}
		if net.ParseIP(proxy) == nil {
			return fmt.Errorf("%w: server.trusted_proxies: %q is neither an IP nor a CIDR", domain.ErrInvalidConfig, proxy)
		}
	}

	if c.Prune.Until == "" {
		return fmt.Errorf("%w: prune.until is required", domain.ErrInvalidConfig)
	}
	normalized, err := until.Normalize(c.Prune.Until)
	if err != nil {
		return fmt.Errorf("%w: prune.until: %v", domain.ErrInvalidConfig, err)
	}
	c.Prune.Until = normalized

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be one of: console, json", domain.ErrInvalidConfig)
	}

	return nil
}
