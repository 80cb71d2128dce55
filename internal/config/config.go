package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/salestax/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	Lookup   LookupConfig   `yaml:"lookup" mapstructure:"lookup"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Orders   OrdersConfig   `yaml:"orders" mapstructure:"orders"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	ShutdownSecs     int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
	MaxUploadMB      int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RequestTimeoutMS int      `yaml:"request_timeout_ms" mapstructure:"request_timeout_ms"`
}

// ScheduleConfig holds the schedule policy. Rates are decimal strings so they
// never pass through a float.
type ScheduleConfig struct {
	Region         string `yaml:"region" mapstructure:"region"`
	RegionRate     string `yaml:"region_rate" mapstructure:"region_rate"`
	OverlayName    string `yaml:"overlay_name" mapstructure:"overlay_name"`
	OverlayRate    string `yaml:"overlay_rate" mapstructure:"overlay_rate"`
	Umbrella       string `yaml:"umbrella" mapstructure:"umbrella"`
	NoLocalName    string `yaml:"no_local_name" mapstructure:"no_local_name"`
	FootnoteMarker string `yaml:"footnote_marker" mapstructure:"footnote_marker"`
	DefaultRate    string `yaml:"default_rate" mapstructure:"default_rate"`
	// Path is an optional schedule CSV used instead of the store.
	Path string `yaml:"path" mapstructure:"path"`
}

// LookupConfig configures name normalization.
type LookupConfig struct {
	AliasesFile string `yaml:"aliases_file" mapstructure:"aliases_file"`
}

// GeocodeConfig configures the reverse geocoder.
type GeocodeConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OrdersConfig configures order import.
type OrdersConfig struct {
	ImportConcurrency int `yaml:"import_concurrency" mapstructure:"import_concurrency"`
}

// Policy converts the schedule section into a model.Policy.
func (c ScheduleConfig) Policy() (model.Policy, error) {
	p := model.Policy{
		Region:         c.Region,
		OverlayName:    c.OverlayName,
		Umbrella:       c.Umbrella,
		NoLocalName:    c.NoLocalName,
		FootnoteMarker: c.FootnoteMarker,
	}

	rates := []struct {
		key string
		raw string
		dst *decimal.Decimal
	}{
		{"schedule.region_rate", c.RegionRate, &p.RegionRate},
		{"schedule.overlay_rate", c.OverlayRate, &p.OverlayRate},
		{"schedule.default_rate", c.DefaultRate, &p.DefaultRate},
	}
	for _, r := range rates {
		d, err := decimal.NewFromString(strings.TrimSpace(r.raw))
		if err != nil {
			return model.Policy{}, eris.Wrapf(err, "config: parse %s", r.key)
		}
		if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return model.Policy{}, eris.Errorf("config: %s must be a fraction in [0, 1), got %s", r.key, r.raw)
		}
		*r.dst = d
	}

	return p, nil
}

// Validate checks that the configuration is complete for the given mode.
// Modes: "extract", "lookup", "serve", "import", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}

	switch mode {
	case "extract", "import", "migrate":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "lookup":
		if c.Store.DatabaseURL == "" && c.Schedule.Path == "" {
			errs = append(errs, "store.database_url or schedule.path is required")
		}
	case "serve":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Orders.ImportConcurrency < 1 || c.Orders.ImportConcurrency > 64 {
		errs = append(errs, "orders.import_concurrency must be between 1 and 64")
	}
	if c.Geocode.Enabled && c.Geocode.TimeoutSecs <= 0 {
		errs = append(errs, "geocode.timeout_secs must be > 0")
	}
	if _, err := c.Schedule.Policy(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from config.yaml and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SALESTAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	policy := model.DefaultPolicy()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "salestax.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_secs", 15)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.request_timeout_ms", 30000)
	v.SetDefault("schedule.region", policy.Region)
	v.SetDefault("schedule.region_rate", policy.RegionRate.String())
	v.SetDefault("schedule.overlay_name", policy.OverlayName)
	v.SetDefault("schedule.overlay_rate", policy.OverlayRate.String())
	v.SetDefault("schedule.umbrella", policy.Umbrella)
	v.SetDefault("schedule.no_local_name", policy.NoLocalName)
	v.SetDefault("schedule.footnote_marker", policy.FootnoteMarker)
	v.SetDefault("schedule.default_rate", policy.DefaultRate.String())
	v.SetDefault("schedule.path", "")
	v.SetDefault("lookup.aliases_file", "")
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "salestax/1.0")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("orders.import_concurrency", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
