package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. WEDDING_SERVER_PORT.
const EnvPrefix = "WEDDING"

// Config represents the runtime configuration for the RSVP backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	RSVP        RSVPConfig        `mapstructure:"rsvp"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Event       EventConfig       `mapstructure:"event"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int             `mapstructure:"port"`
	LogLevel    string          `mapstructure:"log_level"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds requests per client IP and route. Public applies
// to the unauthenticated invitation endpoints.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Public   int           `mapstructure:"public_requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RegistryConfig selects and tunes the guest store.
type RegistryConfig struct {
	Driver      string `mapstructure:"driver"`
	CodeLength  int    `mapstructure:"code_length"`
	UniquePhone bool   `mapstructure:"unique_phone"`
}

// RSVPConfig controls what guests may do with their invitation.
type RSVPConfig struct {
	LockAfterResponse bool `mapstructure:"lock_after_response"`
	RequireClaim      bool `mapstructure:"require_claim"`
	MaxPlusOnes       int  `mapstructure:"max_plus_ones"`
}

// AuthConfig captures admin authentication settings.
type AuthConfig struct {
	JWT   JWTSettings   `mapstructure:"jwt"`
	Admin AdminSettings `mapstructure:"admin"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// AdminSettings seeds the operator account on first start.
type AdminSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// EventConfig describes the wedding itself. SiteURL is the public base
// that invitation links are built from.
type EventConfig struct {
	CoupleNames string `mapstructure:"couple_names"`
	Date        string `mapstructure:"date"`
	Venue       string `mapstructure:"venue"`
	SiteURL     string `mapstructure:"site_url"`
}

// NotifyConfig enables outbound channels for broadcasts.
type NotifyConfig struct {
	Concurrency        int                 `mapstructure:"concurrency"`
	DefaultCountryCode string              `mapstructure:"default_country_code"`
	WhatsAppCloud      WhatsAppCloudConfig `mapstructure:"whatsapp_cloud"`
	WhatsApp           WhatsAppConfig      `mapstructure:"whatsapp"`
	Email              EmailConfig         `mapstructure:"email"`
}

// WhatsAppCloudConfig holds Meta Cloud API credentials.
type WhatsAppCloudConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	AccessToken   string        `mapstructure:"access_token"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	BaseURL       string        `mapstructure:"base_url"`
	APIVersion    string        `mapstructure:"api_version"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// WhatsAppConfig configures the multi-device client linked to a phone.
type WhatsAppConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	StorePath     string `mapstructure:"store_path"`
	RecordReplies bool   `mapstructure:"record_replies"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	Subject string     `mapstructure:"subject"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	FromName string        `mapstructure:"from_name"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables the metrics endpoint.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// MaintenanceConfig schedules background jobs. Schedules use cron syntax.
type MaintenanceConfig struct {
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
	AuditSchedule      string `mapstructure:"audit_schedule"`
	CacheSchedule      string `mapstructure:"cache_schedule"`
	StatsSchedule      string `mapstructure:"stats_schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
// A .env file in the working directory is loaded first so its values act
// as environment overrides. Each path may be a directory or a config file.
func LoadConfig(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			v.SetConfigFile(path)
			continue
		}
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.public_requests", 30)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/wedding.sqlite")

	v.SetDefault("registry.driver", "database")
	v.SetDefault("registry.code_length", 6)
	v.SetDefault("registry.unique_phone", true)

	v.SetDefault("rsvp.lock_after_response", false)
	v.SetDefault("rsvp.require_claim", false)
	v.SetDefault("rsvp.max_plus_ones", 5)

	v.SetDefault("auth.jwt.issuer", "weddingrsvp")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")
	v.SetDefault("auth.admin.username", "admin")
	v.SetDefault("auth.admin.password", "")

	v.SetDefault("event.site_url", "http://localhost:3000")

	v.SetDefault("notify.concurrency", 4)
	v.SetDefault("notify.default_country_code", "")
	v.SetDefault("notify.whatsapp_cloud.enabled", false)
	v.SetDefault("notify.whatsapp_cloud.api_version", "v17.0")
	v.SetDefault("notify.whatsapp_cloud.timeout", "10s")
	v.SetDefault("notify.whatsapp.enabled", false)
	v.SetDefault("notify.whatsapp.store_path", "./data/whatsapp.sqlite")
	v.SetDefault("notify.whatsapp.record_replies", true)
	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.subject", "Wedding update")
	v.SetDefault("notify.email.smtp.port", 587)
	v.SetDefault("notify.email.smtp.use_tls", true)
	v.SetDefault("notify.email.smtp.timeout", "10s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("maintenance.audit_retention_days", 180)
	v.SetDefault("maintenance.audit_schedule", "@daily")
	v.SetDefault("maintenance.cache_schedule", "@hourly")
	v.SetDefault("maintenance.stats_schedule", "@every 1m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
