package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/coe/internal/database"
	"github.com/angeloszaimis/coe/internal/httpserver"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	UserStoreMemory   = "memory"
	UserStoreDatabase = "database"
)

const DefaultEnvFile = ".env"

const publicPrefix = "NEXT_PUBLIC_"

var ingestPath = regexp.MustCompile(`^(/[A-Za-z0-9_-]+)+/?$`)

type AppConfig struct {
	NodeEnv     string `mapstructure:"node_env" json:"NODE_ENV"`
	Env         string `mapstructure:"app_env" json:"APP_ENV"`
	Title       string `mapstructure:"app_title" json:"APP_TITLE"`
	Name        string `mapstructure:"app_name" json:"APP_NAME"`
	Description string `mapstructure:"app_description" json:"APP_DESCRIPTION"`
	Category    string `mapstructure:"app_category" json:"APP_CATEGORY"`
	Keywords    string `mapstructure:"app_keywords" json:"APP_KEYWORDS"`
	URL         string `mapstructure:"app_url" json:"APP_URL"`
}

type AnalyticsConfig struct {
	PostHogAPIKey      string `mapstructure:"posthog_api_key" json:"POSTHOG_API_KEY"`
	PostHogEnvID       string `mapstructure:"posthog_env_id" json:"POSTHOG_ENV_ID"`
	SentryAuthToken    string `mapstructure:"sentry_auth_token" json:"SENTRY_AUTH_TOKEN"`
	GTMKey             string `mapstructure:"gtm_key" json:"GTM_KEY"`
	PostHogKey         string `mapstructure:"posthog_key" json:"POSTHOG_KEY"`
	PostHogHost        string `mapstructure:"posthog_host" json:"POSTHOG_HOST"`
	PostHogAssetsHost  string `mapstructure:"posthog_assets_host" json:"POSTHOG_ASSETS_HOST"`
	PostHogIngest      string `mapstructure:"posthog_ingest" json:"POSTHOG_INGEST"`
	PostHogEnvironment string `mapstructure:"posthog_environment" json:"POSTHOG_ENVIRONMENT"`
}

type DatabaseConfig struct {
	Dialect         string `mapstructure:"db_dialect" json:"DB_DIALECT"`
	URL             string `mapstructure:"database_url" json:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"db_max_open_conns" json:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"db_max_idle_conns" json:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"db_conn_max_lifetime" json:"DB_CONN_MAX_LIFETIME"`
	AutoMigrate     bool   `mapstructure:"db_auto_migrate" json:"DB_AUTO_MIGRATE"`
}

type ServerConfig struct {
	Address             string `mapstructure:"http_addr" json:"HTTP_ADDR"`
	UserStore           string `mapstructure:"user_store" json:"USER_STORE"`
	HealthCheckInterval string `mapstructure:"health_check_interval" json:"HEALTH_CHECK_INTERVAL"`
}

type LoggingConfig struct {
	Level string `mapstructure:"log_level" json:"LOG_LEVEL"`
}

type ProxyConfig struct {
	RateLimit        float64 `mapstructure:"proxy_rate_limit" json:"PROXY_RATE_LIMIT"`
	RateBurst        int     `mapstructure:"proxy_rate_burst" json:"PROXY_RATE_BURST"`
	BreakerThreshold int     `mapstructure:"proxy_breaker_threshold" json:"PROXY_BREAKER_THRESHOLD"`
	BreakerTimeout   string  `mapstructure:"proxy_breaker_timeout" json:"PROXY_BREAKER_TIMEOUT"`
}

type Config struct {
	App       AppConfig       `mapstructure:",squash" json:"app"`
	Analytics AnalyticsConfig `mapstructure:",squash" json:"analytics"`
	Database  DatabaseConfig  `mapstructure:",squash" json:"database"`
	Server    ServerConfig    `mapstructure:",squash" json:"server"`
	Logging   LoggingConfig   `mapstructure:",squash" json:"logging"`
	Proxy     ProxyConfig     `mapstructure:",squash" json:"proxy"`
}

var defaults = map[string]any{
	"NODE_ENV":        EnvDevelopment,
	"APP_ENV":         EnvDevelopment,
	"APP_TITLE":       "Create Next CoE",
	"APP_NAME":        "Create Next CoE",
	"APP_DESCRIPTION": "Production-ready Next.js starter",
	"APP_CATEGORY":    "app",
	"APP_KEYWORDS":    "nextjs,starter,boilerplate",
	"APP_URL":         "http://localhost:3000",

	"POSTHOG_API_KEY":     "",
	"POSTHOG_ENV_ID":      "",
	"SENTRY_AUTH_TOKEN":   "",
	"GTM_KEY":             "",
	"POSTHOG_KEY":         "",
	"POSTHOG_HOST":        "https://eu.i.posthog.com",
	"POSTHOG_ASSETS_HOST": "https://eu-assets.i.posthog.com",
	"POSTHOG_INGEST":      "/ingest",
	"POSTHOG_ENVIRONMENT": EnvDevelopment,

	"DB_DIALECT":           string(database.SQLite),
	"DATABASE_URL":         "file:./create-next-coe.db",
	"DB_MAX_OPEN_CONNS":    10,
	"DB_MAX_IDLE_CONNS":    5,
	"DB_CONN_MAX_LIFETIME": "30m",
	"DB_AUTO_MIGRATE":      false,

	"HTTP_ADDR":             ":3000",
	"USER_STORE":            UserStoreMemory,
	"HEALTH_CHECK_INTERVAL": "30s",
	"LOG_LEVEL":             LogLevelInfo,

	"PROXY_RATE_LIMIT":        50,
	"PROXY_RATE_BURST":        100,
	"PROXY_BREAKER_THRESHOLD": 5,
	"PROXY_BREAKER_TIMEOUT":   "30s",
}

// Keys the web starter exposed to the browser under NEXT_PUBLIC_*.
var publicKeys = []string{
	"APP_ENV",
	"APP_TITLE",
	"APP_NAME",
	"APP_DESCRIPTION",
	"APP_CATEGORY",
	"APP_KEYWORDS",
	"APP_URL",
	"GTM_KEY",
	"POSTHOG_KEY",
	"POSTHOG_HOST",
	"POSTHOG_ASSETS_HOST",
	"POSTHOG_INGEST",
	"POSTHOG_ENVIRONMENT",
}

// Load reads envFile when it exists, then the process environment, which wins
// over the file. An empty envFile skips the file entirely.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(strings.ToLower(key), value)
	}

	v.AutomaticEnv()
	for key := range defaults {
		names := []string{key}
		if isPublic(key) {
			names = append(names, publicPrefix+key)
		}
		if err := v.BindEnv(append([]string{strings.ToLower(key)}, names...)...); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if envFile != "" {
		if err := readEnvFile(v, envFile); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func readEnvFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	// A NEXT_PUBLIC_ entry in the file stands in for the short key unless the
	// file also sets the short key. The process environment still wins.
	for _, key := range publicKeys {
		short := strings.ToLower(key)
		long := strings.ToLower(publicPrefix + key)
		if v.InConfig(long) && !v.InConfig(short) {
			v.SetDefault(short, v.Get(long))
		}
	}

	return nil
}

func isPublic(key string) bool {
	for _, k := range publicKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.App),
		validation.Field(&c.Analytics),
		validation.Field(&c.Database),
		validation.Field(&c.Server),
		validation.Field(&c.Logging),
		validation.Field(&c.Proxy),
	)
}

func (a AppConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.NodeEnv, validation.Required, validation.In(EnvDevelopment, EnvProduction)),
		validation.Field(&a.Env, validation.Required, validation.In(EnvDevelopment, EnvStaging, EnvProduction)),
		validation.Field(&a.Title, validation.Required.Error("App title is required")),
		validation.Field(&a.Name, validation.Required.Error("App name is required")),
		validation.Field(&a.Description, validation.Required.Error("App description is required")),
		validation.Field(&a.Category, validation.Required.Error("App category is required")),
		validation.Field(&a.Keywords, validation.Required.Error("App keywords are required")),
		validation.Field(&a.URL, validation.Required, validation.By(validateHTTPURL)),
	)
}

func (a AnalyticsConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.PostHogAPIKey, validation.RuneLength(51, 0).Error("PostHog personal API key is required")),
		validation.Field(&a.PostHogEnvID, validation.RuneLength(5, 0).Error("PostHog environment ID is required")),
		validation.Field(&a.PostHogKey, validation.RuneLength(47, 0).Error("PostHog key is required")),
		validation.Field(&a.PostHogHost, validation.Required, validation.By(validateHTTPURL)),
		validation.Field(&a.PostHogAssetsHost, validation.Required, validation.By(validateHTTPURL)),
		validation.Field(&a.PostHogIngest, validation.Required, validation.Match(ingestPath)),
		validation.Field(&a.PostHogEnvironment, validation.In(EnvDevelopment, EnvStaging, EnvProduction)),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Dialect,
			validation.Required,
			validation.In(dialectNames()...),
		),
		validation.Field(&d.URL,
			validation.Required.Error("Database URL is required"),
			validation.By(func(value interface{}) error {
				dialect, err := database.ParseDialect(d.Dialect)
				if err != nil {
					// Reported on DB_DIALECT.
					return nil
				}
				if err := database.ValidateURL(dialect, value.(string)); err != nil {
					return validation.NewError("validation_scheme_mismatch", err.Error())
				}
				return nil
			}),
		),
		validation.Field(&d.MaxOpenConns, validation.Required, validation.Min(1)),
		validation.Field(&d.MaxIdleConns, validation.Min(0)),
		validation.Field(&d.ConnMaxLifetime, validation.Required, validation.By(validateNonNegativeDuration)),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required, validation.By(httpserver.ValidateAddr)),
		validation.Field(&s.UserStore, validation.Required, validation.In(UserStoreMemory, UserStoreDatabase)),
		validation.Field(&s.HealthCheckInterval, validation.Required, validation.By(validatePositiveDuration)),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func (p ProxyConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.RateLimit, validation.Min(0.0)),
		validation.Field(&p.RateBurst, validation.Required, validation.Min(1)),
		validation.Field(&p.BreakerThreshold, validation.Required, validation.Min(1)),
		validation.Field(&p.BreakerTimeout, validation.Required, validation.By(validatePositiveDuration)),
	)
}

// ConnMaxLifetimeDuration returns DB_CONN_MAX_LIFETIME. Call after Validate.
func (d DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return mustDuration(d.ConnMaxLifetime)
}

// HealthCheckIntervalDuration returns HEALTH_CHECK_INTERVAL. Call after Validate.
func (s ServerConfig) HealthCheckIntervalDuration() time.Duration {
	return mustDuration(s.HealthCheckInterval)
}

// BreakerTimeoutDuration returns PROXY_BREAKER_TIMEOUT. Call after Validate.
func (p ProxyConfig) BreakerTimeoutDuration() time.Duration {
	return mustDuration(p.BreakerTimeout)
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func dialectNames() []interface{} {
	names := make([]interface{}, 0, len(database.Dialects()))
	for _, d := range database.Dialects() {
		names = append(names, string(d))
	}
	return names
}

func parseDuration(value interface{}) (time.Duration, error) {
	durationStr, ok := value.(string)
	if !ok {
		return 0, validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return 0, validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return d, nil
}

func validatePositiveDuration(value interface{}) error {
	d, err := parseDuration(value)
	if err != nil {
		return err
	}
	if d <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be greater than zero")
	}
	return nil
}

// validateNonNegativeDuration allows zero, which the pool reads as no limit.
func validateNonNegativeDuration(value interface{}) error {
	d, err := parseDuration(value)
	if err != nil {
		return err
	}
	if d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}
	return nil
}

func validateHTTPURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if err := is.RequestURL.Validate(raw); err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	return nil
}
