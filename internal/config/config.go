package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration required by the API process and the CLI.
//
// Values come from an optional YAML file (CONFIG_FILE) and are then overridden by env.
// No business logic should depend on raw environment variables.
type Config struct {
	App          AppConfig          `yaml:"app"`
	DB           DBConfig           `yaml:"db"`
	Redis        RedisConfig        `yaml:"redis"`
	Auth         AuthConfig         `yaml:"auth"`
	Twilio       TwilioConfig       `yaml:"twilio"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Analytics    AnalyticsConfig    `yaml:"analytics"`
}

type AppConfig struct {
	Env  string `yaml:"env"`
	Port int    `yaml:"port"`

	// Timezone is the IANA zone used for hour/day bucketing. Defaults to UTC.
	Timezone string `yaml:"timezone"`
	LogLevel string `yaml:"log_level"`
}

type DBConfig struct {
	// URL, when set, is used as the DSN as-is (hosted Postgres connection strings).
	URL string `yaml:"url"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string `yaml:"sslmode"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

// AuthConfig describes the HS256 tokens minted by the hosted identity provider.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	JWTIssuer      string        `yaml:"jwt_issuer"`
	JWTAudience    string        `yaml:"jwt_audience"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
}

type TwilioConfig struct {
	// AuthToken enables X-Twilio-Signature validation when set.
	AuthToken string `yaml:"auth_token"`
	// PublicBaseURL is the externally visible scheme+host Twilio signs against.
	PublicBaseURL string `yaml:"public_base_url"`
}

type ProvisioningConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type AnalyticsConfig struct {
	// Capacity is the assumed monthly call capacity used for utilization estimates.
	Capacity int `yaml:"capacity"`
	// ExportLimit bounds how many records one export or quality scan reads.
	ExportLimit int `yaml:"export_limit"`
	// JobConcurrency caps concurrent export/report/import jobs per tenant.
	JobConcurrency int           `yaml:"job_concurrency"`
	JobTTL         time.Duration `yaml:"job_ttl"`
}

const (
	DefaultCapacity    = 100
	MaxExportLimit     = 1000
	defaultJobSlots    = 2
	defaultJobTTL      = 5 * time.Minute
	defaultHookTimeout = 30 * time.Second
)

func Load() (Config, error) {
	c := Config{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &c); err != nil {
			return Config{}, err
		}
	}

	var parseErrs []error

	envString(&c.App.Env, "APP_ENV")
	parseErrs = envInt(parseErrs, &c.App.Port, "APP_PORT")
	envString(&c.App.Timezone, "APP_TIMEZONE")
	envString(&c.App.LogLevel, "LOG_LEVEL")

	envString(&c.DB.URL, "DATABASE_URL")
	envString(&c.DB.Host, "DB_HOST")
	parseErrs = envInt(parseErrs, &c.DB.Port, "DB_PORT")
	envString(&c.DB.User, "DB_USER")
	envSecret(&c.DB.Password, "DB_PASSWORD")
	envString(&c.DB.Name, "DB_NAME")
	envString(&c.DB.SSLMode, "DB_SSLMODE")

	envString(&c.Redis.Host, "REDIS_HOST")
	parseErrs = envInt(parseErrs, &c.Redis.Port, "REDIS_PORT")
	envSecret(&c.Redis.Password, "REDIS_PASSWORD")

	envSecret(&c.Auth.JWTSecret, "JWT_SECRET")
	envString(&c.Auth.JWTIssuer, "JWT_ISSUER")
	envString(&c.Auth.JWTAudience, "JWT_AUDIENCE")
	parseErrs = envDuration(parseErrs, &c.Auth.AccessTokenTTL, "JWT_ACCESS_TTL")

	envSecret(&c.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	envString(&c.Twilio.PublicBaseURL, "TWILIO_PUBLIC_BASE_URL")

	envString(&c.Provisioning.WebhookURL, "AGENT_WEBHOOK_URL")
	parseErrs = envDuration(parseErrs, &c.Provisioning.Timeout, "AGENT_WEBHOOK_TIMEOUT")

	parseErrs = envInt(parseErrs, &c.Analytics.Capacity, "ANALYTICS_CAPACITY")
	parseErrs = envInt(parseErrs, &c.Analytics.ExportLimit, "ANALYTICS_EXPORT_LIMIT")
	parseErrs = envInt(parseErrs, &c.Analytics.JobConcurrency, "ANALYTICS_JOB_CONCURRENCY")
	parseErrs = envDuration(parseErrs, &c.Analytics.JobTTL, "ANALYTICS_JOB_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func loadFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports every problem at once and fills in defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE is not a known zone: %q", c.App.Timezone))
	}

	if c.DB.URL != "" {
		if _, err := url.Parse(c.DB.URL); err != nil {
			errs = append(errs, errors.New("DATABASE_URL is not a valid url"))
		}
	} else {
		if c.DB.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required"))
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if strings.TrimSpace(c.DB.SSLMode) == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				// Local-friendly default; production must be explicit.
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = time.Hour
	}

	if c.Provisioning.WebhookURL != "" {
		if u, err := url.Parse(c.Provisioning.WebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("AGENT_WEBHOOK_URL must be an absolute url, got %q", c.Provisioning.WebhookURL))
		}
	}
	if c.Provisioning.Timeout <= 0 {
		c.Provisioning.Timeout = defaultHookTimeout
	}

	if c.Analytics.Capacity <= 0 {
		c.Analytics.Capacity = DefaultCapacity
	}
	if c.Analytics.ExportLimit <= 0 {
		c.Analytics.ExportLimit = MaxExportLimit
	}
	if c.Analytics.ExportLimit > MaxExportLimit {
		errs = append(errs, fmt.Errorf("ANALYTICS_EXPORT_LIMIT must be at most %d, got %d", MaxExportLimit, c.Analytics.ExportLimit))
	}
	if c.Analytics.JobConcurrency <= 0 {
		c.Analytics.JobConcurrency = defaultJobSlots
	}
	if c.Analytics.JobTTL <= 0 {
		c.Analytics.JobTTL = defaultJobTTL
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// Location returns the bucketing zone. Validate has already checked the name.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	if c.DB.URL != "" {
		return c.DB.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// envSecret keeps surrounding whitespace; secrets are taken verbatim.
func envSecret(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(errs []error, dst *int, key string) []error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	*dst = n
	return errs
}

func envDuration(errs []error, dst *time.Duration, key string) []error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return append(errs, fmt.Errorf("%s must be a duration, got %q", key, v))
	}
	*dst = d
	return errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
