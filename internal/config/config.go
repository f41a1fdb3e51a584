package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/netbill/netbill/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Receipt    ReceiptConfig    `validate:"required"`
	S3         S3Config
	Temporal   TemporalConfig
	Sentry     SentryConfig
	Cache      CacheConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
	// CronRateLimit caps trigger requests per minute, zero disables the limit
	CronRateLimit int `mapstructure:"cron_rate_limit" validate:"gte=0"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string `validate:"required"`
	Port                   int    `validate:"required"`
	User                   string `validate:"required"`
	Password               string
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// BillingConfig holds process level billing knobs. Business rules such as
// late fees live in the settings table, not here.
type BillingConfig struct {
	// Timezone used to derive the calendar day for generation and overdue checks
	Timezone string `validate:"required"`
	// Cron expressions for the in-process scheduler
	InvoiceSchedule  string `mapstructure:"invoice_schedule"`
	OverdueSchedule  string `mapstructure:"overdue_schedule"`
	SchedulerEnabled bool   `mapstructure:"scheduler_enabled"`
	// Parallelism bounds the per-entity workers used by batch jobs
	Parallelism int `validate:"gte=0"`
	// SettingsCacheTTL controls how long business settings are cached
	SettingsCacheTTL time.Duration `mapstructure:"settings_cache_ttl"`
}

type ReceiptConfig struct {
	// Store is either "local" or "s3"
	Store       string `validate:"required,oneof=local s3"`
	TypstBinary string `mapstructure:"typst_binary"`
	TemplateDir string `mapstructure:"template_dir"`
	FontDir     string `mapstructure:"font_dir"`
	OutputDir   string `mapstructure:"output_dir"`
	CompanyName string `mapstructure:"company_name"`
}

type S3Config struct {
	Enabled               bool
	Region                string
	Bucket                string
	KeyPrefix             string `mapstructure:"key_prefix"`
	PresignExpiryDuration string `mapstructure:"presign_expiry_duration"`
}

type TemporalConfig struct {
	Enabled   bool
	Address   string
	Namespace string
	TaskQueue string `mapstructure:"task_queue"`
	APIKey    string `mapstructure:"api_key"`
	TLS       bool
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type CacheConfig struct {
	Enabled bool
}

func NewConfig() (*Configuration, error) {
	// .env is optional and only meant for local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/netbill")

	v.SetEnvPrefix("NETBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cron_rate_limit", 30)
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("billing.timezone", "UTC")
	v.SetDefault("billing.invoice_schedule", "0 6 1 * *")
	v.SetDefault("billing.overdue_schedule", "30 6 * * *")
	v.SetDefault("billing.parallelism", 4)
	v.SetDefault("billing.settings_cache_ttl", time.Minute)
	v.SetDefault("receipt.store", "local")
	v.SetDefault("receipt.typst_binary", "typst")
	v.SetDefault("receipt.template_dir", "internal/typst/templates")
	v.SetDefault("receipt.output_dir", "receipts")
	v.SetDefault("temporal.task_queue", "billing")
	v.SetDefault("temporal.namespace", "default")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Billing.Location(); err != nil {
		return err
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing: BillingConfig{
			Timezone:         "UTC",
			Parallelism:      1,
			SettingsCacheTTL: time.Minute,
		},
		Receipt: ReceiptConfig{Store: "local", OutputDir: "receipts"},
	}
}

// Location resolves the billing time zone
func (c BillingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid billing timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
