package config

import (
	"errors"
	"fmt"
	"os"

	"bookline/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Payfast    PayfastConfig    `yaml:"payfast"`
	Billing    BillingConfig    `yaml:"billing"`
	Booking    BookingConfig    `yaml:"booking"`
	API        APIConfig        `yaml:"api"`
	Worker     WorkerConfig     `yaml:"worker"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	BaseURL     string `yaml:"base_url"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type PayfastConfig struct {
	MerchantID  string `yaml:"merchant_id"`
	MerchantKey string `yaml:"merchant_key"`
	Passphrase  string `yaml:"passphrase"`
	Sandbox     bool   `yaml:"sandbox"`
}

// BillingConfig carries the tier -> monthly booking ceiling table. The
// ceilings live here, injected into the usage gate, instead of being
// repeated at call sites. A missing or zero ceiling means unbounded.
type BillingConfig struct {
	TierLimits      map[string]int `yaml:"tier_limits"`
	GracePeriodDays int            `yaml:"grace_period_days"`
	CycleSchedule   string         `yaml:"cycle_schedule"`
}

type BookingConfig struct {
	MaxAdvanceDays     int `yaml:"max_advance_days"`
	LockTimeoutSeconds int `yaml:"lock_timeout_seconds"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type WorkerConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	BatchSize           int `yaml:"batch_size"`
	MaxRetries          int `yaml:"max_retries"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Payfast.MerchantID == "" || c.Payfast.MerchantKey == "" {
		return errors.New("payfast merchant credentials are required")
	}

	for tier, limit := range c.Billing.TierLimits {
		switch tier {
		case models.TierBasic, models.TierProfessional, models.TierEnterprise:
		default:
			return fmt.Errorf("unknown subscription tier in tier_limits: %s", tier)
		}
		if limit < 0 {
			return fmt.Errorf("negative booking ceiling for tier %s", tier)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "bookline"
	}
	if c.App.BaseURL == "" {
		c.App.BaseURL = "http://localhost:8080"
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Billing.TierLimits == nil {
		c.Billing.TierLimits = map[string]int{
			models.TierBasic:        50,
			models.TierProfessional: 200,
			// ENTERPRISE is unbounded and deliberately absent
		}
	}
	if c.Billing.GracePeriodDays == 0 {
		c.Billing.GracePeriodDays = 7
	}
	if c.Billing.CycleSchedule == "" {
		c.Billing.CycleSchedule = "5 0 * * *"
	}

	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = 365
	}
	if c.Booking.LockTimeoutSeconds == 0 {
		c.Booking.LockTimeoutSeconds = models.DefaultLockTimeoutSeconds
	}

	if c.Worker.PollIntervalSeconds == 0 {
		c.Worker.PollIntervalSeconds = 5
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 20
	}
	if c.Worker.MaxRetries == 0 {
		c.Worker.MaxRetries = 5
	}
}
