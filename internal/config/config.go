package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig   `yaml:"server"`
	MetaDB     DBConfig       `yaml:"meta_db"`
	DispatchDB DBConfig       `yaml:"dispatch_db"`
	Redis      RedisConfig    `yaml:"redis"`
	Campaign   CampaignConfig `yaml:"campaign"`
	Reconcile  ReconcileConfig `yaml:"reconcile"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DBConfig holds one PostgreSQL connection. The metadata store (campaigns,
// customers, runs) and the dispatch store (sms_queue) are separate
// databases in production; pointing both URLs at the same database is fine
// for development.
type DBConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection for locks and progress caching.
// Redis is optional; with no address configured, locks fall back to
// Postgres advisory locks and progress reporting is disabled.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CampaignConfig holds dispatch pipeline tuning.
type CampaignConfig struct {
	LockWindowMinutes    int    `yaml:"lock_window_minutes"`
	SplitIntervalSeconds int    `yaml:"split_interval_seconds"`
	InsertBatchSize      int    `yaml:"insert_batch_size"`
	WriteWorkers         int    `yaml:"write_workers"`
	EditBatchSize        int    `yaml:"edit_batch_size"`
	ProgressTTLSeconds   int    `yaml:"progress_ttl_seconds"`
	DefaultCallback      string `yaml:"default_callback"`
}

// LockWindow returns the schedule mutation lock window as a duration
func (c CampaignConfig) LockWindow() time.Duration {
	return time.Duration(c.LockWindowMinutes) * time.Minute
}

// SplitInterval returns the gap between split-send chunks as a duration
func (c CampaignConfig) SplitInterval() time.Duration {
	return time.Duration(c.SplitIntervalSeconds) * time.Second
}

// ProgressTTL returns the progress cache key lifetime as a duration
func (c CampaignConfig) ProgressTTL() time.Duration {
	return time.Duration(c.ProgressTTLSeconds) * time.Second
}

// ReconcileConfig holds reconciliation loop tuning.
type ReconcileConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// Interval returns the reconciliation interval as a duration
func (c ReconcileConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.MetaDB.MaxOpenConns == 0 {
		cfg.MetaDB.MaxOpenConns = 20
	}
	if cfg.MetaDB.MaxIdleConns == 0 {
		cfg.MetaDB.MaxIdleConns = 5
	}
	if cfg.DispatchDB.MaxOpenConns == 0 {
		cfg.DispatchDB.MaxOpenConns = 20
	}
	if cfg.DispatchDB.MaxIdleConns == 0 {
		cfg.DispatchDB.MaxIdleConns = 5
	}
	if cfg.Campaign.LockWindowMinutes == 0 {
		cfg.Campaign.LockWindowMinutes = 15
	}
	if cfg.Campaign.SplitIntervalSeconds == 0 {
		cfg.Campaign.SplitIntervalSeconds = 60
	}
	if cfg.Campaign.InsertBatchSize == 0 {
		cfg.Campaign.InsertBatchSize = 500
	}
	if cfg.Campaign.WriteWorkers == 0 {
		cfg.Campaign.WriteWorkers = 4
	}
	if cfg.Campaign.EditBatchSize == 0 {
		cfg.Campaign.EditBatchSize = 200
	}
	if cfg.Campaign.ProgressTTLSeconds == 0 {
		cfg.Campaign.ProgressTTLSeconds = 600
	}
	if cfg.Reconcile.IntervalSeconds == 0 {
		cfg.Reconcile.IntervalSeconds = 30
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.MetaDB.URL = v
	}
	if v := os.Getenv("DISPATCH_DATABASE_URL"); v != "" {
		cfg.DispatchDB.URL = v
	}
	// A single-database deployment sets only DATABASE_URL.
	if cfg.DispatchDB.URL == "" {
		cfg.DispatchDB.URL = cfg.MetaDB.URL
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DEFAULT_CALLBACK"); v != "" {
		cfg.Campaign.DefaultCallback = v
	}

	return cfg, nil
}
