package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the process configuration of the calibration supervisor
type Config struct {
	// Server configuration
	HTTPPort int    `env:"AUTOCAL_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"AUTOCAL_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// File locations
	DataDir      string `env:"DATA_DIR" envDefault:"./data"`
	DeviceConfig string `env:"DEVICE_CONFIG" envDefault:"configs/device.toml"`
	RunConfig    string `env:"RUN_CONFIG" envDefault:"configs/run.yaml"`
	JournalPath  string `env:"JOURNAL_PATH" envDefault:"./data/journal.db"`

	// Backends of the parameter store and event bus: "redis" or "memory"
	Store  string `env:"PARAMETER_STORE" envDefault:"redis"`
	Events string `env:"EVENT_BUS" envDefault:"memory"`

	// Redis configuration
	Redis RedisConfig

	// Hardware configuration
	Hardware HardwareConfig

	// Analysis acceptance
	Acceptance AcceptanceConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// HardwareConfig selects and tunes the measurement backend
type HardwareConfig struct {
	Backend          string        `env:"HARDWARE_BACKEND" envDefault:"simulator"`
	// ClusterTimeout bounds every schedule compilation
	ClusterTimeout   time.Duration `env:"CLUSTER_TIMEOUT" envDefault:"222s"`
	ExecutionTimeout time.Duration `env:"EXECUTION_TIMEOUT" envDefault:"600s"`
	ProgressInterval time.Duration `env:"PROGRESS_INTERVAL" envDefault:"5s"`

	// Coupler bias source
	BiasRampRate     float64       `env:"BIAS_RAMP_RATE" envDefault:"1e-3"`
	BiasPollInterval time.Duration `env:"BIAS_POLL_INTERVAL" envDefault:"100ms"`

	// Simulated shot time per acquisition point
	ShotTime time.Duration `env:"SIMULATOR_SHOT_TIME" envDefault:"0s"`

	// Shots averaged per point and pause between repeated sweeps
	Repetitions int           `env:"AUTOCAL_REPETITIONS" envDefault:"1024"`
	RepeatPause time.Duration `env:"AUTOCAL_REPEAT_PAUSE" envDefault:"3s"`
}

// AcceptanceConfig controls which analysis results are written back
type AcceptanceConfig struct {
	MinConfidence   float64 `env:"ACCEPT_MIN_CONFIDENCE" envDefault:"0"`
	RequireComplete bool    `env:"ACCEPT_REQUIRE_COMPLETE" envDefault:"false"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	RunTimeout      time.Duration `env:"TIMEOUT_RUN" envDefault:"6h"`
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	backends := map[string]bool{"redis": true, "memory": true}
	if !backends[c.Store] {
		return fmt.Errorf("invalid parameter store: %s (must be redis or memory)", c.Store)
	}
	if !backends[c.Events] {
		return fmt.Errorf("invalid event bus: %s (must be redis or memory)", c.Events)
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	if c.Hardware.Backend != "simulator" {
		return fmt.Errorf("unsupported hardware backend: %s (only 'simulator' is built in)", c.Hardware.Backend)
	}
	if c.Hardware.ClusterTimeout <= 0 {
		return fmt.Errorf("cluster timeout must be positive")
	}
	if c.Hardware.ExecutionTimeout <= 0 {
		return fmt.Errorf("execution timeout must be positive")
	}
	if c.Hardware.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be positive")
	}
	if c.Hardware.BiasRampRate <= 0 {
		return fmt.Errorf("bias ramp rate must be positive")
	}
	if c.Hardware.Repetitions < 1 {
		return fmt.Errorf("invalid repetitions: %d", c.Hardware.Repetitions)
	}
	if c.Hardware.RepeatPause < 0 {
		return fmt.Errorf("repeat pause must not be negative")
	}

	if c.Acceptance.MinConfidence < 0 || c.Acceptance.MinConfidence > 1 {
		return fmt.Errorf("minimum confidence must be within [0, 1]: %g", c.Acceptance.MinConfidence)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// UsesRedis reports whether any backend needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Store == "redis" || c.Events == "redis"
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
