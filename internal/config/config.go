package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		IdleTimeout     time.Duration `yaml:"idleTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
		MaxPixels       int           `yaml:"maxPixels"`
	} `yaml:"server"`

	Estimator struct {
		ConstantMonths float64 `yaml:"constantMonths"`
	} `yaml:"estimator"`

	Preview struct {
		Width int `yaml:"width"`
	} `yaml:"preview"`

	Report struct {
		Title        string `yaml:"title"`
		AgeUnitLabel string `yaml:"ageUnitLabel"`
	} `yaml:"report"`

	RateLimit struct {
		Enabled    bool `yaml:"enabled"`
		Capacity   int  `yaml:"capacity"`
		RefillRate int  `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	Tracing struct {
		ServiceName    string `yaml:"serviceName"`
		JaegerEndpoint string `yaml:"jaegerEndpoint"`
	} `yaml:"tracing"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 60 * time.Second
	cfg.Server.IdleTimeout = 120 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Server.MaxUploadBytes = 32 << 20
	cfg.Server.MaxPixels = 25_000_000
	cfg.Estimator.ConstantMonths = 120
	cfg.Preview.Width = 200
	cfg.Report.Title = "Bone-Ager Report"
	cfg.Report.AgeUnitLabel = "years"
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Capacity = 30
	cfg.RateLimit.RefillRate = 1
	cfg.CORS.AllowedOrigins = []string{"*"}
	cfg.Tracing.ServiceName = "bone-ager"
	cfg.Log.Level = "info"
	return &cfg
}

// Load reads .env, then the yaml file at path over the defaults, then env
// overrides. A missing file is an error unless path is the default one.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PathFromEnv returns CONFIG_PATH or the default.
func PathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("OTEL_EXPORTER_JAEGER_ENDPOINT"); v != "" {
		c.Tracing.JaegerEndpoint = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.maxUploadBytes must be positive")
	}
	if c.Server.MaxPixels <= 0 {
		return fmt.Errorf("server.maxPixels must be positive")
	}
	if c.Estimator.ConstantMonths < 0 {
		return fmt.Errorf("estimator.constantMonths must not be negative")
	}
	if c.Preview.Width <= 0 {
		return fmt.Errorf("preview.width must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("rateLimit.capacity must be positive when enabled")
	}
	if c.RateLimit.Enabled && c.RateLimit.RefillRate <= 0 {
		return fmt.Errorf("rateLimit.refillRate must be positive when enabled")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
