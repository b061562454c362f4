package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort            = 5000
	DefaultRefreshInterval = 60 * time.Second
	DefaultAlertsIntervalS = 300
	DefaultFeedTimeoutS    = 30
	DefaultRequestTimeoutS = 10
	DefaultSearchLimit     = 50
	DefaultMaxTrains       = 10
	DefaultSubwayMinutes   = 30
	DefaultRegionalMinutes = 240
)

// Environment variables that override file values.
const (
	EnvSettings    = "MTAPI_SETTINGS"
	EnvAPIKey      = "MTA_KEY"
	EnvPort        = "PORT"
	EnvCrossOrigin = "MTAPI_CROSS_ORIGIN"
	EnvLogLevel    = "MTAPI_LOG_LEVEL"
)

// Config is the global application configuration
var Config AppConfig

var validate = validator.New()

// LoadAppConfig loads .env, then the first configuration file found in
// $MTAPI_SETTINGS, ./config.yml or ./settings.yml, and stores it in Config.
func LoadAppConfig() error {
	if err := LoadEnv(); err != nil {
		return err
	}
	var paths []string
	if p := os.Getenv(EnvSettings); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "config.yml", "settings.yml")

	for _, p := range paths {
		cfg, err := LoadFromFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		Config = *cfg
		return nil
	}
	return fmt.Errorf("no configuration found in %v: create config.yml or set %s", paths, EnvSettings)
}

// LoadFromFile reads, overrides and validates one configuration file.
func LoadFromFile(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, applies environment overrides and defaults, and validates
// the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate.Struct(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv loads variables from .env files into the process environment without
// overriding ones already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.Feed.APIKey = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvCrossOrigin); v != "" {
		cfg.Server.CrossOrigin = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.RequestTimeoutS == 0 {
		cfg.Server.RequestTimeoutS = DefaultRequestTimeoutS
	}
	if cfg.Server.SearchLimit == 0 {
		cfg.Server.SearchLimit = DefaultSearchLimit
	}
	if cfg.Feed.TimeoutS == 0 {
		cfg.Feed.TimeoutS = DefaultFeedTimeoutS
	}
	for i := range cfg.Systems {
		s := &cfg.Systems[i]
		if s.AlertsIntervalS == 0 {
			s.AlertsIntervalS = DefaultAlertsIntervalS
		}
		if s.MaxTrains == 0 {
			s.MaxTrains = DefaultMaxTrains
		}
		if s.MaxMinutes == 0 {
			s.MaxMinutes = DefaultRegionalMinutes
			if s.Name == "subway" {
				s.MaxMinutes = DefaultSubwayMinutes
			}
		}
	}
}
