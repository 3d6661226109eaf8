package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that behavior.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// ORBIT_SECTION_FIELD (e.g., ORBIT_SERVER_LISTEN_ADDRESS) and always take
// precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies ORBIT_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ORBIT_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("ORBIT_GATEWAY_BASE_URL"); val != "" {
		cfg.Gateway.BaseURL = val
	}
	if val := os.Getenv("ORBIT_GATEWAY_API_KEY"); val != "" {
		cfg.Gateway.APIKey = val
	}
	if val := os.Getenv("ORBIT_GOVERNOR_SOFT_BUDGET"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Governor.SoftBudget = f
		}
	}
	if val := os.Getenv("ORBIT_GOVERNOR_HARD_CEILING"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Governor.HardCeiling = f
		}
	}
	if val := os.Getenv("ORBIT_GOVERNOR_REQUESTS_PER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Governor.RequestsPerMinute = i
		}
	}
	if val := os.Getenv("ORBIT_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if val := os.Getenv("ORBIT_ORCHESTRATOR_ATTEMPT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Orchestrator.AttemptTimeout = d
		}
	}
	if val := os.Getenv("ORBIT_ORCHESTRATOR_TURN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Orchestrator.TurnTimeout = d
		}
	}
	if val := os.Getenv("ORBIT_SESSIONS_BACKEND"); val != "" {
		cfg.Sessions.Backend = val
	}
	if val := os.Getenv("ORBIT_SESSIONS_REDIS_ADDR"); val != "" {
		cfg.Sessions.Redis.Addr = val
	}
	if val := os.Getenv("ORBIT_SESSIONS_REDIS_PASSWORD"); val != "" {
		cfg.Sessions.Redis.Password = val
	}
	if val := os.Getenv("ORBIT_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("ORBIT_MONITOR_STORE_PATH"); val != "" {
		cfg.Monitor.StorePath = val
	}
}
