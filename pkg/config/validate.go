package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for errors and inconsistencies.
// It verifies that every backend the selector references exists, that the
// referenced backends carry the required capability flags, and that the
// governor's thresholds are ordered.
func Validate(cfg *Config) error {
	if len(cfg.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}

	for name, backend := range cfg.Backends {
		if backend.Model == "" {
			return fmt.Errorf("backend %q: model cannot be empty", name)
		}
		if backend.InputCostPer1K < 0 || backend.OutputCostPer1K < 0 || backend.VisionCostPer1K < 0 {
			return fmt.Errorf("backend %q: costs cannot be negative", name)
		}
		if backend.Vision && backend.VisionCostPer1K == 0 {
			return fmt.Errorf("backend %q: vision-capable backend must set vision_cost_per_1k", name)
		}
	}

	// Selector role references must resolve to configured backends.
	roles := map[string]string{
		"conversational_backend": cfg.Selector.ConversationalBackend,
		"technical_backend":      cfg.Selector.TechnicalBackend,
		"emergency_backend":      cfg.Selector.EmergencyBackend,
		"last_resort":            cfg.Selector.LastResort,
	}
	for role, name := range roles {
		if name == "" {
			return fmt.Errorf("selector: %s must be set", role)
		}
		if _, ok := cfg.Backends[name]; !ok {
			return fmt.Errorf("selector: %s references unknown backend %q", role, name)
		}
	}
	if !cfg.Backends[cfg.Selector.EmergencyBackend].EmergencyTier {
		return fmt.Errorf("selector: emergency_backend %q is not flagged emergency_tier",
			cfg.Selector.EmergencyBackend)
	}
	if cfg.Selector.CostGuardRatio <= 0 || cfg.Selector.CostGuardRatio >= 1 {
		return fmt.Errorf("selector: cost_guard_ratio must be in (0, 1), got %f",
			cfg.Selector.CostGuardRatio)
	}

	if cfg.Governor.SoftBudget >= cfg.Governor.HardCeiling {
		return fmt.Errorf("governor: soft_budget (%f) must be below hard_ceiling (%f)",
			cfg.Governor.SoftBudget, cfg.Governor.HardCeiling)
	}
	if cfg.Governor.RequestsPerMinute < 1 {
		return fmt.Errorf("governor: requests_per_minute must be at least 1")
	}

	if cfg.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker: failure_threshold must be at least 1")
	}
	if cfg.Breaker.Cooldown <= 0 {
		return fmt.Errorf("breaker: cooldown must be positive")
	}

	if cfg.Orchestrator.AttemptTimeout <= 0 {
		return fmt.Errorf("orchestrator: attempt_timeout must be positive")
	}
	if cfg.Orchestrator.TurnTimeout < cfg.Orchestrator.AttemptTimeout {
		return fmt.Errorf("orchestrator: turn_timeout (%s) must be at least attempt_timeout (%s)",
			cfg.Orchestrator.TurnTimeout, cfg.Orchestrator.AttemptTimeout)
	}

	if _, err := cron.ParseStandard(cfg.Monitor.RollupSchedule); err != nil {
		return fmt.Errorf("monitor: invalid rollup_schedule %q: %w", cfg.Monitor.RollupSchedule, err)
	}
	if cfg.Monitor.SuccessRateFloor <= 0 || cfg.Monitor.SuccessRateFloor > 1 {
		return fmt.Errorf("monitor: success_rate_floor must be in (0, 1], got %f",
			cfg.Monitor.SuccessRateFloor)
	}

	switch cfg.Sessions.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("sessions: unknown backend %q (expected \"memory\" or \"redis\")",
			cfg.Sessions.Backend)
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry: unknown log level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry: unknown log format %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}
