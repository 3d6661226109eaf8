package config

import "time"

// Default user-facing strings. Every failure path terminates in one of these
// fixed, human-escalation-oriented messages; none is ever backend-generated.
const (
	DefaultFallbackMessage = "I'm sorry, we're having a technical issue on our side. " +
		"I'm connecting you with a member of our team who can help you right away."

	DefaultRateLimitMessage = "You're sending messages a little too quickly. " +
		"Please wait a few seconds and try again."

	DefaultCostLimitMessage = "To give you the best help from here, let me connect " +
		"you with one of our specialists. One moment please."

	DefaultSafeFallback = "Hi! How can I help you today?"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It is called automatically by LoadConfig before validation.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1:8085"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// Gateway defaults
	if cfg.Gateway.MaxTokens == 0 {
		cfg.Gateway.MaxTokens = 300
	}
	if cfg.Gateway.Temperature == 0 {
		cfg.Gateway.Temperature = 0.7
	}
	if cfg.Gateway.HistoryDepth == 0 {
		cfg.Gateway.HistoryDepth = 5
	}

	// Backend defaults
	for name, backend := range cfg.Backends {
		if backend.LatencyCeiling == 0 {
			backend.LatencyCeiling = 3 * time.Second
			cfg.Backends[name] = backend
		}
	}

	// Governor defaults
	if cfg.Governor.RequestsPerMinute == 0 {
		cfg.Governor.RequestsPerMinute = 18
	}
	if cfg.Governor.SoftBudget == 0 {
		cfg.Governor.SoftBudget = 0.040
	}
	if cfg.Governor.HardCeiling == 0 {
		cfg.Governor.HardCeiling = 0.072
	}
	if cfg.Governor.HourlyCeiling == 0 {
		cfg.Governor.HourlyCeiling = 5.00
	}
	if cfg.Governor.DailyCeiling == 0 {
		cfg.Governor.DailyCeiling = 40.00
	}
	if cfg.Governor.ProjectedOutputTokens == 0 {
		cfg.Governor.ProjectedOutputTokens = 200
	}
	if cfg.Governor.VisionTokensPerImage == 0 {
		cfg.Governor.VisionTokensPerImage = 1000
	}
	if cfg.Governor.MaxImagesPerTurn == 0 {
		cfg.Governor.MaxImagesPerTurn = 5
	}

	// Cache defaults
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = time.Hour
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 1000
	}
	if cfg.Cache.MinResponseLength == 0 {
		cfg.Cache.MinResponseLength = 30
	}

	// Selector defaults
	if cfg.Selector.CostGuardRatio == 0 {
		cfg.Selector.CostGuardRatio = 0.8
	}

	// Breaker defaults
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Breaker.Cooldown == 0 {
		cfg.Breaker.Cooldown = 30 * time.Second
	}

	// Orchestrator defaults
	if cfg.Orchestrator.AttemptTimeout == 0 {
		cfg.Orchestrator.AttemptTimeout = 2500 * time.Millisecond
	}
	if cfg.Orchestrator.EmergencyAttemptTimeout == 0 {
		cfg.Orchestrator.EmergencyAttemptTimeout = 1500 * time.Millisecond
	}
	if cfg.Orchestrator.TurnTimeout == 0 {
		cfg.Orchestrator.TurnTimeout = 8 * time.Second
	}
	if cfg.Orchestrator.FallbackMessage == "" {
		cfg.Orchestrator.FallbackMessage = DefaultFallbackMessage
	}
	if cfg.Orchestrator.RateLimitMessage == "" {
		cfg.Orchestrator.RateLimitMessage = DefaultRateLimitMessage
	}
	if cfg.Orchestrator.CostLimitMessage == "" {
		cfg.Orchestrator.CostLimitMessage = DefaultCostLimitMessage
	}

	// Sanitizer defaults
	if len(cfg.Sanitizer.Fingerprints) == 0 {
		cfg.Sanitizer.Fingerprints = []string{
			"You are the virtual assistant",
			"You are a helpful assistant",
			"IDENTITY:",
			"# IDENTITY",
			"ABSOLUTE RULES",
			"CONVERSATION OBJECTIVES:",
			"Always respond as",
			"system prompt",
			"SYSTEM PROMPT",
		}
	}
	if len(cfg.Sanitizer.SectionMarkers) == 0 {
		cfg.Sanitizer.SectionMarkers = []string{
			"## ", "### ", "IDENTITY", "RULES", "OBJECTIVES", "BEHAVIOR",
			"INSTRUCTIONS", "🎯", "📞", "🏢",
		}
	}
	if len(cfg.Sanitizer.InstructionalVocabulary) == 0 {
		cfg.Sanitizer.InstructionalVocabulary = []string{
			"always", "never", "must", "respond", "you are", "do not",
			"objective", "persona", "instructions", "guidelines",
		}
	}
	if cfg.Sanitizer.MarkerThreshold == 0 {
		cfg.Sanitizer.MarkerThreshold = 2
	}
	if cfg.Sanitizer.SuspectLength == 0 {
		cfg.Sanitizer.SuspectLength = 500
	}
	if cfg.Sanitizer.VocabularyDensity == 0 {
		cfg.Sanitizer.VocabularyDensity = 3.0
	}
	if cfg.Sanitizer.SafeFallback == "" {
		cfg.Sanitizer.SafeFallback = DefaultSafeFallback
	}

	// Monitor defaults
	if cfg.Monitor.HourlyBuckets == 0 {
		cfg.Monitor.HourlyBuckets = 24
	}
	if cfg.Monitor.DailyBuckets == 0 {
		cfg.Monitor.DailyBuckets = 30
	}
	if cfg.Monitor.RollupSchedule == "" {
		cfg.Monitor.RollupSchedule = "0 * * * *"
	}
	if cfg.Monitor.TargetCostPerTurn == 0 {
		cfg.Monitor.TargetCostPerTurn = 0.040
	}
	if cfg.Monitor.TargetLatency == 0 {
		cfg.Monitor.TargetLatency = 2 * time.Second
	}
	if cfg.Monitor.CostSpikeMultiplier == 0 {
		cfg.Monitor.CostSpikeMultiplier = 2.0
	}
	if cfg.Monitor.LatencySpikeMultiplier == 0 {
		cfg.Monitor.LatencySpikeMultiplier = 1.5
	}
	if cfg.Monitor.SuccessRateFloor == 0 {
		cfg.Monitor.SuccessRateFloor = 0.85
	}
	if cfg.Monitor.BaselineCostPerTurn == 0 {
		cfg.Monitor.BaselineCostPerTurn = 0.075
	}
	if cfg.Monitor.MaxAlerts == 0 {
		cfg.Monitor.MaxAlerts = 100
	}

	// Sessions defaults
	if cfg.Sessions.Backend == "" {
		cfg.Sessions.Backend = "memory"
	}
	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = 30 * time.Minute
	}
	if cfg.Sessions.HistoryLimit == 0 {
		cfg.Sessions.HistoryLimit = 10
	}
	if cfg.Sessions.Redis.Addr == "" {
		cfg.Sessions.Redis.Addr = "127.0.0.1:6379"
	}
	if cfg.Sessions.Redis.KeyPrefix == "" {
		cfg.Sessions.Redis.KeyPrefix = "orbit:session:"
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "orbit"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "core"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
}
