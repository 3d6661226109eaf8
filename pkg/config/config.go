package config

import "time"

// Config is the root configuration structure for Orbit.
// It contains all configuration sections for the orchestration core: the
// completion gateway, backend descriptors, the cost/rate governor, the
// response cache, the model selector, the failover orchestrator, the output
// sanitizer, the performance monitor, session storage, and telemetry.
type Config struct {
	// Server contains HTTP server configuration for the chat endpoint,
	// health checks, and the metrics handler.
	Server ServerConfig `yaml:"server"`

	// Gateway contains configuration for the external completion gateway.
	Gateway GatewayConfig `yaml:"gateway"`

	// Backends contains the static descriptor for every model backend the
	// core can dispatch to. Keys are backend identifiers
	// (e.g., "chat-mini", "docs-lite", "haiku-emergency").
	Backends map[string]BackendConfig `yaml:"backends"`

	// Governor contains per-session rate limiting and cost budget settings.
	Governor GovernorConfig `yaml:"governor"`

	// Cache contains response cache settings.
	Cache CacheConfig `yaml:"cache"`

	// Selector contains model selection settings including the lexicon file
	// used for category scoring.
	Selector SelectorConfig `yaml:"selector"`

	// Breaker contains circuit breaker settings applied per backend.
	Breaker BreakerConfig `yaml:"breaker"`

	// Orchestrator contains failover dispatch settings and the fixed
	// user-facing strings for every failure path.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Sanitizer contains output leak detection settings.
	Sanitizer SanitizerConfig `yaml:"sanitizer"`

	// Monitor contains performance monitoring, alerting, and persistence
	// settings.
	Monitor MonitorConfig `yaml:"monitor"`

	// Sessions contains session store settings.
	Sessions SessionsConfig `yaml:"sessions"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8085").
	// Default: "127.0.0.1:8085"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// This must exceed the orchestrator's turn deadline or slow failover
	// chains are cut off mid-response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GatewayConfig contains configuration for the external completion gateway.
// The gateway is the single remote collaborator the core blocks on; every
// call through it is bounded by the orchestrator's per-attempt deadline.
type GatewayConfig struct {
	// BaseURL is the completion API endpoint.
	// Example: "https://gateway.example.com/v1/chat/completions"
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates requests to the gateway. Prefer setting this via
	// the ORBIT_GATEWAY_API_KEY environment variable over the config file.
	APIKey string `yaml:"api_key"`

	// MaxTokens is the completion token budget hint sent with each request.
	// Default: 300
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature sent with each request.
	// Default: 0.7
	Temperature float64 `yaml:"temperature"`

	// HistoryDepth is how many prior exchanges (user+assistant pairs) from
	// the session are sent as conversation history.
	// Default: 5
	HistoryDepth int `yaml:"history_depth"`
}

// BackendConfig is the static descriptor for a single model backend.
// Descriptors are immutable for the process lifetime; they are loaded once
// at startup and validated against the selector's role references.
type BackendConfig struct {
	// Model is the upstream model identifier passed to the gateway.
	Model string `yaml:"model"`

	// InputCostPer1K is the cost per 1000 input tokens.
	InputCostPer1K float64 `yaml:"input_cost_per_1k"`

	// OutputCostPer1K is the cost per 1000 output tokens.
	OutputCostPer1K float64 `yaml:"output_cost_per_1k"`

	// VisionCostPer1K is the cost per 1000 vision tokens. Zero means the
	// backend cannot process images.
	VisionCostPer1K float64 `yaml:"vision_cost_per_1k"`

	// LatencyCeiling is the target latency for this backend. Attempts are
	// not cut at this value (the orchestrator deadline does that); it feeds
	// monitor alerting and the selector's capability tiers.
	// Default: 3s
	LatencyCeiling time.Duration `yaml:"latency_ceiling"`

	// Vision indicates the backend accepts image inputs.
	Vision bool `yaml:"vision"`

	// EmergencyTier indicates the backend is suitable as a low-latency
	// emergency responder.
	EmergencyTier bool `yaml:"emergency_tier"`

	// VisionTier ranks vision-capable backends; higher tiers are tried
	// first for image-bearing turns.
	VisionTier int `yaml:"vision_tier"`
}

// GovernorConfig contains per-session rate limiting and cost budgets.
type GovernorConfig struct {
	// RequestsPerMinute is the per-session sliding-window request ceiling.
	// Requests beyond this within one minute are declined before any
	// backend call.
	// Default: 18
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// SoftBudget is the per-session cost threshold that biases routing
	// toward the cheapest eligible backend once 80% is consumed.
	// Default: 0.040
	SoftBudget float64 `yaml:"soft_budget"`

	// HardCeiling is the per-session cost ceiling. A request whose projected
	// cost would exceed it is declined and the session is handed to a human.
	// Default: 0.072
	HardCeiling float64 `yaml:"hard_ceiling"`

	// HourlyCeiling is the process-wide aggregate cost ceiling per hour.
	// Zero disables the check.
	// Default: 5.00
	HourlyCeiling float64 `yaml:"hourly_ceiling"`

	// DailyCeiling is the process-wide aggregate cost ceiling per day.
	// Zero disables the check.
	// Default: 40.00
	DailyCeiling float64 `yaml:"daily_ceiling"`

	// ProjectedOutputTokens is the assumed completion length used when
	// projecting the cost of an admission candidate.
	// Default: 200
	ProjectedOutputTokens int `yaml:"projected_output_tokens"`

	// VisionTokensPerImage is the assumed vision token cost per attached
	// image used for projection and surcharge accounting.
	// Default: 1000
	VisionTokensPerImage int `yaml:"vision_tokens_per_image"`

	// MaxImagesPerTurn caps how many attached images a single turn may
	// carry; extras are dropped before projection. Zero disables the cap.
	// Default: 5
	MaxImagesPerTurn int `yaml:"max_images_per_turn"`
}

// CacheConfig contains response cache settings.
type CacheConfig struct {
	// TTL is how long a cached completion stays servable. Stale entries are
	// lazily evicted at lookup time.
	// Default: 1h
	TTL time.Duration `yaml:"ttl"`

	// MaxEntries bounds cache memory; the oldest entry is evicted when the
	// cache is full. Zero means unlimited.
	// Default: 1000
	MaxEntries int `yaml:"max_entries"`

	// MinResponseLength is the minimum completion length (in bytes) for an
	// entry to be cacheable. Short confirmations are not worth caching.
	// Default: 30
	MinResponseLength int `yaml:"min_response_length"`
}

// SelectorConfig contains model selection settings.
type SelectorConfig struct {
	// LexiconPath is the yaml file holding the category keyword lexicons.
	// The file is watched and hot-reloaded when it changes.
	LexiconPath string `yaml:"lexicon_path"`

	// ConversationalBackend is dispatched first for customer-facing turns.
	ConversationalBackend string `yaml:"conversational_backend"`

	// TechnicalBackend is dispatched first for technical/reference turns.
	TechnicalBackend string `yaml:"technical_backend"`

	// EmergencyBackend is the low-latency backend placed first for
	// emergency turns.
	EmergencyBackend string `yaml:"emergency_backend"`

	// LastResort is the hard-coded fallback used when breaker exclusion
	// empties the candidate list.
	LastResort string `yaml:"last_resort"`

	// CostGuardRatio is the fraction of the soft budget beyond which the
	// cheapest eligible backend is forced.
	// Default: 0.8
	CostGuardRatio float64 `yaml:"cost_guard_ratio"`
}

// BreakerConfig contains circuit breaker settings shared by all backends.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// Cooldown is how long an open breaker blocks a backend before one
	// half-open probe is allowed.
	// Default: 30s
	Cooldown time.Duration `yaml:"cooldown"`
}

// OrchestratorConfig contains failover dispatch settings and the fixed
// user-facing strings for every failure path. None of these strings are ever
// backend-generated, so they stay available when every backend is down.
type OrchestratorConfig struct {
	// AttemptTimeout bounds a single backend attempt.
	// Default: 2500ms
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// EmergencyAttemptTimeout bounds a single attempt for emergency turns.
	// Default: 1500ms
	EmergencyAttemptTimeout time.Duration `yaml:"emergency_attempt_timeout"`

	// TurnTimeout bounds the whole failover chain for one turn. When it is
	// exceeded remaining candidates are abandoned and the fallback message
	// is returned immediately.
	// Default: 8s
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// FallbackMessage is returned when every candidate fails.
	FallbackMessage string `yaml:"fallback_message"`

	// FallbackContacts are the escalation channels appended to the
	// fallback message as selectable options.
	FallbackContacts []string `yaml:"fallback_contacts"`

	// RateLimitMessage is the soft decline for rate-limited sessions.
	RateLimitMessage string `yaml:"rate_limit_message"`

	// CostLimitMessage is the soft decline when a session hits its hard
	// cost ceiling; the caller is told to hand off to a human.
	CostLimitMessage string `yaml:"cost_limit_message"`
}

// SanitizerConfig contains output leak detection settings.
type SanitizerConfig struct {
	// Fingerprints are literal substrings whose presence in a completion
	// indicates the backend echoed internal operating instructions.
	Fingerprints []string `yaml:"fingerprints"`

	// SectionMarkers are structural markers (section headers, directive
	// glyphs) counted across the completion.
	SectionMarkers []string `yaml:"section_markers"`

	// MarkerThreshold is the number of distinct section markers at which a
	// completion is treated as leaked structure.
	// Default: 2
	MarkerThreshold int `yaml:"marker_threshold"`

	// SuspectLength is the completion length (in bytes) beyond which the
	// instructional-vocabulary density check applies.
	// Default: 500
	SuspectLength int `yaml:"suspect_length"`

	// InstructionalVocabulary are words characteristic of operating
	// instructions rather than conversational replies.
	InstructionalVocabulary []string `yaml:"instructional_vocabulary"`

	// VocabularyDensity is the instructional hits per 100 words at which a
	// long completion is treated as leaked instructions.
	// Default: 3.0
	VocabularyDensity float64 `yaml:"vocabulary_density"`

	// SafeFallback is the fixed string substituted for the entire output on
	// any trip. Partial redaction is never attempted.
	SafeFallback string `yaml:"safe_fallback"`
}

// MonitorConfig contains performance monitoring settings.
type MonitorConfig struct {
	// HourlyBuckets is how many hourly buckets of history are kept.
	// Default: 24
	HourlyBuckets int `yaml:"hourly_buckets"`

	// DailyBuckets is how many daily buckets of history are kept.
	// Default: 30
	DailyBuckets int `yaml:"daily_buckets"`

	// RollupSchedule is the cron expression for folding the current hour
	// into history. Default: "0 * * * *" (top of every hour).
	RollupSchedule string `yaml:"rollup_schedule"`

	// TargetCostPerTurn is the cost target a single turn is judged against.
	// Default: 0.040
	TargetCostPerTurn float64 `yaml:"target_cost_per_turn"`

	// TargetLatency is the latency target a single turn is judged against.
	// Default: 2s
	TargetLatency time.Duration `yaml:"target_latency"`

	// CostSpikeMultiplier flags a single request costing more than this
	// multiple of the target.
	// Default: 2.0
	CostSpikeMultiplier float64 `yaml:"cost_spike_multiplier"`

	// LatencySpikeMultiplier flags a single request slower than this
	// multiple of the target.
	// Default: 1.5
	LatencySpikeMultiplier float64 `yaml:"latency_spike_multiplier"`

	// SuccessRateFloor raises an alert when the rolling success rate drops
	// below this fraction.
	// Default: 0.85
	SuccessRateFloor float64 `yaml:"success_rate_floor"`

	// BaselineCostPerTurn is the single-premium-model cost used to compute
	// savings in report snapshots.
	// Default: 0.075
	BaselineCostPerTurn float64 `yaml:"baseline_cost_per_turn"`

	// MaxAlerts bounds the retained alert list.
	// Default: 100
	MaxAlerts int `yaml:"max_alerts"`

	// StorePath is the SQLite file used to persist metric samples across
	// restarts. Empty disables persistence.
	StorePath string `yaml:"store_path"`
}

// SessionsConfig contains session store settings.
type SessionsConfig struct {
	// Backend selects the store implementation: "memory" or "redis".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// TTL is the session inactivity window; sessions expire after this
	// duration without a turn.
	// Default: 30m
	TTL time.Duration `yaml:"ttl"`

	// HistoryLimit is the maximum number of messages retained per session
	// (oldest dropped first).
	// Default: 10
	HistoryLimit int `yaml:"history_limit"`

	// Redis contains connection settings for the redis backend.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains redis connection settings for the session store.
type RedisConfig struct {
	// Addr is the redis server address ("host:port").
	// Default: "127.0.0.1:6379"
	Addr string `yaml:"addr"`

	// Password authenticates to redis. Empty for no auth.
	Password string `yaml:"password"`

	// DB is the redis database number.
	// Default: 0
	DB int `yaml:"db"`

	// KeyPrefix namespaces session keys.
	// Default: "orbit:session:"
	KeyPrefix string `yaml:"key_prefix"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the slog-based logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures prometheus metrics export.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Namespace is the prometheus metric namespace.
	// Default: "orbit"
	Namespace string `yaml:"namespace"`

	// Subsystem is the prometheus metric subsystem.
	// Default: "core"
	Subsystem string `yaml:"subsystem"`

	// Path is where the metrics handler is mounted.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
