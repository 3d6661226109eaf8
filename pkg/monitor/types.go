package monitor

import (
	"time"
)

// Bucket accumulates turn outcomes over one aggregation window.
type Bucket struct {
	// Start is the beginning of the window the bucket covers.
	Start time.Time `json:"start"`

	// Requests is the number of recorded attempts.
	Requests int `json:"requests"`

	// Successes and Failures partition Requests.
	Successes int `json:"successes"`
	Failures  int `json:"failures"`

	// Cost is the summed dollar cost.
	Cost float64 `json:"cost"`

	// LatencySum is the summed attempt latency.
	LatencySum time.Duration `json:"latency_sum"`
}

// add merges one attempt into the bucket.
func (b *Bucket) add(latency time.Duration, cost float64, success bool) {
	b.Requests++
	if success {
		b.Successes++
	} else {
		b.Failures++
	}
	b.Cost += cost
	b.LatencySum += latency
}

// merge folds other into b.
func (b *Bucket) merge(other Bucket) {
	b.Requests += other.Requests
	b.Successes += other.Successes
	b.Failures += other.Failures
	b.Cost += other.Cost
	b.LatencySum += other.LatencySum
}

// SuccessRate returns the fraction of successful requests, 0..1.
func (b Bucket) SuccessRate() float64 {
	if b.Requests == 0 {
		return 0
	}
	return float64(b.Successes) / float64(b.Requests)
}

// AvgLatency returns the mean latency per request.
func (b Bucket) AvgLatency() time.Duration {
	if b.Requests == 0 {
		return 0
	}
	return b.LatencySum / time.Duration(b.Requests)
}

// AvgCost returns the mean cost per request.
func (b Bucket) AvgCost() float64 {
	if b.Requests == 0 {
		return 0
	}
	return b.Cost / float64(b.Requests)
}

// Trend is a direction computed from recent buckets.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"

	// TrendUnknown is reported when fewer than three buckets exist.
	TrendUnknown Trend = "unknown"
)

// trendThreshold is the relative change below which a trend reads stable.
const trendThreshold = 0.05

// computeTrend compares the newest of the last three values against the
// mean of the two before it. lowerIsBetter inverts the reading for metrics
// like cost and latency where a drop is an improvement.
func computeTrend(values []float64, lowerIsBetter bool) Trend {
	if len(values) < 3 {
		return TrendUnknown
	}

	recent := values[len(values)-1]
	baseline := (values[len(values)-2] + values[len(values)-3]) / 2
	if baseline == 0 {
		return TrendStable
	}

	change := (recent - baseline) / baseline
	switch {
	case change > trendThreshold:
		if lowerIsBetter {
			return TrendDeclining
		}
		return TrendImproving
	case change < -trendThreshold:
		if lowerIsBetter {
			return TrendImproving
		}
		return TrendDeclining
	default:
		return TrendStable
	}
}

// Alert is a raised observability event. Alerts are informational; the
// monitor never mutates routing state.
type Alert struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	Backend  string    `json:"backend,omitempty"`
	Message  string    `json:"message"`
	Severity string    `json:"severity"`
}

// Alert kinds.
const (
	AlertCostSpike       = "cost_spike"
	AlertLatencySpike    = "latency_spike"
	AlertSuccessRateLow  = "success_rate_low"
	AlertBreakerOpen     = "breaker_open"
	AlertSanitizerLeak   = "sanitizer_leak"
	AlertBudgetExhausted = "budget_exhausted"
	AlertTargetsMissed   = "targets_missed"
)

// TargetReport flags the configured performance targets as met or missed
// for one bucket. The success rate flag stays true below the minimum
// sample size.
type TargetReport struct {
	CostPerTurn bool `json:"cost_per_turn"`
	Latency     bool `json:"latency"`
	SuccessRate bool `json:"success_rate"`
	AllMet      bool `json:"all_met"`
}

// Snapshot is the report surface: current counters, history, trends, and
// advisory outputs.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`

	// CurrentHour is the in-progress overall bucket.
	CurrentHour Bucket `json:"current_hour"`

	// PerBackend holds the in-progress bucket per backend.
	PerBackend map[string]Bucket `json:"per_backend"`

	// Hourly and Daily are the folded historical series, oldest first.
	Hourly []Bucket `json:"hourly"`
	Daily  []Bucket `json:"daily"`

	// CostTrend and LatencyTrend compare the last three hourly buckets.
	CostTrend    Trend `json:"cost_trend"`
	LatencyTrend Trend `json:"latency_trend"`

	// Targets judges the current hour against the configured targets.
	Targets TargetReport `json:"targets"`

	// CacheHits and CacheMisses count cache consultations since start.
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`

	// Alerts are the most recent raised alerts, oldest first.
	Alerts []Alert `json:"alerts"`

	// Recommendations are advisory tuning hints.
	Recommendations []string `json:"recommendations"`
}
