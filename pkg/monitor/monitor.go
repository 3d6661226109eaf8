// Package monitor aggregates per-backend and overall turn metrics into
// rolling windows, raises alerts, and emits advisory tuning
// recommendations. Data flows one way, from execution into the monitor; it
// never mutates routing state.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"conversa-hq/orbit/pkg/config"
)

// minSuccessRateSample is the request count below which the rolling success
// rate alert stays quiet, to avoid firing on the first failure of the hour.
const minSuccessRateSample = 20

// Monitor accumulates current-hour counters and folds them into bounded
// hourly and daily series on each rollup tick.
type Monitor struct {
	cfg     config.MonitorConfig
	metrics *Metrics
	store   *Store
	logger  *slog.Logger

	mu         sync.Mutex
	hourStart  time.Time
	overall    Bucket
	perBackend map[string]*Bucket
	currentDay Bucket
	hourly     []Bucket
	daily      []Bucket
	alerts     []Alert

	cacheHits   int64
	cacheMisses int64

	cron   *cron.Cron
	cronID cron.EntryID
}

// New creates a monitor. When cfg.StorePath is set, folded buckets persist
// to SQLite and prior history is rehydrated at startup.
func New(cfg config.MonitorConfig, metrics *Metrics) (*Monitor, error) {
	m := &Monitor{
		cfg:        cfg,
		metrics:    metrics,
		logger:     slog.Default().With("component", "monitor"),
		hourStart:  time.Now().Truncate(time.Hour),
		perBackend: make(map[string]*Bucket),
	}
	m.overall.Start = m.hourStart
	m.currentDay.Start = dayStart(m.hourStart)

	if cfg.StorePath != "" {
		store, err := OpenStore(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		m.store = store

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		hourly, err := store.LoadRecent(ctx, "hourly", cfg.HourlyBuckets)
		if err != nil {
			store.Close()
			return nil, err
		}
		daily, err := store.LoadRecent(ctx, "daily", cfg.DailyBuckets)
		if err != nil {
			store.Close()
			return nil, err
		}
		m.hourly = hourly
		m.daily = daily

		m.logger.Info("monitor history loaded",
			"path", cfg.StorePath,
			"hourly_buckets", len(hourly),
			"daily_buckets", len(daily),
		)
	}

	return m, nil
}

// Start schedules the rollup tick per the configured cron expression and
// blocks until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	c := cron.New()
	id, err := c.AddFunc(m.cfg.RollupSchedule, m.OnInterval)
	if err != nil {
		return fmt.Errorf("scheduling monitor rollup: %w", err)
	}

	m.mu.Lock()
	m.cron = c
	m.cronID = id
	m.mu.Unlock()

	c.Start()
	m.logger.Info("monitor rollup scheduled", "schedule", m.cfg.RollupSchedule)

	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

// Close flushes the in-progress hour and closes the store.
func (m *Monitor) Close() error {
	m.OnInterval()
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Record folds one resolved backend attempt into the current-hour counters
// and evaluates the per-request alert thresholds.
func (m *Monitor) Record(backend string, latency time.Duration, cost float64, success bool) {
	m.mu.Lock()

	m.overall.add(latency, cost, success)
	b, ok := m.perBackend[backend]
	if !ok {
		b = &Bucket{Start: m.hourStart}
		m.perBackend[backend] = b
	}
	b.add(latency, cost, success)

	overallRequests := m.overall.Requests
	overallRate := m.overall.SuccessRate()
	hourCost := m.overall.Cost
	dayCost := m.currentDay.Cost + m.overall.Cost
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.recordTurn(backend, latency.Seconds(), cost, success)
		m.metrics.spendHourly.Set(hourCost)
		m.metrics.spendDaily.Set(dayCost)
	}

	if cost > m.cfg.TargetCostPerTurn*m.cfg.CostSpikeMultiplier {
		m.raise(Alert{
			At:       time.Now(),
			Kind:     AlertCostSpike,
			Backend:  backend,
			Severity: "warning",
			Message:  fmt.Sprintf("attempt cost %.4f exceeded %.1fx target %.4f", cost, m.cfg.CostSpikeMultiplier, m.cfg.TargetCostPerTurn),
		})
	}

	if latency > time.Duration(float64(m.cfg.TargetLatency)*m.cfg.LatencySpikeMultiplier) {
		m.raise(Alert{
			At:       time.Now(),
			Kind:     AlertLatencySpike,
			Backend:  backend,
			Severity: "warning",
			Message:  fmt.Sprintf("attempt latency %s exceeded %.1fx target %s", latency, m.cfg.LatencySpikeMultiplier, m.cfg.TargetLatency),
		})
	}

	if overallRequests >= minSuccessRateSample && overallRate < m.cfg.SuccessRateFloor {
		m.raise(Alert{
			At:       time.Now(),
			Kind:     AlertSuccessRateLow,
			Severity: "critical",
			Message:  fmt.Sprintf("rolling success rate %.2f below floor %.2f", overallRate, m.cfg.SuccessRateFloor),
		})
	}
}

// RecordCache records a response cache lookup result.
func (m *Monitor) RecordCache(hit bool) {
	m.mu.Lock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.recordCache(hit)
	}
}

// RecordBreakerOpen raises the breaker-open alert for backend.
func (m *Monitor) RecordBreakerOpen(backend string) {
	if m.metrics != nil {
		m.metrics.recordBreakerOpen(backend)
	}
	m.raise(Alert{
		At:       time.Now(),
		Kind:     AlertBreakerOpen,
		Backend:  backend,
		Severity: "critical",
		Message:  fmt.Sprintf("circuit breaker opened for backend %s", backend),
	})
}

// RecordSanitizerTrip raises the leak alert. A trip is not a pipeline
// failure; it is logged for audit.
func (m *Monitor) RecordSanitizerTrip(backend string) {
	m.raise(Alert{
		At:       time.Now(),
		Kind:     AlertSanitizerLeak,
		Backend:  backend,
		Severity: "critical",
		Message:  "outbound text replaced by sanitizer",
	})
}

// RecordBudgetExhausted raises the global budget alert for scope ("hourly"
// or "daily").
func (m *Monitor) RecordBudgetExhausted(scope string) {
	m.raise(Alert{
		At:       time.Now(),
		Kind:     AlertBudgetExhausted,
		Severity: "critical",
		Message:  fmt.Sprintf("%s spend ceiling reached, admissions declined", scope),
	})
}

// OnInterval folds the current hour into the historical series and resets
// the current-hour counters. Called by the cron schedule and at shutdown.
func (m *Monitor) OnInterval() {
	now := time.Now()

	m.mu.Lock()
	folded := m.overall
	folded.Start = m.hourStart

	if folded.Requests > 0 {
		m.hourly = append(m.hourly, folded)
		if len(m.hourly) > m.cfg.HourlyBuckets {
			m.hourly = m.hourly[len(m.hourly)-m.cfg.HourlyBuckets:]
		}
	}

	// Day boundary: push the finished day before merging the new hour.
	day := dayStart(m.hourStart)
	var finishedDay *Bucket
	if !m.currentDay.Start.Equal(day) {
		if m.currentDay.Requests > 0 {
			done := m.currentDay
			finishedDay = &done
			m.daily = append(m.daily, done)
			if len(m.daily) > m.cfg.DailyBuckets {
				m.daily = m.daily[len(m.daily)-m.cfg.DailyBuckets:]
			}
		}
		m.currentDay = Bucket{Start: day}
	}
	m.currentDay.merge(folded)

	m.hourStart = now.Truncate(time.Hour)
	m.overall = Bucket{Start: m.hourStart}
	m.perBackend = make(map[string]*Bucket)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.spendHourly.Set(0)
	}

	if folded.Requests > 0 {
		if t := m.evaluateTargets(folded); !t.AllMet {
			var missed []string
			if !t.CostPerTurn {
				missed = append(missed, "cost")
			}
			if !t.Latency {
				missed = append(missed, "latency")
			}
			if !t.SuccessRate {
				missed = append(missed, "success rate")
			}
			m.raise(Alert{
				At:       now,
				Kind:     AlertTargetsMissed,
				Severity: "warning",
				Message:  fmt.Sprintf("hour closed with targets missed: %s", strings.Join(missed, ", ")),
			})
		}
	}

	if m.store != nil && folded.Requests > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.store.SaveBucket(ctx, "hourly", folded); err != nil {
			m.logger.Error("persisting hourly bucket failed", "error", err)
		}
		if finishedDay != nil {
			if err := m.store.SaveBucket(ctx, "daily", *finishedDay); err != nil {
				m.logger.Error("persisting daily bucket failed", "error", err)
			}
		}
		if err := m.store.Prune(ctx, "hourly", m.cfg.HourlyBuckets); err != nil {
			m.logger.Error("pruning hourly buckets failed", "error", err)
		}
		if err := m.store.Prune(ctx, "daily", m.cfg.DailyBuckets); err != nil {
			m.logger.Error("pruning daily buckets failed", "error", err)
		}
	}

	m.logger.Debug("hour folded",
		"requests", folded.Requests,
		"cost", folded.Cost,
		"success_rate", folded.SuccessRate(),
	)
}

// raise appends an alert, dropping the oldest past the cap.
func (m *Monitor) raise(alert Alert) {
	if m.metrics != nil {
		m.metrics.recordAlert(alert.Kind)
	}

	m.mu.Lock()
	m.alerts = append(m.alerts, alert)
	if len(m.alerts) > m.cfg.MaxAlerts {
		m.alerts = m.alerts[len(m.alerts)-m.cfg.MaxAlerts:]
	}
	m.mu.Unlock()

	m.logger.Warn("alert raised",
		"kind", alert.Kind,
		"backend", alert.Backend,
		"severity", alert.Severity,
		"message", alert.Message,
	)
}

// Report returns a point-in-time snapshot with trends and recommendations.
func (m *Monitor) Report() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		GeneratedAt: time.Now(),
		CurrentHour: m.overall,
		PerBackend:  make(map[string]Bucket, len(m.perBackend)),
		Hourly:      append([]Bucket(nil), m.hourly...),
		Daily:       append([]Bucket(nil), m.daily...),
		CacheHits:   m.cacheHits,
		CacheMisses: m.cacheMisses,
		Alerts:      append([]Alert(nil), m.alerts...),
	}
	for name, b := range m.perBackend {
		snap.PerBackend[name] = *b
	}

	costs := make([]float64, 0, len(m.hourly))
	latencies := make([]float64, 0, len(m.hourly))
	for _, b := range m.hourly {
		costs = append(costs, b.AvgCost())
		latencies = append(latencies, float64(b.AvgLatency()))
	}
	snap.CostTrend = computeTrend(costs, true)
	snap.LatencyTrend = computeTrend(latencies, true)

	snap.Targets = m.evaluateTargets(m.overall)
	snap.Recommendations = m.recommendationsLocked()
	return snap
}

// evaluateTargets judges one bucket against the configured targets. An
// empty bucket has missed nothing; the success rate flag needs the minimum
// sample before it can read missed.
func (m *Monitor) evaluateTargets(b Bucket) TargetReport {
	t := TargetReport{CostPerTurn: true, Latency: true, SuccessRate: true}
	if b.Requests > 0 {
		t.CostPerTurn = b.AvgCost() <= m.cfg.TargetCostPerTurn
		t.Latency = b.AvgLatency() <= m.cfg.TargetLatency
		if b.Requests >= minSuccessRateSample {
			t.SuccessRate = b.SuccessRate() >= m.cfg.SuccessRateFloor
		}
	}
	t.AllMet = t.CostPerTurn && t.Latency && t.SuccessRate
	return t
}

// recommendationsLocked derives advisory hints from current counters.
// Caller holds the lock.
func (m *Monitor) recommendationsLocked() []string {
	var recs []string

	if m.overall.Requests > 0 {
		avgCost := m.overall.AvgCost()

		if avgCost > m.cfg.TargetCostPerTurn {
			if cheap := m.cheapestBackendLocked(); cheap != "" {
				recs = append(recs, fmt.Sprintf(
					"average cost per turn %.4f is above target %.4f; shift more traffic to backend %s",
					avgCost, m.cfg.TargetCostPerTurn, cheap))
			} else {
				recs = append(recs, fmt.Sprintf(
					"average cost per turn %.4f is above target %.4f", avgCost, m.cfg.TargetCostPerTurn))
			}
		}

		if avgCost < m.cfg.BaselineCostPerTurn && avgCost > 0 {
			saving := (1 - avgCost/m.cfg.BaselineCostPerTurn) * 100
			recs = append(recs, fmt.Sprintf(
				"cost per turn %.4f is %.0f%% below the %.4f baseline", avgCost, saving, m.cfg.BaselineCostPerTurn))
		}

		if m.overall.Requests >= minSuccessRateSample && m.overall.SuccessRate() < m.cfg.SuccessRateFloor {
			recs = append(recs, fmt.Sprintf(
				"success rate %.2f is below the %.2f floor; review backend health",
				m.overall.SuccessRate(), m.cfg.SuccessRateFloor))
		}

		if m.overall.AvgLatency() > m.cfg.TargetLatency {
			recs = append(recs, fmt.Sprintf(
				"average latency %s is above target %s; consider tightening attempt deadlines",
				m.overall.AvgLatency(), m.cfg.TargetLatency))
		}
	}

	if lookups := m.cacheHits + m.cacheMisses; lookups >= 50 {
		hitRate := float64(m.cacheHits) / float64(lookups)
		if hitRate < 0.2 {
			recs = append(recs, fmt.Sprintf(
				"cache hit rate %.2f is low; review key normalization or TTL", hitRate))
		}
	}

	return recs
}

// cheapestBackendLocked returns the backend with the lowest average cost in
// the current hour, requiring some traffic on it. Caller holds the lock.
func (m *Monitor) cheapestBackendLocked() string {
	type entry struct {
		name string
		cost float64
	}
	var entries []entry
	for name, b := range m.perBackend {
		if b.Requests > 0 && b.AvgCost() > 0 {
			entries = append(entries, entry{name: name, cost: b.AvgCost()})
		}
	}
	if len(entries) < 2 {
		return ""
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].cost < entries[j].cost })
	return entries[0].name
}

// dayStart returns midnight of t's day in t's location.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
