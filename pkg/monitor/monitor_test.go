package monitor

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"conversa-hq/orbit/pkg/config"
)

func testMonitorConfig() config.MonitorConfig {
	return config.MonitorConfig{
		HourlyBuckets:          24,
		DailyBuckets:           30,
		RollupSchedule:         "0 * * * *",
		TargetCostPerTurn:      0.040,
		TargetLatency:          2 * time.Second,
		CostSpikeMultiplier:    2.0,
		LatencySpikeMultiplier: 1.5,
		SuccessRateFloor:       0.85,
		BaselineCostPerTurn:    0.075,
		MaxAlerts:              100,
	}
}

func newTestMonitor(t *testing.T, cfg config.MonitorConfig) *Monitor {
	t.Helper()
	m, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return m
}

func hasAlert(alerts []Alert, kind string) bool {
	for _, a := range alerts {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// ====== Bucket Math ======

func TestBucket_AddAndRates(t *testing.T) {
	var b Bucket
	b.add(100*time.Millisecond, 0.01, true)
	b.add(300*time.Millisecond, 0.03, true)
	b.add(200*time.Millisecond, 0, false)

	if b.Requests != 3 || b.Successes != 2 || b.Failures != 1 {
		t.Errorf("unexpected counts: %+v", b)
	}
	if want := 2.0 / 3.0; b.SuccessRate() < want-0.001 || b.SuccessRate() > want+0.001 {
		t.Errorf("SuccessRate = %v, want ~%v", b.SuccessRate(), want)
	}
	if b.AvgLatency() != 200*time.Millisecond {
		t.Errorf("AvgLatency = %v, want 200ms", b.AvgLatency())
	}
	if want := 0.04 / 3; b.AvgCost() < want-1e-9 || b.AvgCost() > want+1e-9 {
		t.Errorf("AvgCost = %v, want %v", b.AvgCost(), want)
	}
}

func TestBucket_EmptyRates(t *testing.T) {
	var b Bucket
	if b.SuccessRate() != 0 || b.AvgLatency() != 0 || b.AvgCost() != 0 {
		t.Error("empty bucket rates must be zero")
	}
}

func TestBucket_Merge(t *testing.T) {
	a := Bucket{Requests: 2, Successes: 2, Cost: 0.02, LatencySum: time.Second}
	b := Bucket{Requests: 3, Successes: 1, Failures: 2, Cost: 0.01, LatencySum: 2 * time.Second}

	a.merge(b)
	if a.Requests != 5 || a.Successes != 3 || a.Failures != 2 {
		t.Errorf("unexpected merged counts: %+v", a)
	}
	if a.LatencySum != 3*time.Second {
		t.Errorf("LatencySum = %v, want 3s", a.LatencySum)
	}
}

// ====== Trends ======

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name          string
		values        []float64
		lowerIsBetter bool
		want          Trend
	}{
		{"too few buckets", []float64{1, 2}, true, TrendUnknown},
		{"cost dropping", []float64{0.04, 0.04, 0.02}, true, TrendImproving},
		{"cost rising", []float64{0.02, 0.02, 0.04}, true, TrendDeclining},
		{"within threshold", []float64{0.040, 0.040, 0.041}, true, TrendStable},
		{"just under threshold", []float64{1.0, 1.0, 1.04}, true, TrendStable},
		{"just past threshold", []float64{1.0, 1.0, 1.06}, true, TrendDeclining},
		{"zero baseline", []float64{0, 0, 5}, true, TrendStable},
		{"higher is better rising", []float64{0.5, 0.5, 0.9}, false, TrendImproving},
		{"only last three considered", []float64{99, 0.02, 0.02, 0.04}, true, TrendDeclining},
	}

	for _, tt := range tests {
		if got := computeTrend(tt.values, tt.lowerIsBetter); got != tt.want {
			t.Errorf("%s: computeTrend(%v) = %v, want %v", tt.name, tt.values, got, tt.want)
		}
	}
}

// ====== Recording and Alerts ======

func TestRecord_FoldsIntoCurrentHour(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.Record("chat-mini", 200*time.Millisecond, 0.002, true)
	m.Record("chat-mini", 400*time.Millisecond, 0.004, true)
	m.Record("docs-lite", 100*time.Millisecond, 0.001, false)

	snap := m.Report()
	if snap.CurrentHour.Requests != 3 {
		t.Errorf("expected 3 requests, got %d", snap.CurrentHour.Requests)
	}
	if snap.PerBackend["chat-mini"].Requests != 2 {
		t.Errorf("expected 2 chat-mini requests, got %d", snap.PerBackend["chat-mini"].Requests)
	}
	if snap.PerBackend["docs-lite"].Failures != 1 {
		t.Error("docs-lite failure not recorded")
	}
}

func TestRecord_CostSpikeAlert(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	// 2x the 0.040 target is the boundary; just above it fires.
	m.Record("chat-mini", 100*time.Millisecond, 0.081, true)

	if !hasAlert(m.Report().Alerts, AlertCostSpike) {
		t.Error("expected cost spike alert")
	}
}

func TestRecord_NoCostSpikeAtBoundary(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.Record("chat-mini", 100*time.Millisecond, 0.080, true)

	if hasAlert(m.Report().Alerts, AlertCostSpike) {
		t.Error("cost exactly at the multiplier must not alert")
	}
}

func TestRecord_LatencySpikeAlert(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	// 1.5x the 2s target is 3s.
	m.Record("chat-mini", 3100*time.Millisecond, 0.001, true)

	if !hasAlert(m.Report().Alerts, AlertLatencySpike) {
		t.Error("expected latency spike alert")
	}
}

func TestRecord_SuccessRateAlertNeedsSample(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	// 10 straight failures: rate 0 but below the minimum sample.
	for i := 0; i < 10; i++ {
		m.Record("chat-mini", 100*time.Millisecond, 0.001, false)
	}
	if hasAlert(m.Report().Alerts, AlertSuccessRateLow) {
		t.Fatal("success rate alert fired below the minimum sample size")
	}

	for i := 0; i < 10; i++ {
		m.Record("chat-mini", 100*time.Millisecond, 0.001, false)
	}
	if !hasAlert(m.Report().Alerts, AlertSuccessRateLow) {
		t.Error("expected success rate alert at 20 samples")
	}
}

func TestAlerts_CappedAtMax(t *testing.T) {
	cfg := testMonitorConfig()
	cfg.MaxAlerts = 5
	m := newTestMonitor(t, cfg)

	for i := 0; i < 20; i++ {
		m.RecordBreakerOpen("chat-mini")
	}

	if got := len(m.Report().Alerts); got != 5 {
		t.Errorf("expected alert list capped at 5, got %d", got)
	}
}

func TestRecordBreakerOpenAndSanitizerTrip(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.RecordBreakerOpen("haiku-fast")
	m.RecordSanitizerTrip("chat-mini")
	m.RecordBudgetExhausted("hourly")

	alerts := m.Report().Alerts
	for _, kind := range []string{AlertBreakerOpen, AlertSanitizerLeak, AlertBudgetExhausted} {
		if !hasAlert(alerts, kind) {
			t.Errorf("missing %s alert", kind)
		}
	}
}

// ====== Rollup ======

func TestOnInterval_FoldsHourIntoHistory(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.Record("chat-mini", 200*time.Millisecond, 0.002, true)
	m.OnInterval()

	snap := m.Report()
	if len(snap.Hourly) != 1 {
		t.Fatalf("expected 1 hourly bucket, got %d", len(snap.Hourly))
	}
	if snap.Hourly[0].Requests != 1 {
		t.Errorf("folded bucket lost its counts: %+v", snap.Hourly[0])
	}
	if snap.CurrentHour.Requests != 0 {
		t.Error("current hour not reset after fold")
	}
	if len(snap.PerBackend) != 0 {
		t.Error("per-backend buckets not reset after fold")
	}
}

func TestOnInterval_EmptyHourNotFolded(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.OnInterval()
	if got := len(m.Report().Hourly); got != 0 {
		t.Errorf("empty hour should not produce a bucket, got %d", got)
	}
}

func TestOnInterval_HourlySeriesBounded(t *testing.T) {
	cfg := testMonitorConfig()
	cfg.HourlyBuckets = 3
	m := newTestMonitor(t, cfg)

	for i := 0; i < 5; i++ {
		m.Record("chat-mini", time.Millisecond, 0.001, true)
		m.OnInterval()
	}

	if got := len(m.Report().Hourly); got != 3 {
		t.Errorf("expected hourly series capped at 3, got %d", got)
	}
}

// ====== Targets ======

func TestReport_TargetsMetOnGoodHour(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.Record("docs-lite", 500*time.Millisecond, 0.002, true)

	targets := m.Report().Targets
	if !targets.CostPerTurn || !targets.Latency || !targets.SuccessRate {
		t.Errorf("all targets should read met: %+v", targets)
	}
	if !targets.AllMet {
		t.Error("AllMet should be set when every target is met")
	}
}

func TestReport_TargetsMissedCostAndLatency(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	// Average cost 0.06 against a 0.04 target, latency 2.5s against 2s.
	m.Record("haiku-fast", 2500*time.Millisecond, 0.06, true)

	targets := m.Report().Targets
	if targets.CostPerTurn {
		t.Error("cost target should read missed")
	}
	if targets.Latency {
		t.Error("latency target should read missed")
	}
	if !targets.SuccessRate {
		t.Error("success rate target should still read met")
	}
	if targets.AllMet {
		t.Error("AllMet must be false with any target missed")
	}
}

func TestReport_SuccessRateTargetNeedsSample(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	for i := 0; i < 5; i++ {
		m.Record("chat-mini", 100*time.Millisecond, 0, false)
	}
	if targets := m.Report().Targets; !targets.SuccessRate {
		t.Error("below the sample floor the success rate target must not read missed")
	}

	for i := 0; i < 15; i++ {
		m.Record("chat-mini", 100*time.Millisecond, 0, false)
	}
	if targets := m.Report().Targets; targets.SuccessRate {
		t.Error("a sampled failing hour must read the success rate target missed")
	}
}

func TestReport_EmptyHourMissesNothing(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	if targets := m.Report().Targets; !targets.AllMet {
		t.Errorf("an empty hour has missed nothing: %+v", targets)
	}
}

func TestOnInterval_RaisesTargetsMissedAlert(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.Record("haiku-fast", 100*time.Millisecond, 0.06, true)
	m.OnInterval()

	snap := m.Report()
	if !hasAlert(snap.Alerts, AlertTargetsMissed) {
		t.Error("closing an hour over the cost target must raise the alert")
	}
	for _, a := range snap.Alerts {
		if a.Kind == AlertTargetsMissed && !strings.Contains(a.Message, "cost") {
			t.Errorf("alert should name the missed target, got %q", a.Message)
		}
	}
}

func TestOnInterval_NoTargetsAlertOnGoodHour(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.Record("docs-lite", 300*time.Millisecond, 0.002, true)
	m.OnInterval()

	if hasAlert(m.Report().Alerts, AlertTargetsMissed) {
		t.Error("an hour within targets must not raise the alert")
	}
}

// ====== Recommendations ======

func TestRecommendations_AboveTargetCost(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.Record("chat-mini", 100*time.Millisecond, 0.090, true)
	m.Record("docs-lite", 100*time.Millisecond, 0.010, true)

	recs := m.Report().Recommendations
	found := false
	for _, r := range recs {
		if strings.Contains(r, "docs-lite") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a cheapest-backend recommendation naming docs-lite, got %v", recs)
	}
}

func TestRecommendations_BelowBaselineSavings(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	m.Record("docs-lite", 100*time.Millisecond, 0.015, true)

	recs := m.Report().Recommendations
	found := false
	for _, r := range recs {
		if strings.Contains(r, "baseline") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a savings note against the baseline, got %v", recs)
	}
}

func TestRecommendations_LowCacheHitRate(t *testing.T) {
	m := newTestMonitor(t, testMonitorConfig())

	for i := 0; i < 5; i++ {
		m.RecordCache(true)
	}
	for i := 0; i < 45; i++ {
		m.RecordCache(false)
	}

	recs := m.Report().Recommendations
	found := false
	for _, r := range recs {
		if strings.Contains(r, "cache hit rate") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a cache hit rate recommendation, got %v", recs)
	}

	snap := m.Report()
	if snap.CacheHits != 5 || snap.CacheMisses != 45 {
		t.Errorf("cache counters wrong: %d/%d", snap.CacheHits, snap.CacheMisses)
	}
}

// ====== Persistence ======

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.db")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		b := Bucket{
			Start:      base.Add(time.Duration(i) * time.Hour),
			Requests:   10 + i,
			Successes:  9 + i,
			Failures:   1,
			Cost:       0.05,
			LatencySum: 2 * time.Second,
		}
		if err := store.SaveBucket(ctx, "hourly", b); err != nil {
			t.Fatalf("SaveBucket failed: %v", err)
		}
	}

	got, err := store.LoadRecent(ctx, "hourly", 10)
	if err != nil {
		t.Fatalf("LoadRecent failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(got))
	}
	// Oldest first.
	if !got[0].Start.Equal(base) || got[0].Requests != 10 {
		t.Errorf("unexpected first bucket: %+v", got[0])
	}
	if got[2].Requests != 12 {
		t.Errorf("unexpected last bucket: %+v", got[2])
	}
	if got[0].LatencySum != 2*time.Second {
		t.Errorf("latency not preserved: %v", got[0].LatencySum)
	}
}

func TestStore_SaveBucketUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.db")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	start := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	if err := store.SaveBucket(ctx, "daily", Bucket{Start: start, Requests: 1}); err != nil {
		t.Fatalf("SaveBucket failed: %v", err)
	}
	if err := store.SaveBucket(ctx, "daily", Bucket{Start: start, Requests: 7}); err != nil {
		t.Fatalf("SaveBucket failed: %v", err)
	}

	got, err := store.LoadRecent(ctx, "daily", 10)
	if err != nil {
		t.Fatalf("LoadRecent failed: %v", err)
	}
	if len(got) != 1 || got[0].Requests != 7 {
		t.Errorf("expected single upserted bucket with 7 requests, got %v", got)
	}
}

func TestStore_Prune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.db")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		b := Bucket{Start: base.Add(time.Duration(i) * time.Hour), Requests: 1}
		if err := store.SaveBucket(ctx, "hourly", b); err != nil {
			t.Fatalf("SaveBucket failed: %v", err)
		}
	}

	if err := store.Prune(ctx, "hourly", 2); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	got, err := store.LoadRecent(ctx, "hourly", 10)
	if err != nil {
		t.Fatalf("LoadRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 buckets after prune, got %d", len(got))
	}
	if !got[1].Start.Equal(base.Add(5 * time.Hour)) {
		t.Errorf("newest bucket should survive prune, got %v", got[1].Start)
	}
}

func TestMonitor_RehydratesHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.db")

	cfg := testMonitorConfig()
	cfg.StorePath = path

	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	first.Record("chat-mini", 100*time.Millisecond, 0.002, true)
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer second.Close()

	if got := len(second.Report().Hourly); got != 1 {
		t.Errorf("expected 1 rehydrated hourly bucket, got %d", got)
	}
}
