package governor

import (
	"sync"
	"time"
)

// RollingWindow tracks amounts over a rolling time period using fixed
// granularity buckets. Old buckets outside the window are pruned on every
// operation, which avoids the reset spike of fixed windows.
type RollingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []windowBucket
	mu         sync.Mutex
}

type windowBucket struct {
	timestamp time.Time
	value     float64
}

// NewRollingWindow creates a rolling window.
//
// Parameters:
//   - window: total window duration (e.g., 1 minute, 1 hour)
//   - bucketSize: granularity of each bucket (e.g., 1 second, 1 minute)
//
// The number of buckets is window/bucketSize; smaller buckets give more
// accuracy at the cost of memory.
func NewRollingWindow(window, bucketSize time.Duration) *RollingWindow {
	numBuckets := int(window / bucketSize)
	if numBuckets == 0 {
		numBuckets = 1
	}
	return &RollingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]windowBucket, numBuckets),
	}
}

// Add records an amount in the current time bucket.
func (w *RollingWindow) Add(value float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.pruneLocked(now)

	bucketTime := now.Truncate(w.bucketSize)
	for i := range w.buckets {
		if w.buckets[i].timestamp.Equal(bucketTime) {
			w.buckets[i].value += value
			return
		}
	}

	// No bucket for this instant yet: take an empty slot, else the oldest.
	target := -1
	for i := range w.buckets {
		if w.buckets[i].timestamp.IsZero() {
			target = i
			break
		}
	}
	if target == -1 {
		oldest := 0
		for i := 1; i < len(w.buckets); i++ {
			if w.buckets[i].timestamp.Before(w.buckets[oldest].timestamp) {
				oldest = i
			}
		}
		target = oldest
	}
	w.buckets[target] = windowBucket{timestamp: bucketTime, value: value}
}

// Sum returns the total amount across all live buckets.
func (w *RollingWindow) Sum() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(time.Now())

	var sum float64
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() {
			sum += w.buckets[i].value
		}
	}
	return sum
}

// Reset clears all buckets.
func (w *RollingWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.buckets {
		w.buckets[i] = windowBucket{}
	}
}

// pruneLocked clears buckets older than the window. Caller holds the lock.
func (w *RollingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.window)
	for i := range w.buckets {
		if !w.buckets[i].timestamp.IsZero() && w.buckets[i].timestamp.Before(cutoff) {
			w.buckets[i] = windowBucket{}
		}
	}
}
