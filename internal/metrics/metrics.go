package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alvmarrod/sitecrawler/internal/storage"
)

// Tracker holds and manages crawl metrics
type Tracker struct {
	mu               sync.Mutex
	data             storage.Metrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.Metrics{
			StartTime: time.Now(),
		},
	}
}

// PageRecorded increments the recorded pages counter
func (t *Tracker) PageRecorded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesRecorded++
}

// PageRedundant increments the redundant pages counter
func (t *Tracker) PageRedundant() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesRedundant++
}

// PageFetched increments the successful fetch counter
func (t *Tracker) PageFetched() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFetched++
}

// PageFailed increments the failed fetch counter
func (t *Tracker) PageFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesFailed++
}

// PageSkipped increments the non-HTML counter
func (t *Tracker) PageSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.PagesSkipped++
}

// RetryAttempted increments the fallback attempt counter
func (t *Tracker) RetryAttempted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.RetriesAttempted++
}

// LinkDiscovered increments the discovered links counter
func (t *Tracker) LinkDiscovered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.LinksDiscovered++
}

// FetchTime records a page fetch duration
func (t *Tracker) FetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// Reset clears all counters and restarts the clock
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data = storage.Metrics{StartTime: time.Now()}
	t.totalFetchTimeMs = 0
	t.fetchCount = 0
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs

	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize metrics
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.data.TotalFetchTimeMs = t.totalFetchTimeMs

	if t.fetchCount > 0 {
		t.data.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats the counters for periodic console updates
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Pages: %d recorded, %d redundant | Fetches: %d ok, %d failed, %d skipped, %d retries | Links: %d",
		t.data.PagesRecorded,
		t.data.PagesRedundant,
		t.data.PagesFetched,
		t.data.PagesFailed,
		t.data.PagesSkipped,
		t.data.RetriesAttempted,
		t.data.LinksDiscovered,
	)
}
