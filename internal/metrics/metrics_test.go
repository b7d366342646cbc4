package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alvmarrod/sitecrawler/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCounters(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.PageRecorded()
			tracker.PageFetched()
			tracker.LinkDiscovered()
		}()
	}
	wg.Wait()

	tracker.PageRedundant()
	tracker.PageFailed()
	tracker.PageSkipped()
	tracker.RetryAttempted()
	tracker.FetchTime(100 * time.Millisecond)
	tracker.FetchTime(300 * time.Millisecond)

	snapshot := tracker.GetSnapshot()
	assert.Equal(t, 10, snapshot.PagesRecorded)
	assert.Equal(t, 10, snapshot.PagesFetched)
	assert.Equal(t, 10, snapshot.LinksDiscovered)
	assert.Equal(t, 1, snapshot.PagesRedundant)
	assert.Equal(t, 1, snapshot.PagesFailed)
	assert.Equal(t, 1, snapshot.PagesSkipped)
	assert.Equal(t, 1, snapshot.RetriesAttempted)
	assert.Equal(t, int64(400), snapshot.TotalFetchTimeMs)
	assert.Equal(t, int64(200), snapshot.AvgFetchTimeMs)

	assert.Equal(t,
		"Pages: 10 recorded, 1 redundant | Fetches: 10 ok, 1 failed, 1 skipped, 1 retries | Links: 10",
		tracker.LogProgress())

	tracker.Reset()
	assert.Zero(t, tracker.GetSnapshot().PagesRecorded)
}

func TestTrackerWriteToFile(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	tracker.PageRecorded()
	tracker.FetchTime(50 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, tracker.WriteToFile(path, "completed"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got storage.Metrics
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 1, got.PagesRecorded)
	assert.Equal(t, int64(50), got.AvgFetchTimeMs)
	assert.Equal(t, "completed", got.TerminationReason)
	assert.False(t, got.EndTime.Before(got.StartTime))

	assert.Error(t, tracker.WriteToFile(filepath.Join(t.TempDir(), "missing", "metrics.json"), "completed"))
}
