package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alvmarrod/sitecrawler/internal/storage"
	"github.com/sirupsen/logrus"
)

// Uploader persists page records, reporting how many were new
type Uploader interface {
	UploadPages(ctx context.Context, records []storage.PageRecord, progress func(done, total int)) (storage.UploadResult, error)
}

// VisitedSet holds every page recorded during a crawl run, keyed by
// normalized URL. It is both the result set and the dedup ledger.
type VisitedSet struct {
	pages map[string]string // url -> title
	mu    sync.RWMutex
}

// NewVisitedSet creates an empty visited set
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{
		pages: make(map[string]string),
	}
}

// TryInsert records url with title unless it is already present.
// Returns true only for the call that performed the insertion.
func (vs *VisitedSet) TryInsert(url, title string) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, exists := vs.pages[url]; exists {
		return false
	}

	vs.pages[url] = title
	return true
}

// Contains reports whether url has been recorded
func (vs *VisitedSet) Contains(url string) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	_, exists := vs.pages[url]
	return exists
}

// Size returns the number of recorded pages
func (vs *VisitedSet) Size() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	return len(vs.pages)
}

// Clear removes every recorded page
func (vs *VisitedSet) Clear() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.pages = make(map[string]string)
}

// Snapshot returns a copy of the recorded pages sorted by URL
func (vs *VisitedSet) Snapshot() []storage.PageRecord {
	vs.mu.RLock()
	records := make([]storage.PageRecord, 0, len(vs.pages))
	for url, title := range vs.pages {
		records = append(records, storage.PageRecord{URL: url, Title: title})
	}
	vs.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].URL < records[j].URL
	})

	return records
}

// Flush uploads all recorded pages through the given uploader
func (vs *VisitedSet) Flush(ctx context.Context, up Uploader) (storage.UploadResult, error) {
	startTime := time.Now()
	records := vs.Snapshot()

	logrus.Infof("Starting flush of %d pages to database...", len(records))

	result, err := up.UploadPages(ctx, records, storage.UploadProgressLogger())
	if err != nil {
		return result, fmt.Errorf("failed to flush visited set: %w", err)
	}

	logrus.Infof("Flush complete: %d added, %d redundant in %v", result.Added, result.Redundant, time.Since(startTime))
	return result, nil
}
