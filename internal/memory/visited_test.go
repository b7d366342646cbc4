package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alvmarrod/sitecrawler/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	records  []storage.PageRecord
	progress []int
	err      error
}

func (f *fakeUploader) UploadPages(_ context.Context, records []storage.PageRecord, progress func(done, total int)) (storage.UploadResult, error) {
	if f.err != nil {
		return storage.UploadResult{}, f.err
	}
	f.records = records
	for i := range records {
		f.progress = append(f.progress, i+1)
		progress(i+1, len(records))
	}
	return storage.UploadResult{Added: len(records)}, nil
}

func TestVisitedSetTryInsert(t *testing.T) {
	t.Parallel()

	vs := NewVisitedSet()
	assert.True(t, vs.TryInsert("http://a.com/", "A"))
	assert.False(t, vs.TryInsert("http://a.com/", "Other"))
	assert.True(t, vs.TryInsert("http://a.com/b", ""))

	assert.Equal(t, 2, vs.Size())
	assert.True(t, vs.Contains("http://a.com/b"))
	assert.False(t, vs.Contains("http://a.com/c"))

	assert.Equal(t, []storage.PageRecord{
		{URL: "http://a.com/", Title: "A"},
		{URL: "http://a.com/b", Title: ""},
	}, vs.Snapshot())
}

func TestVisitedSetConcurrentInsert(t *testing.T) {
	t.Parallel()

	vs := NewVisitedSet()
	const goroutines = 16
	const urls = 50

	var wins atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < urls; i++ {
				if vs.TryInsert(fmt.Sprintf("http://a.com/%d", i), "t") {
					wins.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(urls), wins.Load())
	assert.Equal(t, urls, vs.Size())
}

func TestVisitedSetSnapshotAndClear(t *testing.T) {
	t.Parallel()

	vs := NewVisitedSet()
	vs.TryInsert("http://c.com/", "C")
	vs.TryInsert("http://a.com/", "A")
	vs.TryInsert("http://b.com/", "B")

	assert.Equal(t, []storage.PageRecord{
		{URL: "http://a.com/", Title: "A"},
		{URL: "http://b.com/", Title: "B"},
		{URL: "http://c.com/", Title: "C"},
	}, vs.Snapshot())

	copied := vs.Snapshot()
	copied[0].Title = "changed"
	assert.Equal(t, "A", vs.Snapshot()[0].Title)

	vs.Clear()
	assert.Zero(t, vs.Size())
	assert.Empty(t, vs.Snapshot())
	assert.True(t, vs.TryInsert("http://a.com/", "A"))
}

func TestVisitedSetFlush(t *testing.T) {
	t.Parallel()

	t.Run("uploads sorted snapshot", func(t *testing.T) {
		t.Parallel()

		vs := NewVisitedSet()
		vs.TryInsert("http://b.com/", "B")
		vs.TryInsert("http://a.com/", "A")

		up := &fakeUploader{}
		result, err := vs.Flush(context.Background(), up)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Added)
		assert.Equal(t, "http://a.com/", up.records[0].URL)
		assert.Equal(t, []int{1, 2}, up.progress)
	})

	t.Run("wraps uploader error", func(t *testing.T) {
		t.Parallel()

		vs := NewVisitedSet()
		vs.TryInsert("http://a.com/", "A")

		boom := errors.New("disk full")
		_, err := vs.Flush(context.Background(), &fakeUploader{err: boom})
		assert.ErrorIs(t, err, boom)
	})
}
