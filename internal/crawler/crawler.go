package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NoDepthLimit disables depth limiting
const NoDepthLimit = -1

// MaxWorkers is the largest accepted worker count
const MaxWorkers = 100

// Reason explains why a run ended
type Reason string

const (
	ReasonCompleted Reason = "completed"
	ReasonStopped   Reason = "stopped"
	ReasonTimeLimit Reason = "time_limit"
)

// State is the run state shown to the front-end
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// VisitedSet is the dedup ledger shared by all workers. TryInsert must check
// and insert atomically.
type VisitedSet interface {
	TryInsert(url, title string) bool
	Contains(url string) bool
	Size() int
	Clear()
}

// Recorder receives crawl events for metrics
type Recorder interface {
	PageRecorded()
	PageRedundant()
	PageFetched()
	PageFailed()
	PageSkipped()
	RetryAttempted()
	LinkDiscovered()
	FetchTime(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) PageRecorded()           {}
func (nopRecorder) PageRedundant()          {}
func (nopRecorder) PageFetched()            {}
func (nopRecorder) PageFailed()             {}
func (nopRecorder) PageSkipped()            {}
func (nopRecorder) RetryAttempted()         {}
func (nopRecorder) LinkDiscovered()         {}
func (nopRecorder) FetchTime(time.Duration) {}

// Progress is a live snapshot of a run
type Progress struct {
	State       State
	Elapsed     time.Duration
	PagesParsed int
	QueueSize   int
	InFlight    int
}

// Result summarizes a finished run
type Result struct {
	Pages   int
	Elapsed time.Duration
	Reason  Reason
}

// Option configures a Crawler
type Option func(*Crawler)

// WithWorkers sets the number of concurrent workers
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		c.workers = n
	}
}

// WithMaxDepth sets the deepest level whose links are followed.
// Pages one level further are fetched only to record their titles.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		c.maxDepth = depth
	}
}

// WithTimeLimit stops the crawl after d. Zero means no limit.
func WithTimeLimit(d time.Duration) Option {
	return func(c *Crawler) {
		c.timeLimit = d
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Crawler) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithTickInterval changes how long one elapsed "second" lasts
func WithTickInterval(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.tick = d
		}
	}
}

// Crawler orchestrates the crawl: a fixed pool of workers sharing one
// frontier queue and one visited set
type Crawler struct {
	fetcher   Fetcher
	extractor ContentExtractor
	visited   VisitedSet
	recorder  Recorder

	workers   int
	maxDepth  int
	timeLimit time.Duration
	tick      time.Duration

	state   atomic.Int32
	killed  atomic.Bool
	elapsed atomic.Int64

	runMu    sync.Mutex
	queue    *Queue
	stopOnce *sync.Once
	reason   Reason

	inFlightMu sync.Mutex
	inFlight   int
}

// New creates a crawler. The same crawler may run several crawls one after
// another; each run starts with a cleared visited set and a fresh pool.
func New(fetcher Fetcher, extractor ContentExtractor, visited VisitedSet, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:   fetcher,
		extractor: extractor,
		visited:   visited,
		recorder:  nopRecorder{},
		workers:   1,
		maxDepth:  NoDepthLimit,
		tick:      time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run crawls from seedURL until the frontier is exhausted, the time limit
// expires, Stop is called or ctx is cancelled
func (c *Crawler) Run(ctx context.Context, seedURL string) (*Result, error) {
	if c.workers < 1 || c.workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidWorkers, c.workers, MaxWorkers)
	}
	if c.maxDepth < 0 && c.maxDepth != NoDepthLimit {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDepth, c.maxDepth)
	}
	seed, err := NormalizeURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seedURL)
	}

	// Reset crawl state. Stop reads the queue and stop handle under runMu,
	// so they change together with the state.
	c.runMu.Lock()
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		c.runMu.Unlock()
		return nil, ErrAlreadyRunning
	}
	queue := NewQueue()
	c.visited.Clear()
	c.killed.Store(false)
	c.elapsed.Store(0)
	c.inFlightMu.Lock()
	c.inFlight = 0
	c.inFlightMu.Unlock()
	c.queue = queue
	c.stopOnce = &sync.Once{}
	c.reason = ReasonCompleted
	c.runMu.Unlock()
	defer c.state.Store(int32(StateIdle))

	logrus.Infof("Starting crawl of %s with %d workers (max depth %s, time limit %s)",
		seed, c.workers, depthString(c.maxDepth), limitString(c.timeLimit))

	c.submit(queue, Task{URL: seed, Depth: 0})

	done := make(chan struct{})
	var watchers sync.WaitGroup
	watchers.Add(2)
	go func() {
		defer watchers.Done()
		c.runTimer(done)
	}()
	go func() {
		defer watchers.Done()
		select {
		case <-ctx.Done():
			c.stop(ReasonStopped)
		case <-done:
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		id := i + 1
		g.Go(func() error {
			c.worker(gctx, queue, id)
			return nil
		})
	}
	g.Wait()

	// Workers may drain a cancelled run before the watcher gets to it
	if ctx.Err() != nil {
		c.stop(ReasonStopped)
	}
	close(done)
	watchers.Wait()

	c.runMu.Lock()
	reason := c.reason
	c.runMu.Unlock()

	result := &Result{
		Pages:   c.visited.Size(),
		Elapsed: time.Duration(c.elapsed.Load()) * time.Second,
		Reason:  reason,
	}
	logrus.Infof("Crawl finished (%s): %d pages in %s", result.Reason, result.Pages, FormatElapsed(result.Elapsed))

	return result, nil
}

// Stop cancels the current run. Pending tasks are discarded; tasks already
// fetching finish on their own.
func (c *Crawler) Stop() {
	c.stop(ReasonStopped)
}

func (c *Crawler) stop(reason Reason) {
	c.runMu.Lock()
	queue := c.queue
	once := c.stopOnce
	running := State(c.state.Load()) == StateRunning
	c.runMu.Unlock()

	if queue == nil || !running {
		return
	}

	once.Do(func() {
		if !c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
			return
		}

		c.runMu.Lock()
		c.reason = reason
		c.runMu.Unlock()

		c.killed.Store(true)

		dropped := queue.Drain()
		c.finishTasks(queue, dropped)

		logrus.Infof("Crawl stopping (%s), discarded %d pending tasks", reason, dropped)
	})
}

// Progress returns a snapshot of the current run
func (c *Crawler) Progress() Progress {
	c.runMu.Lock()
	queue := c.queue
	c.runMu.Unlock()

	p := Progress{
		State:       State(c.state.Load()),
		Elapsed:     time.Duration(c.elapsed.Load()) * time.Second,
		PagesParsed: c.visited.Size(),
		InFlight:    c.getInFlight(),
	}
	if queue != nil {
		p.QueueSize = queue.Size()
	}
	return p
}

// worker processes queue entries until the queue is stopped and empty
func (c *Crawler) worker(ctx context.Context, queue *Queue, id int) {
	logrus.Debugf("Worker %d started", id)

	for {
		task, ok := queue.Pop()
		if !ok {
			logrus.Debugf("Worker %d: queue stopped, exiting", id)
			return
		}

		c.process(ctx, queue, task)
		c.finishTasks(queue, 1)
	}
}

// process crawls a single task and submits its links
func (c *Crawler) process(ctx context.Context, queue *Queue, task Task) {
	if c.killed.Load() || ctx.Err() != nil {
		return
	}

	if c.visited.Contains(task.URL) {
		c.recorder.PageRedundant()
		return
	}

	doc, base, err := c.fetchDocument(ctx, task.URL)
	if err != nil {
		c.logFailure(task.URL, err)
		return
	}

	if !c.visited.TryInsert(task.URL, doc.Title) {
		logrus.Debugf("Redundant page %s", task.URL)
		c.recorder.PageRedundant()
		return
	}
	c.recorder.PageRecorded()
	logrus.Debugf("Recorded %s (depth=%d, links=%d)", task.URL, task.Depth, len(doc.Links))

	expand := c.maxDepth == NoDepthLimit || task.Depth < c.maxDepth

	for _, link := range doc.Links {
		if c.killed.Load() {
			return
		}

		target, ok := c.resolveLink(link, base)
		if !ok {
			continue
		}
		c.recorder.LinkDiscovered()

		if expand {
			c.submit(queue, Task{URL: target, Depth: task.Depth + 1})
		} else {
			// At the depth bound children are only titled, never expanded
			c.recordChild(ctx, target)
		}
	}
}

// recordChild fetches a page past the depth bound only to record its title
func (c *Crawler) recordChild(ctx context.Context, target string) {
	if c.visited.Contains(target) {
		c.recorder.PageRedundant()
		return
	}

	doc, _, err := c.fetchDocument(ctx, target)
	if err != nil {
		c.logFailure(target, err)
		return
	}
	if !doc.HasTitle {
		c.logFailure(target, &FetchError{URL: target, Err: ErrNoTitle})
		return
	}

	if c.visited.TryInsert(target, doc.Title) {
		c.recorder.PageRecorded()
		logrus.Debugf("Recorded %s (depth bound)", target)
	} else {
		c.recorder.PageRedundant()
	}
}

// fetchDocument fetches and extracts a page. It returns the URL variant
// that answered, which relative links are resolved against.
func (c *Crawler) fetchDocument(ctx context.Context, target string) (*Document, string, error) {
	variant, resp, err := c.fetchWithFallback(ctx, target)
	if err != nil {
		return nil, "", err
	}
	c.recorder.PageFetched()

	doc, err := c.extractor.Extract(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, "", err
	}
	return doc, variant, nil
}

// resolveLink turns a raw href into a normalized absolute URL
func (c *Crawler) resolveLink(link, base string) (string, bool) {
	if SkipLink(link) {
		return "", false
	}

	target, err := NormalizeURL(Resolve(link, base))
	if err != nil {
		return "", false
	}
	return target, true
}

// submit enqueues a task and counts it as in flight
func (c *Crawler) submit(queue *Queue, task Task) bool {
	if c.killed.Load() {
		return false
	}

	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()

	if !queue.Push(task) {
		return false
	}
	c.inFlight++
	return true
}

// finishTasks marks n tasks as done and stops the queue once nothing is
// left in flight
func (c *Crawler) finishTasks(queue *Queue, n int) {
	if n == 0 {
		return
	}

	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()

	c.inFlight -= n
	if c.inFlight <= 0 {
		c.inFlight = 0
		queue.Stop()
	}
}

func (c *Crawler) getInFlight() int {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()
	return c.inFlight
}

func (c *Crawler) logFailure(target string, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedContent):
		c.recorder.PageSkipped()
		logrus.Debugf("Skipped %s: not an HTML page", target)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logrus.Debugf("Fetch of %s cancelled", target)
	default:
		c.recorder.PageFailed()
		logrus.Debugf("Dropped %s: %v", target, err)
	}
}

func depthString(depth int) string {
	if depth == NoDepthLimit {
		return "none"
	}
	return fmt.Sprintf("%d", depth)
}

func limitString(limit time.Duration) string {
	if limit <= 0 {
		return "none"
	}
	return limit.String()
}
