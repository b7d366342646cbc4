package crawler

import (
	"errors"
	"fmt"
)

// Per-link failures. None of these abort a crawl; they are recovered by the
// task that discovered the link.
var (
	// ErrMalformedURL is returned when a link cannot be parsed as an http(s) URL
	ErrMalformedURL = errors.New("malformed url")

	// ErrConnection covers timeouts, refused connections, DNS failures,
	// non-2xx statuses and empty bodies. It is the only retryable class.
	ErrConnection = errors.New("connection error")

	// ErrUnsupportedContent is returned for responses that are not text/html
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrNoTitle is returned when a standalone fetch finds no title tag
	ErrNoTitle = errors.New("no title found")
)

// Run configuration errors, returned before any work starts.
var (
	ErrInvalidWorkers = errors.New("worker count out of range")
	ErrInvalidDepth   = errors.New("invalid max depth")
	ErrInvalidSeed    = errors.New("invalid seed url")
	ErrAlreadyRunning = errors.New("crawl already running")
)

// FetchError records which URL failed and why
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err should trigger the fallback chain
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnection)
}

func fetchError(url string, kind error, cause error) error {
	if cause == nil {
		return &FetchError{URL: url, Err: kind}
	}
	return &FetchError{URL: url, Err: fmt.Errorf("%w: %v", kind, cause)}
}
