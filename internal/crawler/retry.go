package crawler

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// rewrite derives an alternative form of a URL. ok is false when the
// rewrite does not apply.
type rewrite func(u url.URL) (url.URL, bool)

// fallbackChain is tried in order after the requested URL fails to connect
var fallbackChain = []rewrite{
	swapScheme,
	addWWW,
	func(u url.URL) (url.URL, bool) {
		swapped, ok := swapScheme(u)
		if !ok {
			return u, false
		}
		return addWWW(swapped)
	},
}

func swapScheme(u url.URL) (url.URL, bool) {
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "https"
	case "https":
		u.Scheme = "http"
	default:
		return u, false
	}
	return u, true
}

func addWWW(u url.URL) (url.URL, bool) {
	host := u.Hostname()
	if host == "" || strings.HasPrefix(strings.ToLower(host), "www.") {
		return u, false
	}
	u.Host = "www." + u.Host
	return u, true
}

// Variants returns rawURL followed by its fallback rewrites, without
// duplicates
func Variants(rawURL string) []string {
	variants := []string{rawURL}

	u, err := url.Parse(rawURL)
	if err != nil {
		return variants
	}

	seen := map[string]bool{rawURL: true}
	for _, rw := range fallbackChain {
		alt, ok := rw(*u)
		if !ok {
			continue
		}
		s := alt.String()
		if seen[s] {
			continue
		}
		seen[s] = true
		variants = append(variants, s)
	}

	return variants
}

// fetchWithFallback fetches rawURL, walking the fallback chain while the
// failure is connection related. It returns the URL variant that answered.
func (c *Crawler) fetchWithFallback(ctx context.Context, rawURL string) (string, *Response, error) {
	var lastErr error

	for i, variant := range Variants(rawURL) {
		if i > 0 {
			if c.killed.Load() {
				break
			}
			c.recorder.RetryAttempted()
		}

		start := time.Now()
		resp, err := c.fetcher.Fetch(ctx, variant)
		c.recorder.FetchTime(time.Since(start))
		if err == nil {
			return variant, resp, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	return "", nil, lastErr
}
