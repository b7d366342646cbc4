package crawler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultUserAgent is sent with every request
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:63.0) Gecko/20100101 Firefox/63.0"

// Default fetch timeouts
const (
	DefaultConnectTimeout = 1000 * time.Millisecond
	DefaultReadTimeout    = 2000 * time.Millisecond
)

// Keys used on the per-request colly context
const (
	ctxKeyContext  = "sitecrawler.context"
	ctxKeyResponse = "sitecrawler.response"
	ctxKeySkipped  = "sitecrawler.skipped"
)

// Response is a fetched HTML page with its body decoded to UTF-8
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Charset     string
	Body        []byte
}

// Fetcher retrieves a single page
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// FetcherConfig holds the request settings of a CollyFetcher
type FetcherConfig struct {
	UserAgent      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// CollyFetcher fetches pages through a shared synchronous colly collector
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a fetcher with the given settings, filling in
// defaults for zero values
func NewCollyFetcher(cfg FetcherConfig) *CollyFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	f := &CollyFetcher{}
	f.setupColly(cfg)
	return f
}

// setupColly configures the colly collector with callbacks
func (f *CollyFetcher) setupColly(cfg FetcherConfig) {
	// Deduplication belongs to the visited set and the fallback chain may
	// request the same URL more than once
	f.collector = colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)

	f.collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
	})
	f.collector.SetRequestTimeout(cfg.ConnectTimeout + cfg.ReadTimeout)

	// Drop requests whose caller has gone away
	f.collector.OnRequest(func(r *colly.Request) {
		if ctx, ok := r.Ctx.GetAny(ctxKeyContext).(context.Context); ok && ctx.Err() != nil {
			r.Abort()
		}
	})

	// Sniff content type and charset before the body is read
	f.collector.OnResponseHeaders(func(r *colly.Response) {
		if r.StatusCode >= 203 {
			// Reported by colly as an error
			return
		}

		contentType := r.Headers.Get("Content-Type")
		if !IsHTML(contentType) {
			r.Ctx.Put(ctxKeySkipped, contentType)
			r.Request.Abort()
			return
		}

		r.Request.ResponseCharacterEncoding = Charset(contentType)
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxKeyResponse, &Response{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Charset:     r.Request.ResponseCharacterEncoding,
			Body:        r.Body,
		})
	})
}

// Fetch performs a GET request for rawURL and returns the decoded page
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := NormalizeURL(rawURL); err != nil {
		return nil, fetchError(rawURL, ErrMalformedURL, nil)
	}

	cctx := colly.NewContext()
	cctx.Put(ctxKeyContext, ctx)

	err := f.collector.Request(http.MethodGet, rawURL, nil, cctx, nil)

	if _, skipped := cctx.GetAny(ctxKeySkipped).(string); skipped {
		return nil, fetchError(rawURL, ErrUnsupportedContent, nil)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fetchError(rawURL, ErrConnection, err)
	}

	resp, ok := cctx.GetAny(ctxKeyResponse).(*Response)
	if !ok {
		return nil, fetchError(rawURL, ErrConnection, errors.New("no response"))
	}
	if len(resp.Body) == 0 {
		return nil, fetchError(rawURL, ErrConnection, errors.New("empty body"))
	}

	return resp, nil
}
