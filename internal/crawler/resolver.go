package crawler

import (
	"net/url"
	"regexp"
	"strings"
)

// absoluteLink matches links that already carry a scheme (scheme://...)
var absoluteLink = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

// pseudoLink matches hrefs that never name a crawlable page
var pseudoLink = regexp.MustCompile(`(?i)^\s*(javascript|mailto|tel|data):`)

// Resolve turns a raw href found on sourceURL into an absolute URL.
// It is a pure string transform; nothing is fetched or validated.
func Resolve(rawLink, sourceURL string) string {
	return resolve(strings.TrimSpace(rawLink), sourceURL, SchemeOf(sourceURL))
}

// SchemeOf returns the scheme of rawURL, defaulting to https
func SchemeOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i > 0 {
		return rawURL[:i]
	}
	return "https"
}

func resolve(link, source, scheme string) string {
	switch {
	case absoluteLink.MatchString(link):
		return link

	case strings.HasPrefix(link, "//"):
		// Protocol-relative
		return scheme + ":" + link

	case strings.HasPrefix(link, "/"):
		// Root-relative: keep scheme and host only
		return origin(source) + link

	default:
		// Document-relative or bare: replace the last path segment
		base := stripQuery(source)
		i := strings.LastIndex(base, "/")
		if i < hostOffset(base) {
			// Bare domain, the only slashes belong to "://"
			return base + "/" + link
		}
		return base[:i+1] + link
	}
}

// origin returns scheme://host of rawURL, or the whole URL minus query when
// there is no path
func origin(rawURL string) string {
	base := stripQuery(rawURL)
	start := hostOffset(base)
	if i := strings.Index(base[start:], "/"); i >= 0 {
		return base[:start+i]
	}
	return base
}

// hostOffset returns the index where the host starts
func hostOffset(rawURL string) int {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		return i + 3
	}
	return 0
}

// stripQuery drops the query string and fragment
func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// SkipLink reports whether a raw href should be ignored before resolution
func SkipLink(rawLink string) bool {
	link := strings.TrimSpace(rawLink)
	if link == "" || strings.HasPrefix(link, "#") {
		return true
	}
	return pseudoLink.MatchString(link)
}

// NormalizeURL returns the key under which a page is recorded.
// Scheme and host are lowercased, the fragment is dropped and an empty path
// becomes "/".
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", ErrMalformedURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrMalformedURL
	}
	if u.Hostname() == "" {
		return "", ErrMalformedURL
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}
