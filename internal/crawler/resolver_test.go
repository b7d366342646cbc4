package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		link   string
		source string
		want   string
	}{
		{
			name:   "bare relative replaces last segment",
			link:   "page.html",
			source: "http://a.com/dir/x.html",
			want:   "http://a.com/dir/page.html",
		},
		{
			name:   "root relative keeps origin only",
			link:   "/p.html",
			source: "http://a.com/dir/x.html",
			want:   "http://a.com/p.html",
		},
		{
			name:   "absolute passes through unchanged",
			link:   "https://other.com/y",
			source: "http://a.com/dir/x.html",
			want:   "https://other.com/y",
		},
		{
			name:   "protocol relative takes source scheme",
			link:   "//cdn.com/x.js",
			source: "https://a.com/index.html",
			want:   "https://cdn.com/x.js",
		},
		{
			name:   "document relative with subdirectory",
			link:   "sub/p.html",
			source: "http://a.com/dir/x.html",
			want:   "http://a.com/dir/sub/p.html",
		},
		{
			name:   "source ending in slash",
			link:   "page.html",
			source: "http://a.com/dir/",
			want:   "http://a.com/dir/page.html",
		},
		{
			name:   "bare domain gets a separator",
			link:   "page.html",
			source: "http://a.com",
			want:   "http://a.com/page.html",
		},
		{
			name:   "root relative on bare domain",
			link:   "/p.html",
			source: "http://a.com",
			want:   "http://a.com/p.html",
		},
		{
			name:   "query on source is ignored",
			link:   "next.html",
			source: "http://a.com/dir/x.html?q=a/b",
			want:   "http://a.com/dir/next.html",
		},
		{
			name:   "surrounding whitespace is trimmed",
			link:   "  page.html\n",
			source: "http://a.com/x.html",
			want:   "http://a.com/page.html",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Resolve(tt.link, tt.source))
		})
	}
}

func TestResolveProtocolRelativeUsesGivenScheme(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://cdn.com/x.js", resolve("//cdn.com/x.js", "http://a.com/", "https"))
	assert.Equal(t, "http://cdn.com/x.js", resolve("//cdn.com/x.js", "http://a.com/", "http"))
}

func TestSchemeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http", SchemeOf("http://a.com/x"))
	assert.Equal(t, "https", SchemeOf("https://a.com"))
	assert.Equal(t, "https", SchemeOf("a.com/x"))
}

func TestSkipLink(t *testing.T) {
	t.Parallel()

	skipped := []string{"", "   ", "#", "#top", "javascript:void(0)", "MAILTO:me@a.com", "tel:+123", "data:text/plain,hi"}
	for _, link := range skipped {
		assert.True(t, SkipLink(link), "expected %q to be skipped", link)
	}

	kept := []string{"page.html", "/p", "//cdn.com/x", "http://a.com/#frag", "mailto.html"}
	for _, link := range kept {
		assert.False(t, SkipLink(link), "expected %q to be kept", link)
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	t.Run("lowercases scheme and host", func(t *testing.T) {
		t.Parallel()
		got, err := NormalizeURL("HTTP://Example.COM/Path")
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/Path", got)
	})

	t.Run("adds root path", func(t *testing.T) {
		t.Parallel()
		got, err := NormalizeURL("https://a.com")
		require.NoError(t, err)
		assert.Equal(t, "https://a.com/", got)
	})

	t.Run("drops fragment keeps query", func(t *testing.T) {
		t.Parallel()
		got, err := NormalizeURL("http://a.com/x?q=1#section")
		require.NoError(t, err)
		assert.Equal(t, "http://a.com/x?q=1", got)
	})

	t.Run("keeps port", func(t *testing.T) {
		t.Parallel()
		got, err := NormalizeURL("http://127.0.0.1:8080/a")
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8080/a", got)
	})

	t.Run("rejects non http schemes and relative urls", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{"ftp://a.com/", "/relative", "page.html", "http://", "http://%zz/"} {
			_, err := NormalizeURL(raw)
			assert.ErrorIs(t, err, ErrMalformedURL, raw)
		}
	})
}
