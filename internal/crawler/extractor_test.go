package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Hello</title></head>
<body>
<a href="a.html">A</a> <A HREF='b.html'>B</A>
<a class="nav"
   href="/c.html?x=1&amp;y=2">C</a>
<p>no link here</p>
</body>
</html>`

func TestNewExtractor(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"", "lenient", "LENIENT"} {
		ext, err := NewExtractor(name)
		require.NoError(t, err)
		assert.IsType(t, LenientExtractor{}, ext)
	}

	ext, err := NewExtractor("tokenizer")
	require.NoError(t, err)
	assert.IsType(t, TokenExtractor{}, ext)

	_, err = NewExtractor("dom")
	assert.Error(t, err)
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	extractors := map[string]ContentExtractor{
		"lenient":   LenientExtractor{},
		"tokenizer": TokenExtractor{},
	}

	for name, ext := range extractors {
		ext := ext
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			t.Run("title and links", func(t *testing.T) {
				doc, err := ext.Extract(strings.NewReader(samplePage))
				require.NoError(t, err)
				assert.True(t, doc.HasTitle)
				assert.Equal(t, "Hello", doc.Title)
				assert.Equal(t, []string{"a.html", "b.html", "/c.html?x=1&y=2"}, doc.Links)
			})

			t.Run("title across lines", func(t *testing.T) {
				page := "<html>\n<head><title>My\n   Long Page</title></head>\n</html>\n"
				doc, err := ext.Extract(strings.NewReader(page))
				require.NoError(t, err)
				assert.Equal(t, "My Long Page", doc.Title)
			})

			t.Run("entities in title", func(t *testing.T) {
				doc, err := ext.Extract(strings.NewReader("<title>Tom &amp; Jerry</title>"))
				require.NoError(t, err)
				assert.Equal(t, "Tom & Jerry", doc.Title)
			})

			t.Run("title with attributes", func(t *testing.T) {
				doc, err := ext.Extract(strings.NewReader(`<TITLE lang="en">Upper</TITLE>`))
				require.NoError(t, err)
				assert.Equal(t, "Upper", doc.Title)
			})

			t.Run("first title wins", func(t *testing.T) {
				doc, err := ext.Extract(strings.NewReader("<title>One</title><title>Two</title>"))
				require.NoError(t, err)
				assert.Equal(t, "One", doc.Title)
			})

			t.Run("no title", func(t *testing.T) {
				doc, err := ext.Extract(strings.NewReader(`<html><body><a href="x.html">x</a></body></html>`))
				require.NoError(t, err)
				assert.False(t, doc.HasTitle)
				assert.Empty(t, doc.Title)
				assert.Equal(t, []string{"x.html"}, doc.Links)
			})

			t.Run("empty page", func(t *testing.T) {
				doc, err := ext.Extract(strings.NewReader(""))
				require.NoError(t, err)
				assert.False(t, doc.HasTitle)
				assert.Empty(t, doc.Links)
			})
		})
	}
}

func TestLenientExtractorUnterminatedTitle(t *testing.T) {
	t.Parallel()

	doc, err := LenientExtractor{}.Extract(strings.NewReader("<html><title>Broken\npage"))
	require.NoError(t, err)
	assert.True(t, doc.HasTitle)
	assert.Equal(t, "Broken page", doc.Title)
}
