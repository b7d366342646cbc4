package crawler

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Extractor names accepted by NewExtractor
const (
	ExtractorLenient   = "lenient"
	ExtractorTokenizer = "tokenizer"
)

// Document is what an extractor finds in a page
type Document struct {
	Title    string
	HasTitle bool
	Links    []string
}

// ContentExtractor pulls the title and raw hrefs out of a page body
type ContentExtractor interface {
	Extract(r io.Reader) (*Document, error)
}

// NewExtractor returns the extractor registered under name
func NewExtractor(name string) (ContentExtractor, error) {
	switch strings.ToLower(name) {
	case "", ExtractorLenient:
		return LenientExtractor{}, nil
	case ExtractorTokenizer:
		return TokenExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

var (
	titleOpen  = regexp.MustCompile(`(?i)<title(\s[^>]*)?>`)
	titleClose = regexp.MustCompile(`(?i)</title\s*>`)
	anchorHref = regexp.MustCompile(`(?is)<a\s[^>]*?\bhref\s*=\s*("([^"]*)"|'([^']*)')`)
)

// LenientExtractor scans the page with patterns instead of parsing it.
// Malformed markup is tolerated as long as the patterns still match.
type LenientExtractor struct{}

// Extract implements ContentExtractor
func (LenientExtractor) Extract(r io.Reader) (*Document, error) {
	var content strings.Builder
	doc := &Document{}

	reader := bufio.NewReader(r)
	var pending strings.Builder // chunks appended while looking for </title>
	inTitle := false

	for {
		chunk, err := reader.ReadString('\n')
		if chunk != "" {
			content.WriteString(chunk)

			if !doc.HasTitle {
				if !inTitle {
					if loc := titleOpen.FindStringIndex(chunk); loc != nil {
						inTitle = true
						pending.WriteString(chunk[loc[1]:])
					}
				} else {
					pending.WriteString(chunk)
				}

				if inTitle {
					text := pending.String()
					if loc := titleClose.FindStringIndex(text); loc != nil {
						doc.Title = cleanTitle(text[:loc[0]])
						doc.HasTitle = true
						inTitle = false
					}
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read page: %w", err)
		}
	}

	// An unterminated title runs to the end of the page
	if inTitle && !doc.HasTitle {
		doc.Title = cleanTitle(pending.String())
		doc.HasTitle = true
	}

	for _, match := range anchorHref.FindAllStringSubmatch(content.String(), -1) {
		href := match[2]
		if strings.HasPrefix(match[1], "'") {
			href = match[3]
		}
		doc.Links = append(doc.Links, html.UnescapeString(href))
	}

	return doc, nil
}

// TokenExtractor walks the page with the x/net/html tokenizer. It does not
// build a tree either, but follows HTML tokenization rules.
type TokenExtractor struct{}

// Extract implements ContentExtractor
func (TokenExtractor) Extract(r io.Reader) (*Document, error) {
	doc := &Document{}
	tokenizer := html.NewTokenizer(r)
	inTitle := false
	var title strings.Builder

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if err := tokenizer.Err(); err != io.EOF {
				return nil, fmt.Errorf("failed to tokenize page: %w", err)
			}
			if inTitle {
				doc.Title = collapseSpace(title.String())
			}
			return doc, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			switch string(name) {
			case "title":
				if !doc.HasTitle {
					inTitle = true
					doc.HasTitle = true
				}
			case "a":
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = tokenizer.TagAttr()
					if string(key) == "href" {
						doc.Links = append(doc.Links, string(val))
						break
					}
				}
			}

		case html.TextToken:
			if inTitle {
				title.Write(tokenizer.Text())
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if inTitle && string(name) == "title" {
				inTitle = false
				doc.Title = collapseSpace(title.String())
			}
		}
	}
}

// cleanTitle unescapes entities and collapses whitespace
func cleanTitle(raw string) string {
	return collapseSpace(html.UnescapeString(raw))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
