package crawler

import (
	"regexp"
	"strings"
)

// DefaultCharset is used when a response names no charset or an unknown one
const DefaultCharset = "utf-8"

var charsetParam = regexp.MustCompile(`(?i)charset=["']?([^\s;"']+)`)

var knownCharsets = map[string]string{
	"us-ascii":   "us-ascii",
	"ascii":      "us-ascii",
	"iso-8859-1": "iso-8859-1",
	"latin1":     "iso-8859-1",
	"utf-16":     "utf-16",
	"utf-16be":   "utf-16be",
	"utf-16le":   "utf-16le",
	"utf-8":      "utf-8",
}

// Charset maps the charset parameter of a Content-Type header onto one of
// the supported encodings
func Charset(contentType string) string {
	match := charsetParam.FindStringSubmatch(contentType)
	if match == nil {
		return DefaultCharset
	}

	if name, ok := knownCharsets[strings.ToLower(match[1])]; ok {
		return name
	}
	return DefaultCharset
}

// IsHTML reports whether a Content-Type header announces an HTML page
func IsHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
