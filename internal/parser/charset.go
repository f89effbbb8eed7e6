package parser

import (
	"io"

	"golang.org/x/net/html/charset"
)

// NewUTF8Reader converts body to UTF-8. The encoding is taken from contentType
// when it names a charset, otherwise from a BOM, a <meta> declaration or
// heuristics. UTF-8 input passes through unchanged.
func NewUTF8Reader(body io.Reader, contentType string) (io.Reader, error) {
	return charset.NewReader(body, contentType)
}
