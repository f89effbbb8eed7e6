// Package parser turns remote title list bodies into list items.
package parser

// Parser parses a fetched body given its Content-Type header
type Parser[T any] interface {
	Parse(body []byte, contentType string) ([]T, error)
}

// ListItem is one title read from a remote list. ExternalID is empty when the
// list does not carry a TMDB id.
type ListItem struct {
	Title      string
	ExternalID string
}
