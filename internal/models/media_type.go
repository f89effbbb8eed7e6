package models

import (
	"fmt"
	"strings"
)

// MediaType distinguishes movies from TV shows
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeShow  MediaType = "show"
)

// MediaTypes lists every supported media type in discovery order
var MediaTypes = []MediaType{MediaTypeMovie, MediaTypeShow}

// ParseMediaType converts a media type string to MediaType, accepting common aliases
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film":
		return MediaTypeMovie, nil
	case "show", "shows", "tv", "series":
		return MediaTypeShow, nil
	default:
		return "", fmt.Errorf("unknown media type %q", s)
	}
}

// IsValid reports whether the media type is one of the supported values
func (m MediaType) IsValid() bool {
	return m == MediaTypeMovie || m == MediaTypeShow
}

// DirName returns the backdrop sub-directory used for this media type
func (m MediaType) DirName() string {
	if m == MediaTypeShow {
		return "TV Shows"
	}
	return "Movies"
}

// UnmarshalJSON implements json.Unmarshaler so aliases are accepted on load
func (m *MediaType) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMediaType(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
