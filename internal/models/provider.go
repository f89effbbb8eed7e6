package models

import (
	"fmt"
	"strings"
)

// Provider identifies an external image source
type Provider string

const (
	// ProviderTMDB is the primary provider with full catalogue coverage
	ProviderTMDB Provider = "tmdb"
	// ProviderTVDB is an alternate full-coverage provider
	ProviderTVDB Provider = "tvdb"
	// ProviderFanart is the secondary provider; its coverage is not guaranteed
	ProviderFanart Provider = "fanart"
)

// PrimaryProvider is the provider used when the secondary one comes back empty or fails
const PrimaryProvider = ProviderTMDB

// ParseProvider converts a provider name to Provider (case-insensitive)
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tmdb", "themoviedb":
		return ProviderTMDB, nil
	case "tvdb", "thetvdb":
		return ProviderTVDB, nil
	case "fanart", "fanart.tv", "fanarttv":
		return ProviderFanart, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// IsSecondary reports whether the provider lacks guaranteed coverage and should fall back
func (p Provider) IsSecondary() bool {
	return p == ProviderFanart
}

// String returns the provider name
func (p Provider) String() string {
	return string(p)
}
