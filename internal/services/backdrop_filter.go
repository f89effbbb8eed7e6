package services

import (
	"strconv"
	"strings"

	"github.com/Belphemur/BackdropFetcher/internal/config"
	"github.com/Belphemur/BackdropFetcher/internal/models"
)

// IsLanguageFree reports whether a language tag marks an image without text.
// Providers use null, "", "none" or "00" for that.
func IsLanguageFree(tag *string) bool {
	if tag == nil {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(*tag)) {
	case "", "none", "00":
		return true
	}
	return false
}

// FilterLanguageFree keeps the language-free candidates in provider order
func FilterLanguageFree(candidates []models.Candidate) []models.Candidate {
	kept := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if IsLanguageFree(c.Language) {
			kept = append(kept, c)
		}
	}
	return kept
}

// ParseLimit converts the backdrop_limit setting. ok is false when every
// candidate should be kept ("All" in any case, or blank). Non-numeric values
// and values below 1 keep a single backdrop.
func ParseLimit(limit string) (n int, ok bool) {
	limit = strings.TrimSpace(limit)
	if limit == "" || strings.EqualFold(limit, config.BackdropLimitAll) {
		return 0, false
	}
	n, err := strconv.Atoi(limit)
	if err != nil || n < 1 {
		return 1, true
	}
	return n, true
}

// ApplyLimit keeps the first min(limit, len(candidates)) candidates
func ApplyLimit(candidates []models.Candidate, limit string) []models.Candidate {
	n, ok := ParseLimit(limit)
	if !ok || n >= len(candidates) {
		return candidates
	}
	return candidates[:n]
}
