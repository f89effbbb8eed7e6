package models

// Candidate is a backdrop offered by a provider.
// Language is nil when the provider marks the image as carrying no language.
type Candidate struct {
	SourceURL string
	Language  *string
}

// LanguageTag returns the language tag or an empty string when absent
func (c Candidate) LanguageTag() string {
	if c.Language == nil {
		return ""
	}
	return *c.Language
}
