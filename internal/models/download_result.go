package models

// Outcome is the final state of an entry's acquisition
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNoCandidates  Outcome = "no_candidates"
	OutcomeProviderError Outcome = "provider_error"
	OutcomeSkipped       Outcome = "skipped"
)

// DownloadResult summarizes what happened to one entry during a run
type DownloadResult struct {
	Entry      TitleEntry `json:"entry"`
	Provider   Provider   `json:"provider,omitempty"`
	SavedPaths []string   `json:"savedPaths,omitempty"`
	Outcome    Outcome    `json:"outcome"`
	Reason     string     `json:"reason,omitempty"`
	FellBack   bool       `json:"fellBack,omitempty"`
}
