package models

import "time"

// RunState is a step of the run state machine
type RunState string

const (
	RunStateIdle        RunState = "idle"
	RunStateDiscovering RunState = "discovering"
	RunStateResolving   RunState = "resolving"
	RunStateAcquiring   RunState = "acquiring"
	RunStatePersisting  RunState = "persisting"
	RunStateCompleted   RunState = "completed"
	RunStateFailed      RunState = "failed"
)

// IsTerminal reports whether no further transition can happen
func (s RunState) IsTerminal() bool {
	return s == RunStateCompleted || s == RunStateFailed
}

// Trigger records what started a run
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerSchedule Trigger = "schedule"
)

// RunSummary is returned by a manual trigger and kept as the last run status
type RunSummary struct {
	RunID        string           `json:"runId"`
	Trigger      Trigger          `json:"trigger"`
	State        RunState         `json:"state"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt,omitzero"`
	Discovered   int              `json:"discovered"`
	Resolved     int              `json:"resolved"`
	Dropped      int              `json:"dropped"`
	Succeeded    int              `json:"succeeded"`
	NoCandidates int              `json:"noCandidates"`
	Skipped      int              `json:"skipped"`
	Failed       int              `json:"failed"`
	Results      []DownloadResult `json:"results,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Record tallies a per-entry result into the summary counters
func (s *RunSummary) Record(result DownloadResult) {
	s.Results = append(s.Results, result)
	switch result.Outcome {
	case OutcomeSuccess:
		s.Succeeded++
	case OutcomeNoCandidates:
		s.NoCandidates++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeProviderError:
		s.Failed++
	}
}
