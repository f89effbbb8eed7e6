package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound represents an error when a requested resource is not found.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// ErrConfiguration is returned when a required setting is missing or invalid,
// such as an absent provider API key. It only aborts the affected provider path.
type ErrConfiguration struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("configuration error for %q: %s", e.Key, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrConfiguration) Is(target error) bool {
	_, ok := target.(*ErrConfiguration)
	return ok
}

// NewMissingAPIKeyError creates a configuration error for an unset provider key.
func NewMissingAPIKeyError(provider string) *ErrConfiguration {
	return &ErrConfiguration{Key: provider + ".api_key", Reason: "API key is missing"}
}

// ErrDiscovery is returned when a title source cannot be read.
type ErrDiscovery struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *ErrDiscovery) Error() string {
	return fmt.Sprintf("discovery failed for source %q: %v", e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ErrDiscovery) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrDiscovery) Is(target error) bool {
	_, ok := target.(*ErrDiscovery)
	return ok
}

// Reasons an identifier lookup can fail.
const (
	ReasonMissingAPIKey     = "missing_api_key"
	ReasonTransport         = "transport"
	ReasonNoResults         = "no_results"
	ReasonMalformedResponse = "malformed_response"
)

// ErrIdentifierResolution is returned when a title cannot be mapped to an external identifier.
// The entry is dropped from the working set and retried on the next run.
type ErrIdentifierResolution struct {
	Title  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ErrIdentifierResolution) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve identifier for %q (%s): %v", e.Title, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot resolve identifier for %q (%s)", e.Title, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ErrIdentifierResolution) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrIdentifierResolution) Is(target error) bool {
	_, ok := target.(*ErrIdentifierResolution)
	return ok
}

// ErrProviderTransport wraps network failures and non-OK HTTP answers from an image provider.
type ErrProviderTransport struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *ErrProviderTransport) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ErrProviderTransport) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrProviderTransport) Is(target error) bool {
	_, ok := target.(*ErrProviderTransport)
	return ok
}

// NewStatusError creates a transport error for an unexpected HTTP status.
func NewStatusError(provider string, statusCode int) *ErrProviderTransport {
	return &ErrProviderTransport{Provider: provider, StatusCode: statusCode}
}

// ErrNoCandidates reports that no language-free backdrop survived filtering.
// It is an outcome, not a failure of the run.
type ErrNoCandidates struct {
	Provider string
	Title    string
}

// Error implements the error interface.
func (e *ErrNoCandidates) Error() string {
	return fmt.Sprintf("no language-free backdrops from %s for %q", e.Provider, e.Title)
}

// Is allows for error checking with errors.Is().
func (e *ErrNoCandidates) Is(target error) bool {
	_, ok := target.(*ErrNoCandidates)
	return ok
}

// ErrPersistence is returned when a single backdrop cannot be fetched or written.
type ErrPersistence struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("cannot persist backdrop %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrPersistence) Is(target error) bool {
	_, ok := target.(*ErrPersistence)
	return ok
}

// ErrManifestCorruption is returned when the manifest cannot be parsed, even after a reset.
type ErrManifestCorruption struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ErrManifestCorruption) Error() string {
	return fmt.Sprintf("manifest %s is unreadable: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ErrManifestCorruption) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrManifestCorruption) Is(target error) bool {
	_, ok := target.(*ErrManifestCorruption)
	return ok
}

// ErrRunInProgress is returned when a run is triggered while another one holds the run lock.
type ErrRunInProgress struct {
	RunID string
}

// Error implements the error interface.
func (e *ErrRunInProgress) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("run already in progress (%s)", e.RunID)
	}
	return "run already in progress"
}

// Is allows for error checking with errors.Is().
func (e *ErrRunInProgress) Is(target error) bool {
	_, ok := target.(*ErrRunInProgress)
	return ok
}

// IsProviderFailure reports whether err should count as a failed provider call:
// transport problems and missing configuration both abort the provider path.
func IsProviderFailure(err error) bool {
	return errors.Is(err, &ErrProviderTransport{}) || errors.Is(err, &ErrConfiguration{})
}
