package client

import "fmt"

// ErrMalformedResponse is returned when a provider answers 200 with a body
// that does not match the expected shape.
type ErrMalformedResponse struct {
	Provider string
	Err      error
}

// Error implements the error interface
func (e *ErrMalformedResponse) Error() string {
	return fmt.Sprintf("%s returned a malformed response: %v", e.Provider, e.Err)
}

// Unwrap returns the decoding error
func (e *ErrMalformedResponse) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is()
func (e *ErrMalformedResponse) Is(target error) bool {
	_, ok := target.(*ErrMalformedResponse)
	return ok
}
