package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when the cloud engine is selected
	// without an API key.
	ErrMissingCredential = errors.New("speech: cloud API key is required")

	// ErrVoiceNotFound is returned at configuration time when no installed
	// voice matches the requested name.
	ErrVoiceNotFound = errors.New("speech: voice not found")
)

// ProviderError carries the error body returned by the synthesis provider
// on a non-success response.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("speech: provider error (status %d): %s", e.Status, e.Message)
}
