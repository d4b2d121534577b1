package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural failures: configuration or pipeline-ordering bugs.
	// These propagate to the caller and are never retried.
	ErrMissingArtifact   = errors.New("artifact not found")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrInvalidSpec       = errors.New("invalid analysis spec")
	ErrRaggedTrials      = errors.New("trials do not share channel and time dimensions")

	// Store errors
	ErrStoreClosed = errors.New("artifact store closed")
)

// NewMissingArtifactError names the (kind, subject, analysis) key that was
// requested before it was computed.
func NewMissingArtifactError(kind, subject, analysis string) error {
	return fmt.Errorf("%w: %s for subject %s, analysis %s", ErrMissingArtifact, kind, subject, analysis)
}

// NewDimensionMismatchError reports two lengths that were required to agree.
func NewDimensionMismatchError(what string, got, want int) error {
	return fmt.Errorf("%w: %s has length %d, expected %d", ErrDimensionMismatch, what, got, want)
}

// Error checking helpers
func IsMissingArtifact(err error) bool {
	return errors.Is(err, ErrMissingArtifact)
}

func IsDimensionMismatch(err error) bool {
	return errors.Is(err, ErrDimensionMismatch)
}
