package core

import (
	"errors"
	"fmt"
	"testing"
)

// TestMissingArtifactError verifies wrapping and the Is helper
func TestMissingArtifactError(t *testing.T) {
	err := NewMissingArtifactError("decod", "s01", "target_present")
	if !IsMissingArtifact(err) {
		t.Error("Expected IsMissingArtifact to match")
	}
	if !errors.Is(err, ErrMissingArtifact) {
		t.Error("Expected errors.Is to match the sentinel")
	}

	wrapped := fmt.Errorf("loading: %w", err)
	if !IsMissingArtifact(wrapped) {
		t.Error("Expected the helper to see through wrapping")
	}
}

// TestDimensionMismatchError verifies the mismatch helper
func TestDimensionMismatchError(t *testing.T) {
	err := NewDimensionMismatchError("covariate", 3, 5)
	if !IsDimensionMismatch(err) {
		t.Error("Expected IsDimensionMismatch to match")
	}
	if IsMissingArtifact(err) {
		t.Error("Helpers must not cross-match")
	}
}
