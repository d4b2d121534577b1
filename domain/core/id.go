package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific identifier types
type (
	// RunID identifies one pipeline execution.
	RunID ID
	// SubjectID identifies one recorded subject.
	SubjectID string
	// AnalysisName identifies one registered analysis configuration.
	AnalysisName string
	// FactorName identifies a metadata column used as an experimental factor.
	FactorName string
)

func (id RunID) String() string       { return ID(id).String() }
func (s SubjectID) String() string    { return string(s) }
func (a AnalysisName) String() string { return string(a) }
func (f FactorName) String() string   { return string(f) }

// NewRunID creates a fresh run identifier.
func NewRunID() RunID { return RunID(NewID()) }

// ParseSubjectID parses a string into a SubjectID
func ParseSubjectID(s string) (SubjectID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("subject ID cannot be empty")
	}
	return SubjectID(s), nil
}
