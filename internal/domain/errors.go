package domain

import (
	"errors"
	"fmt"
)

// Dependency names used in DependencyError.
const (
	DependencyEmbedding  = "embedding"
	DependencyRetrieval  = "retrieval"
	DependencyGeneration = "generation"
)

// ErrQueryRequired is the message reported for an empty query.
const ErrQueryRequired = "Query is required"

// ValidationError reports malformed caller input. No external call has been made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// DependencyError reports a failed call to an external collaborator.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s dependency failed: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// NewDependencyError wraps err as a failure of the named dependency.
// An err that already is a DependencyError is returned unchanged.
func NewDependencyError(dependency string, err error) error {
	var de *DependencyError
	if errors.As(err, &de) {
		return err
	}
	return &DependencyError{Dependency: dependency, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDependency reports whether err is a DependencyError.
func IsDependency(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
