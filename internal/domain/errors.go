package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Stage code wraps them with %w and callers match with errors.Is.
var (
	// ErrFatalInput: missing or corrupt source, unsupported format. No retry.
	ErrFatalInput = errors.New("invalid input")
	// ErrCollaboratorUnavailable: an external engine could not be reached.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrTranslationDegraded: translation timed out or failed; text passes through.
	ErrTranslationDegraded = errors.New("translation degraded")
	// ErrPartialSegment: one segment failed to synthesize and was skipped.
	ErrPartialSegment = errors.New("segment synthesis failed")
	// ErrCompositionStarvation: no segment synthesized, nothing to compose.
	ErrCompositionStarvation = errors.New("no synthesized segments to compose")
	// ErrMuxing: both remux strategies failed.
	ErrMuxing = errors.New("remux failed")
)

// StageError records which pipeline stage produced a fatal error.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage.Step(), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Fatal wraps err as a fatal failure of stage.
func Fatal(stage State, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// IsFatal reports whether err aborts a job. Degraded translation and
// single-segment failures are absorbed by their stage.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTranslationDegraded) || errors.Is(err, ErrPartialSegment) {
		return false
	}
	return true
}
