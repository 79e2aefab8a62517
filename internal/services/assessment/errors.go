package assessment

import (
	"errors"
	"fmt"
	"strings"
)

// Service errors
var (
	ErrUnauthorized       = errors.New("role not authorized for stage")
	ErrInvalidTransition  = errors.New("invalid stage transition")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrApplicationClosed  = errors.New("assessment already terminal")
)

// IncompleteSubmissionError names every unmet submission precondition so
// the caller can fix them all in one resubmission.
type IncompleteSubmissionError struct {
	Missing []string
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("incomplete submission: %s", strings.Join(e.Missing, "; "))
}

// ErrIncompleteSubmission is the sentinel IncompleteSubmissionError
// unwraps to, for errors.Is checks.
var ErrIncompleteSubmission = errors.New("incomplete submission")

func (e *IncompleteSubmissionError) Unwrap() error { return ErrIncompleteSubmission }
