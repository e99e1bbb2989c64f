package lesson

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidSeed means the lesson a series is built from is malformed (e.g. it ends before it starts).
	ErrInvalidSeed = errors.New("invalid lesson")
	// ErrInvalidRule means the recurrence rule is malformed (unknown cadence, bad or missing bound).
	ErrInvalidRule = errors.New("invalid recurrence rule")
	ErrNotFound    = errors.New("lesson not found")
)

// IsInputError reports whether err is caused by ErrInvalidSeed or ErrInvalidRule.
func IsInputError(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrInvalidSeed || cause == ErrInvalidRule
}

// BatchFailure is one write of a multi-occurrence operation that could not be performed.
type BatchFailure struct {
	Op       string `json:"op"`
	LessonID string `json:"lesson_id,omitempty"`
	Err      error  `json:"-"`
}

// BatchError is returned when some writes of a multi-occurrence operation failed while others succeeded.
// Affected counts the writes that did succeed.
type BatchError struct {
	Affected int
	Failures []BatchFailure
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%s %s: %v", f.Op, f.LessonID, f.Err))
	}
	return fmt.Sprintf("%d of %d lesson writes failed: %s",
		len(e.Failures), e.Affected+len(e.Failures), strings.Join(msgs, "; "))
}

// StorageError means the lesson store could not be reached or refused an operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == ErrNotFound {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
