package publishing

import (
	"errors"
	"fmt"

	"github.com/quillmark/core/internal/models"
)

// ErrPostNotFound is returned by interactive operations on a missing post.
var ErrPostNotFound = errors.New("post not found")

// ValidationError rejects a transition on structural grounds (missing fields,
// duplicate slug among published posts). Reported as a soft failure: the post
// is left untouched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Reason }

// InvalidTransitionError is a hard rejection of an illegal transition request
// (scheduling in the past, unpublishing a non-published post). No mutation
// occurs.
type InvalidTransitionError struct {
	Reason string
}

func (e *InvalidTransitionError) Error() string { return "invalid transition: " + e.Reason }

// ConcurrencyConflictError means a conditional update lost a race: the stored
// status no longer matched the snapshot. Internal to the commit path.
type ConcurrencyConflictError struct {
	PostID   string
	Expected models.PostStatus
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent update on post %s: status is no longer %q", e.PostID, e.Expected)
}

// TransientStorageError wraps a storage or communication failure during
// commit. This is the only retried error category.
type TransientStorageError struct {
	Op  string
	Err error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage failure during %s: %v", e.Op, e.Err)
}

func (e *TransientStorageError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable under the worker's backoff
// policy.
func IsTransient(err error) bool {
	var te *TransientStorageError
	return errors.As(err, &te)
}
