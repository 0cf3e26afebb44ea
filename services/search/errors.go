package search

import "errors"

var (
	// ErrNotStarted is wrapped by every reason a search request is refused.
	ErrNotStarted = errors.New("search not started")

	ErrEmptyQuery    = errors.New("query is empty")
	ErrSyntheticRoot = errors.New("cannot search the volume list")
	ErrRootNotFound  = errors.New("root is not an existing directory")

	ErrNotPaused      = errors.New("session is not paused")
	ErrAlreadyStarted = errors.New("session already started")
	ErrNoSession      = errors.New("no active session")
)

// RejectedError describes why a search request was refused.
type RejectedError struct {
	Root   string
	Reason error
}

func (e *RejectedError) Error() string {
	if e.Root == "" {
		return ErrNotStarted.Error() + ": " + e.Reason.Error()
	}
	return ErrNotStarted.Error() + ": " + e.Root + ": " + e.Reason.Error()
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrNotStarted
}

func (e *RejectedError) Unwrap() error {
	return e.Reason
}
