package batch

import (
	"errors"
	"fmt"
)

// Common scheduler errors.
var (
	ErrNilProcess          = errors.New("batch process function cannot be nil")
	ErrSchedulerClosed     = errors.New("batch scheduler is closed")
	ErrResultCountMismatch = errors.New("process returned a different number of results than params")
	ErrProcessPanicked     = errors.New("batch process function panicked")
	ErrNotResolved         = errors.New("future is not resolved yet")
)

// BatchProcessingError is delivered to every request of a failed batch.
// Unwrap returns the process error unchanged, so errors.Is matches whatever
// the process function returned.
//
//nolint:revive // BatchProcessingError is the canonical name for this exported type.
type BatchProcessingError struct {
	BatchID string
	Size    int
	Err     error
}

func (e *BatchProcessingError) Error() string {
	return fmt.Sprintf("batch %s (%d requests) failed: %v", e.BatchID, e.Size, e.Err)
}

func (e *BatchProcessingError) Unwrap() error {
	return e.Err
}
