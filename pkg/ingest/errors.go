package ingest

import (
	"errors"
	"fmt"

	"liyu1981.xyz/sensor-ingest-service/pkg/models"
)

var (
	ErrMissingColumns = errors.New("required columns missing")
	ErrEmptyInput     = errors.New("file has no data rows")
	ErrNotReady       = errors.New("file not readable before timeout")
	ErrEmptyBatch     = errors.New("cannot aggregate an empty batch")
)

// SkipError ends processing of a file for a reason that retrying cannot fix.
type SkipError struct {
	FileName string
	Reason   models.RejectReason
	Err      error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipping %s (%s): %v", e.FileName, e.Reason, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

// TransientIOError marks an I/O failure that may succeed on a later attempt.
type TransientIOError struct {
	Path string
	Err  error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("transient i/o error on %s: %v", e.Path, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another processing attempt. Only
// skips are final; anything unclassified is retried.
func IsRetryable(err error) bool {
	var skip *SkipError
	return !errors.As(err, &skip)
}
