package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrAuth indicates no authenticated session could be established. Fatal:
// nothing downstream can run without a session.
var ErrAuth = errors.New("authentication failed")

// ErrNoData indicates the run produced no parseable usage records at all.
var ErrNoData = errors.New("no usage data collected")

// DownloadTimeoutError is returned when a triggered stats export never
// appears in the downloads directory within the configured window. Per-view
// and non-fatal: the caller records it and moves on to the next view.
type DownloadTimeoutError struct {
	ViewID  string
	Timeout time.Duration
}

func (e *DownloadTimeoutError) Error() string {
	return fmt.Sprintf("stats download for view %s did not complete within %s", e.ViewID, e.Timeout)
}

// IsDownloadTimeout reports whether err is (or wraps) a DownloadTimeoutError.
func IsDownloadTimeout(err error) bool {
	var dt *DownloadTimeoutError
	return errors.As(err, &dt)
}

// WriteError wraps a failure to produce the final report file. Fatal: the
// run's purpose is unmet without a report.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
