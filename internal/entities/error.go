package entities

import (
	"errors"
	"fmt"
)

var (
	ErrFetchFailed      = errors.New("upstream fetch failed")
	ErrMalformedPayload = errors.New("malformed upstream payload")
	ErrInvalidRequest   = errors.New("invalid request")
)

// FetchError describes a failed upstream call. StatusCode is zero when
// no response was received.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s: status %d: %v", e.Op, ErrFetchFailed, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: status %d", e.Op, ErrFetchFailed, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, ErrFetchFailed, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, ErrFetchFailed)
	}
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Err}
}
