package imagesrc

import (
	"errors"
	"fmt"
)

// ErrTooLarge is wrapped by FetchError when a remote body exceeds the limit.
var ErrTooLarge = errors.New("image exceeds size limit")

// ErrEmpty is wrapped by FetchError when a remote host answers with no bytes.
var ErrEmpty = errors.New("image body is empty")

// FormatError reports an inline image that is malformed or of an unsupported
// type. It is always the caller's fault.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid inline image: %s: %v", e.Reason, e.Err)
	}
	return "invalid inline image: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed retrieval of a remote image. StatusCode is zero
// when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch image %s: host returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch image %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
