package ollama

import "fmt"

// BackendError is returned for any failed completion call. StatusCode is zero
// when the backend never produced a response, in which case Err holds the
// transport error.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend request failed: %v", e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
