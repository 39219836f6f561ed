package snapshot

import "fmt"

// AccessorError wraps a failure to read the live document: detached frame,
// lost target, navigation in flight. It is surfaced to the caller and the
// session's baseline is left untouched.
type AccessorError struct {
	SessionID string
	Err       error
}

func (e *AccessorError) Error() string {
	return fmt.Sprintf("snapshot: document access failed for session %s: %v", e.SessionID, e.Err)
}

func (e *AccessorError) Unwrap() error { return e.Err }
