package realtime

import "fmt"

// ValidationError reports a malformed inbound event. It is surfaced to the
// submitting connection only and never broadcast into a room.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PersistenceError reports a failed tracking store append or query. A failed
// append suppresses fan-out: observers only ever see durably recorded samples.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("tracking store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
