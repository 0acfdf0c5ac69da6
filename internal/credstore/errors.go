package credstore

// StorageError indicates that a single backend failed to read or write.
// It is never fatal to the layered store: callers degrade to the next
// backend in precedence order and log the degradation.
type StorageError struct {
	// Operation is "load", "save" or "delete".
	Operation string

	// Backend is the source that failed.
	Backend Source

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := "credential " + e.Operation + " failed for " + e.Backend.String() + " backend"
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

func newStorageError(op string, backend Source, cause error) *StorageError {
	return &StorageError{Operation: op, Backend: backend, Cause: cause}
}
