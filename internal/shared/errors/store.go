package errors

import (
	"context"
	stderrors "errors"
)

// FromStoreError classifies a failed store round trip. AppErrors pass
// through unchanged; an expired deadline becomes a timeout.
func FromStoreError(message string, err error) error {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(message+": store timed out", err)
	}
	return NewPersistenceError(message, err)
}
