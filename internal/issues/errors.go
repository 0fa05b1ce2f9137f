package issues

import (
	"errors"
	"fmt"
)

// ErrUnreadableSource is the only fatal condition: the input could not be read at all.
var ErrUnreadableSource = errors.New("source unreadable")

// SourceError wraps a fatal read failure with the operation and the source involved.
type SourceError struct {
	// Op is the operation that failed (e.g., "ParseJournal", "ReadPagesJSON").
	Op string

	// Err is the underlying error.
	Err error

	// Details usually names the source file.
	Details string
}

func (e *SourceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is matches ErrUnreadableSource for every SourceError as well as the wrapped error.
func (e *SourceError) Is(target error) bool {
	return target == ErrUnreadableSource || errors.Is(e.Err, target)
}

// WrapSourceError marks err as an unreadable-source failure unless it already is one.
func WrapSourceError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return err
	}
	return &SourceError{Op: op, Err: err, Details: details}
}
