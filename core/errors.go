package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// StorageError reports a failure of the underlying storage engine.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (err StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", err.Op, err.Err)
}

func (err StorageError) Unwrap() error { return err.Err }

func IsStorageError(err error) bool {
	_, ok := errors.Cause(err).(*StorageError)
	return ok
}

// ImportError reports a malformed import file.
// Imported counts the records added before the failure; they are kept.
type ImportError struct {
	Row      int
	Imported int
	Err      error
}

func (err ImportError) Error() string {
	if err.Row > 0 {
		return fmt.Sprintf("import failed at row %d (%d imported): %v", err.Row, err.Imported, err.Err)
	}
	return fmt.Sprintf("import failed (%d imported): %v", err.Imported, err.Err)
}

func (err ImportError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown reports whether err, or any error it wraps, asks the server to stop.
func IsShutdown(err error) bool {
	var s *shutdown
	return errors.As(err, &s)
}
