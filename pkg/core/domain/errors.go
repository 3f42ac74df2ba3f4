package domain

import "errors"

var (
	ErrAliasConflict = errors.New("custom alias already exists")
	ErrNotFound      = errors.New("link not found")
	ErrExpired       = errors.New("link expired")
	ErrPersistence   = errors.New("persistence failure")
)

// PersistenceError reports an unexpected store failure. The message never
// includes the underlying cause; use errors.Unwrap to log it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return ErrPersistence.Error() + ": " + e.Op
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// NewPersistenceError wraps err as a failure of op.
func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsExpired reports whether err indicates an expired link.
func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }

// IsAliasConflict reports whether err indicates a taken custom alias.
func IsAliasConflict(err error) bool { return errors.Is(err, ErrAliasConflict) }
