package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage matches every *Error with errors.Is.
	ErrStorage = errors.New("storage error")
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("article not found")
	// ErrInvalidArticle is returned for articles without title or URL.
	ErrInvalidArticle = errors.New("article needs a title and a url")
	// ErrUnsupportedDatabase is returned for an unknown database URL scheme.
	ErrUnsupportedDatabase = errors.New("unsupported database url")
)

// Error is a failed store operation. Any transaction it belonged to has
// been rolled back.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match any storage error.
func (e *Error) Is(target error) bool { return target == ErrStorage }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
