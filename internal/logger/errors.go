package logger

import "errors"

var (
	// ErrInvalidLevel is returned when an unknown logging level is configured.
	ErrInvalidLevel = errors.New("invalid logging level")
	// ErrInvalidEncoding is returned when an unknown encoding is configured.
	ErrInvalidEncoding = errors.New("invalid log encoding format")
	// ErrInvalidFields is reported when fields are not key-value pairs.
	ErrInvalidFields = errors.New("invalid fields: must be key-value pairs")
)
