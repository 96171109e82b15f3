// Package logger provides structured logging backed by zap.
package logger

// Level represents the logging level.
type Level string

const (
	// DebugLevel logs debug messages.
	DebugLevel Level = "debug"
	// InfoLevel logs info messages.
	InfoLevel Level = "info"
	// WarnLevel logs warning messages.
	WarnLevel Level = "warn"
	// ErrorLevel logs error messages.
	ErrorLevel Level = "error"
	// FatalLevel logs fatal messages and exits.
	FatalLevel Level = "fatal"
)

// Encodings supported by New.
const (
	EncodingConsole = "console"
	EncodingJSON    = "json"
)

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level.
	Level Level `mapstructure:"level" yaml:"level"`
	// Development enables human friendly output with colored levels.
	Development bool `mapstructure:"development" yaml:"development"`
	// Encoding is either "console" or "json".
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
}
