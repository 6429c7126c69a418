package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is reported for any project file that fails validation.
var ErrInvalidConfig = errors.New("modforge: invalid configuration")

// ConfigError describes a rejected project file option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("modforge: invalid value %v for option %q: %s", e.Value, e.Option, e.Message)
	}
	return fmt.Sprintf("modforge: invalid option %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the invalid configuration sentinel.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsConfigError reports whether err is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}
