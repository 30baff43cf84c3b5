package upload

import (
	"errors"
	"strings"
)

var (
	ErrConfigMissing = errors.New("media host credentials are not configured")
	ErrNoFile        = errors.New("no file provided")
	ErrInvalidFile   = errors.New("file is not an image")
	ErrFileTooLarge  = errors.New("file is too large")
)

// ConfigError names the credential variables that are not set.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "Please define " + strings.Join(e.Missing, ", ") +
		" environment variables. For local development, add them to .env.local."
}

func (e *ConfigError) Unwrap() error {
	return ErrConfigMissing
}
