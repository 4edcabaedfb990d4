package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a status change is not an edge of the graph
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConfiguration is returned when a domain, status or graph definition is missing or malformed
	ErrConfiguration = errors.New("configuration error")
)

// InvalidTransitionError carries the legal next states so callers can render them
type InvalidTransitionError struct {
	Domain   Domain
	From     string
	To       string
	Allowed  []string
	Terminal bool
}

func (e *InvalidTransitionError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("%s: %s status %s is terminal, cannot move to %s",
			ErrInvalidTransition, e.Domain, e.From, e.To)
	}
	return fmt.Sprintf("%s: %s cannot move from %s to %s (allowed: %s)",
		ErrInvalidTransition, e.Domain, e.From, e.To, strings.Join(e.Allowed, ", "))
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ConfigurationError reports a missing domain, status or policy entry
type ConfigurationError struct {
	Subject string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Subject, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NewConfigurationError builds a ConfigurationError
func NewConfigurationError(subject, format string, args ...interface{}) error {
	return &ConfigurationError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}
