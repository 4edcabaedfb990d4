package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)
	programIDRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)
	controlRegex    = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// ValidateIdentifier validates a snake_case status or document type name
func ValidateIdentifier(kind, value string) error {
	if !identifierRegex.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", kind, value)
	}
	return nil
}

// ValidateProgramID validates a housing program id
func ValidateProgramID(id string) error {
	if !programIDRegex.MatchString(id) {
		return fmt.Errorf("invalid program id: %q", id)
	}
	return nil
}

// ValidateActorID requires a non-blank actor
func ValidateActorID(actorID string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("actor_id is required")
	}
	if len(actorID) > 128 {
		return fmt.Errorf("actor_id exceeds 128 characters")
	}
	return nil
}

// SanitizeString removes control characters from free text such as remarks
func SanitizeString(s string) string {
	return strings.TrimSpace(controlRegex.ReplaceAllString(s, ""))
}
