package session

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinNameLen = 2
	MaxNameLen = 32
)

// emailPattern accepts the basic local@domain.tld shape; full RFC 5322
// parsing is out of scope for a contact field that is never echoed back.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateCreate checks a create request's inputs, failing fast with a
// ValidationError naming the first offending field.
//
// Names are length-checked and must contain at least one ASCII letter or
// digit so that slugification has something to work with; characters
// outside the slug alphabet are normalized later, not rejected. Consent
// must be explicitly true — informed consent is a precondition, never a
// default.
func ValidateCreate(name, email string, consent bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	n := utf8.RuneCountInString(name)
	if n < MinNameLen || n > MaxNameLen {
		return &ValidationError{Field: "name", Reason: "must be 2-32 characters"}
	}
	if !strings.ContainsFunc(name, isAlphanumeric) {
		return &ValidationError{Field: "name", Reason: "must contain a letter or digit"}
	}

	if email == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}

	if !consent {
		return &ValidationError{Field: "consent", Reason: "must be true"}
	}
	return nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
