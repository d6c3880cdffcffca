// Package settings manages the security settings entity: the password
// policy plus the lockout parameters consumed by the lockout guard.
package settings

import (
	"errors"
	"time"
	"unicode"
)

// SecuritySettings parameterizes password validation and account lockout.
type SecuritySettings struct {
	MinLength              int  `json:"min_length" validate:"required,min=6,max=128"`
	RequireNumbers         bool `json:"require_numbers"`
	RequireSpecialChars    bool `json:"require_special_chars"`
	Threshold              int  `json:"threshold" validate:"required,min=1,max=100"`
	LockoutDurationMinutes int  `json:"lockout_duration_minutes" validate:"required,min=1,max=1440"`
}

// Defaults returns the settings used until an administrator stores a row.
func Defaults() SecuritySettings {
	return SecuritySettings{
		MinLength:              8,
		RequireNumbers:         true,
		RequireSpecialChars:    false,
		Threshold:              5,
		LockoutDurationMinutes: 30,
	}
}

// LockoutDuration converts the stored minutes to a duration.
func (s SecuritySettings) LockoutDuration() time.Duration {
	return time.Duration(s.LockoutDurationMinutes) * time.Minute
}

// Password policy violations.
var (
	ErrPasswordTooShort  = errors.New("settings: password below minimum length")
	ErrPasswordNeedsNum  = errors.New("settings: password requires a numeric character")
	ErrPasswordNeedsSpec = errors.New("settings: password requires a special character")
)

// CheckPassword validates a candidate password against the policy.
func (s SecuritySettings) CheckPassword(password string) error {
	if len(password) < s.MinLength {
		return ErrPasswordTooShort
	}
	if s.RequireNumbers && !containsClass(password, unicode.IsNumber) {
		return ErrPasswordNeedsNum
	}
	if s.RequireSpecialChars && !containsClass(password, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}) {
		return ErrPasswordNeedsSpec
	}
	return nil
}

func containsClass(s string, match func(rune) bool) bool {
	for _, r := range s {
		if match(r) {
			return true
		}
	}
	return false
}
