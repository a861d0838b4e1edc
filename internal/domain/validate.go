package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Indian mobile numbers: ten digits starting 6-9.
var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// ValidateRegistration checks entry-form input before any session starts.
// Errors wrap ErrValidation so callers can classify them without string
// matching.
func ValidateRegistration(name, mobile string) error {
	if len(strings.TrimSpace(name)) < 2 {
		return fmt.Errorf("%w: name must be at least 2 characters long", ErrValidation)
	}
	if !mobilePattern.MatchString(mobile) {
		return fmt.Errorf("%w: enter a valid 10-digit mobile number", ErrValidation)
	}
	return nil
}
