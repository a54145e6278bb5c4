package accounts

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ValidationError reports a rejected input field. Validation runs before
// any state mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,50}$`)
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidateUsername enforces the registration username policy: 3-50
// characters, letters, digits, underscore and dot.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ValidationError{Field: "username", Message: "must be 3-50 characters of letters, digits, '_' or '.'"}
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email address"}
	}
	return nil
}

// ValidatePasswordStrength checks if a password meets the registration
// requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
// - Contains at least one special character
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "must be at least 8 characters long"}
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	if !hasUpper {
		return ValidationError{Field: "password", Message: "must contain at least one uppercase letter"}
	}
	if !hasLower {
		return ValidationError{Field: "password", Message: "must contain at least one lowercase letter"}
	}
	if !hasNumber {
		return ValidationError{Field: "password", Message: "must contain at least one number"}
	}
	if !hasSpecial {
		return ValidationError{Field: "password", Message: "must contain at least one special character"}
	}

	return nil
}

// ValidateRegistration runs the full field validation for a new account.
func ValidateRegistration(username, email, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePasswordStrength(password)
}
