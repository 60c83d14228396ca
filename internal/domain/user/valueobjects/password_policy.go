package valueobjects

import (
	"fmt"
	"unicode"
)

// PasswordPolicy defines the password validation rules
type PasswordPolicy struct {
	MinLength     int
	RequireLetter bool
	RequireNumber bool
}

// DefaultPasswordPolicy requires six characters with at least one letter and one digit.
func DefaultPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		MinLength:     6,
		RequireLetter: true,
		RequireNumber: true,
	}
}

func (p *PasswordPolicy) ValidatePassword(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}
	if len(password) > 72 {
		return fmt.Errorf("password must not exceed 72 characters (bcrypt limitation)")
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if p.RequireLetter && !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if p.RequireNumber && !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}
