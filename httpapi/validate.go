package httpapi

import (
	"net/mail"
	"strings"
)

const minPasswordLength = 8

func validateEmail(email string) []string {
	if strings.TrimSpace(email) == "" {
		return []string{"Email address is required."}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return []string{"A valid email address is required."}
	}
	return nil
}

// validatePassword applies the registration policy: length, upper, lower,
// digit and a non-alphanumeric character.
func validatePassword(password string) []string {
	if password == "" {
		return []string{"Password is required."}
	}

	var problems []string
	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "Password must be at least 8 characters long.")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !upper {
		problems = append(problems, "Password must contain at least one uppercase letter.")
	}
	if !lower {
		problems = append(problems, "Password must contain at least one lowercase letter.")
	}
	if !digit {
		problems = append(problems, "Password must contain at least one number.")
	}
	if !special {
		problems = append(problems, "Password must contain at least one special character.")
	}
	return problems
}

func required(value, message string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{message}
	}
	return nil
}
