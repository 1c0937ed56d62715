package whatsthat

import (
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const passwordSpecials = "@$!%*?&"

// ValidateChatName rejects blank chat names.
func ValidateChatName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name", "Chat name cannot be empty.")
	}
	return nil
}

func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "Email is required.")
	}
	if !emailPattern.MatchString(email) {
		return invalid("email", "Please enter a valid email address.")
	}
	return nil
}

// ValidatePassword requires at least 8 characters drawn from letters, digits
// and @$!%*?&, including one uppercase letter, one digit and one of the
// special characters.
func ValidatePassword(password string) error {
	const msg = "Password must be at least 8 characters and contain an uppercase letter, a number and one of @$!%*?&."
	if len(password) < 8 {
		return invalid("password", msg)
	}
	var upper, digit, special bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return invalid("password", msg)
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		case unicode.IsLower(r):
		default:
			return invalid("password", msg)
		}
	}
	if !upper || !digit || !special {
		return invalid("password", msg)
	}
	return nil
}

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, "Please fill in all fields.")
	}
	return nil
}

// ValidateSignUp checks every sign-up field.
func ValidateSignUp(opts SignUpOptions) error {
	if err := validateName("first_name", opts.FirstName); err != nil {
		return err
	}
	if err := validateName("last_name", opts.LastName); err != nil {
		return err
	}
	if err := ValidateEmail(opts.Email); err != nil {
		return err
	}
	return ValidatePassword(opts.Password)
}
