package session

import (
	"regexp"
	"strings"
	"unicode"
)

// emailShape is the minimal local@domain.tld check performed before any
// provider call. The provider does its own, stricter validation.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// defaultSpecialChars is the accepted special-character set for passwords.
const defaultSpecialChars = "!@#$%^&*()_+-=[]{}|;:'\",.<>/?`~\\"

// normalizeEmail trims and lowercases an email address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	return emailShape.MatchString(email)
}

// validateName requires 2 to 50 characters after trimming.
func validateName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	n := len([]rune(name))
	return name, n >= 2 && n <= 50
}

// validatePassword enforces the registration policy: at least 8 characters
// with an uppercase letter, a lowercase letter, a digit and a special
// character from the configured set.
func validatePassword(password, specials string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}
