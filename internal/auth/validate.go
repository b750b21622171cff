package auth

import "regexp"

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// South African numbering: +27 or 0 prefix followed by nine digits.
	phonePattern = regexp.MustCompile(`^(\+27|0)[0-9]{9}$`)
)

// minPasswordLength is the floor below which WEAK_PASSWORD is returned.
const minPasswordLength = 8

// ValidEmail reports whether the address has a plausible mailbox shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidPhone reports whether the number matches the supported formats.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
