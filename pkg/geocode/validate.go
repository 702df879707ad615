package geocode

import "unicode"

// IsValidAddress is a cheap local precheck run before spending a geocode call
// on obviously malformed input. It is not a substitute for geocoding the
// address server-side; both checks run.
func IsValidAddress(address string) bool {
	if len(address) < 5 {
		return false
	}

	var hasDigit, hasLetter bool
	for _, r := range address {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			hasLetter = true
		}
	}

	// Needs a street number and a street name
	return hasDigit && hasLetter
}
