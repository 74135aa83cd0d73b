// Package phone normalizes and validates Nigerian mobile numbers.
package phone

import "strings"

// Mobile prefixes currently assigned to Nigerian carriers. A normalized
// number is only considered valid when its local part starts with one of
// these.
var validPrefixes = []string{
	"703", "704", "705", "706", "708",
	"802", "803", "804", "805", "806", "807", "808", "809",
	"810", "811", "812", "813", "814", "815", "816", "817", "818", "819",
	"901", "902", "903", "904", "905", "906", "907", "908", "909",
	"915", "916", "917", "918",
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize converts free-form input into +234 E.164 form. Inputs already
// carrying the 234 country code keep it; a leading 0 is replaced by the
// country code; anything else is assumed to be a bare local number.
func Normalize(input string) string {
	digits := digitsOnly(input)

	switch {
	case strings.HasPrefix(digits, "234"):
		return "+" + digits
	case strings.HasPrefix(digits, "0"):
		return "+234" + digits[1:]
	case len(digits) > 0:
		return "+234" + digits
	}
	return "+234"
}

// Valid reports whether number is a complete Nigerian mobile number:
// 13 digits (234 plus a 10-digit local part) with a recognized carrier prefix.
func Valid(number string) bool {
	digits := digitsOnly(number)
	if len(digits) != 13 || !strings.HasPrefix(digits, "234") {
		return false
	}
	local := digits[3:]
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(local, prefix) {
			return true
		}
	}
	return false
}
