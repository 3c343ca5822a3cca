package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// commonPasswords is deliberately tiny. Registration is the only caller and
// the point is to stop the handful of guesses tried first in the wild, not
// to estimate strength.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"password123": {},
	"123456":      {},
	"123456789":   {},
	"qwerty":      {},
	"qwerty123":   {},
	"11111111":    {},
	"letmein":     {},
}

// Validate applies the length policy and, when enabled, the common-password
// check.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	if c.Policy.RejectCommon && isCommon(password) {
		return ErrWeakPassword
	}
	return nil
}

func isCommon(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	if _, ok := commonPasswords[strings.ToLower(s)]; ok {
		return true
	}

	onlyDigits := true
	distinct := make(map[rune]struct{})
	for _, r := range s {
		distinct[r] = struct{}{}
		if !unicode.IsDigit(r) {
			onlyDigits = false
		}
	}
	if len(distinct) == 1 {
		return true
	}
	// PIN-like: short all-digit strings.
	return onlyDigits && utf8.RuneCountInString(s) < 12
}
