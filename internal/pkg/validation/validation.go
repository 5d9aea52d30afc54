package validation

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Display name: letters, spaces, hyphens, apostrophes only.
var fullnameRe = regexp.MustCompile(`^[\p{L}\s\-']+$`)

// Usernames are the identity key and appear in URLs.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{3,32}$`)

// Tickers as the provider spells them: AAPL, BRK.B, ^GSPC, EURUSD=X, BINANCE:BTCUSDT.
var symbolRe = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=:^_/]{0,19}$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires:
// - at least 8 characters
// - at least one letter
// - at least one number
// - at least one special character
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidFullname(fullname string) bool {
	return fullname != "" && fullnameRe.MatchString(fullname)
}

func IsValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// IsValidSymbol expects an already normalized ticker.
func IsValidSymbol(symbol string) bool {
	return symbolRe.MatchString(symbol)
}

// IsPositiveFinite reports whether f is a usable quantity or price.
func IsPositiveFinite(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
