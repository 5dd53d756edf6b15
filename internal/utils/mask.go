package utils

import (
	"strings"
	"unicode/utf8"
)

// MaskEmail keeps the first character of the local part and the domain:
// "alice@example.com" -> "a****@example.com".
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	first, size := utf8.DecodeRuneInString(local)
	return string(first) + strings.Repeat("*", utf8.RuneCountInString(local[size:])) + email[at:]
}
