package contacts

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// IsE164 reports whether phone is a well-formed E.164 number.
func IsE164(phone string) bool {
	return e164Pattern.MatchString(strings.TrimSpace(phone))
}

// ToE164 normalizes a raw phone string to E.164.
//
// The rules are UK-biased, matching the CSV sources this product ingests:
// a leading 44 is treated as the UK country code, a leading 0 on a
// national-length number is replaced with +44, and anything else already
// carrying a country code just gains the +.
// Returns "" when no digits survive cleaning.
func ToE164(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(cleaned, "44"):
		return "+" + cleaned
	case strings.HasPrefix(cleaned, "0") && len(cleaned) >= 10:
		return "+44" + cleaned[1:]
	default:
		return "+" + cleaned
	}
}

// FormatForDisplay renders an E.164 number in the national convention
// users expect in tables and exports. Non-UK numbers pass through.
func FormatForDisplay(phoneE164 string) string {
	var b strings.Builder
	for _, r := range phoneE164 {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	if !strings.HasPrefix(cleaned, "44") {
		return phoneE164
	}

	local := cleaned[2:]
	if strings.HasPrefix(local, "7") && len(local) == 10 {
		// UK mobile: 07700 900123
		return "0" + local[:5] + " " + local[5:]
	}
	return "0" + local
}

// DedupeHash derives the uniqueness key for a contact from its E.164 phone.
func DedupeHash(phoneE164 string) string {
	sum := sha256.Sum256([]byte(phoneE164))
	return hex.EncodeToString(sum[:])
}
