package reminder

import "strings"

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15

	userJIDSuffix  = "@s.whatsapp.net"
	groupJIDSuffix = "@g.us"
)

// PhoneDigits extracts the digits of a phone number or JID. It returns ""
// when the result is not a plausible phone number.
func PhoneDigits(numberOrJID string) string {
	value := strings.TrimSpace(numberOrJID)
	if value == "" {
		return ""
	}

	localPart := value
	if at := strings.IndexByte(value, '@'); at >= 0 {
		localPart = value[:at]
	}

	var b strings.Builder
	for _, r := range localPart {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return ""
	}
	return digits
}

// NormalizeJID turns a raw phone number or JID into a user JID suitable
// for the gateway. Group JIDs are rejected: reminders only go to
// individual contacts. Returns "" for anything unusable.
func NormalizeJID(number string) string {
	value := strings.TrimSpace(number)
	if value == "" || strings.HasSuffix(value, groupJIDSuffix) {
		return ""
	}

	digits := PhoneDigits(value)
	if digits == "" {
		return ""
	}
	return digits + userJIDSuffix
}
