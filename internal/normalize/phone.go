package normalize

import "strings"

// Phone normalizes a raw phone value to the canonical digits-only form
// ("01012345678"). Returns "" when the value is not a valid Korean mobile
// number.
//
// Handles the usual upstream damage: separators, +82 country codes, and
// Excel stripping the leading zero off numeric cells.
func Phone(raw string) string {
	v := strings.TrimSpace(raw)

	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if strings.HasPrefix(digits, "82") && len(digits) >= 11 {
		digits = "0" + digits[2:]
	}

	// Excel number cells drop the leading 0: 10XXXXXXXX -> 010XXXXXXXX.
	if !strings.HasPrefix(digits, "0") && len(digits) >= 2 && digits[0] == '1' &&
		strings.ContainsRune("016789", rune(digits[1])) {
		digits = "0" + digits
	}

	if !ValidKoreanMobile(digits) {
		return ""
	}
	return digits
}

// ValidKoreanMobile reports whether the digits form a valid Korean mobile
// number: 010 numbers are exactly 11 digits, legacy 011/016/017/018/019
// numbers are 10 or 11.
func ValidKoreanMobile(digits string) bool {
	if strings.HasPrefix(digits, "010") {
		return len(digits) == 11
	}
	if len(digits) >= 3 && strings.HasPrefix(digits, "01") &&
		strings.ContainsRune("16789", rune(digits[2])) {
		return len(digits) == 10 || len(digits) == 11
	}
	return false
}
