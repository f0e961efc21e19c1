package logger

// RedactPhone masks a phone number for safe logging.
// "01012345678" → "010****5678"
// Numbers too short to mask meaningfully are fully masked.
func RedactPhone(phone string) string {
	if len(phone) < 8 {
		return "****"
	}
	return phone[:3] + "****" + phone[len(phone)-4:]
}
