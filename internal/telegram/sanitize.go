package telegram

import "strings"

// Sanitize escapes MarkdownV2 reserved characters so arbitrary text
// (a city or word name, a player's display name) can be embedded in a
// message sent with ParseMode "MarkdownV2" without Telegram rejecting
// it as malformed markup.
func Sanitize(input string) string {
	const reservedChars = "\\_{}#+-.!|()[]=*~`>"
	var sb strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(char)
	}
	return sb.String()
}
