package message

import "strings"

const titleLength = 30

// TitleFrom derives a chat title from the first user message.
func TitleFrom(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return DefaultTitle
	}
	runes := []rune(content)
	if len(runes) <= titleLength {
		return content
	}
	return string(runes[:titleLength]) + "..."
}
