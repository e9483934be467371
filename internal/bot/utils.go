package bot

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// markdownV2Specials are the characters Telegram requires escaped in
// MarkdownV2 text, including a literal '.'.
const markdownV2Specials = "\\_*[]()~`>#+-=|{}.!"

// escapeMarkdownV2 escapes text for Telegram MarkdownV2 captions.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
