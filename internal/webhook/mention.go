package webhook

import (
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// selfMentions returns the bot's own mentions in a message.
func selfMentions(m *webhook.Mention) []webhook.UserMentionee {
	if m == nil {
		return nil
	}
	var out []webhook.UserMentionee
	for _, mentionee := range m.Mentionees {
		if u, ok := mentionee.(webhook.UserMentionee); ok && u.IsSelf {
			out = append(out, u)
		}
	}
	return out
}

// isBotMentioned reports whether the message @-mentions the bot.
func isBotMentioned(msg webhook.TextMessageContent) bool {
	return len(selfMentions(msg.Mention)) > 0
}

// removeBotMentions cuts the bot's mentions out of text and collapses the
// remaining whitespace. LINE indexes mentions in runes.
func removeBotMentions(text string, m *webhook.Mention) string {
	mentions := selfMentions(m)
	if len(mentions) == 0 {
		return text
	}
	// Back to front keeps earlier indexes valid.
	slices.SortFunc(mentions, func(a, b webhook.UserMentionee) int { return int(b.Index - a.Index) })

	runes := []rune(text)
	for _, u := range mentions {
		start := max(int(u.Index), 0)
		end := min(int(u.Index+u.Length), len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
