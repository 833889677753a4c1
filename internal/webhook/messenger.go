package webhook

import (
	"fmt"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// LINE text message limits.
const (
	maxTextRunes       = 5000
	maxMessagesInReply = 5
)

// Client adapts the Messaging API client to Messenger.
type Client struct {
	api *messaging_api.MessagingApiAPI
}

// NewClient creates a Messaging API client for the channel token.
func NewClient(channelToken string) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &Client{api: api}, nil
}

// Reply sends messages with a reply token.
func (c *Client) Reply(replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

// ShowLoading shows the typing indicator in a chat. LINE only supports it
// in personal chats and ignores the call elsewhere.
func (c *Client) ShowLoading(chatID string, seconds int32) error {
	if chatID == "" {
		return nil
	}
	_, err := c.api.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}

// TextMessages splits text into at most five LINE text messages,
// breaking on paragraph boundaries where possible. Overflow past the last
// message is cut with "...".
func TextMessages(text string) []messaging_api.MessageInterface {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var msgs []messaging_api.MessageInterface
	for _, part := range splitRunes(text, maxTextRunes, maxMessagesInReply) {
		msgs = append(msgs, &messaging_api.TextMessage{Text: part})
	}
	return msgs
}

func splitRunes(text string, size, limit int) []string {
	runes := []rune(text)
	var parts []string
	for len(runes) > 0 {
		if len(parts) == limit-1 && len(runes) > size {
			parts = append(parts, string(runes[:size-3])+"...")
			break
		}
		if len(runes) <= size {
			parts = append(parts, string(runes))
			break
		}
		cut := size
		if i := lastIndex(runes[:size], "\n\n"); i > size/2 {
			cut = i
		}
		parts = append(parts, strings.TrimSpace(string(runes[:cut])))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), "\n "))
	}
	return parts
}

func lastIndex(runes []rune, sep string) int {
	s := []rune(sep)
	for i := len(runes) - len(s); i >= 0; i-- {
		if string(runes[i:i+len(s)]) == sep {
			return i
		}
	}
	return -1
}
