package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/uni-assistant-go/internal/chat"
	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/pipeline"
)

const secret = "test-channel-secret"

func init() { gin.SetMode(gin.TestMode) }

type fakeMessenger struct {
	mu      sync.Mutex
	replies map[string][]string
	loading []string
}

func (f *fakeMessenger) Reply(token string, messages []messaging_api.MessageInterface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replies == nil {
		f.replies = map[string][]string{}
	}
	for _, m := range messages {
		f.replies[token] = append(f.replies[token], m.(*messaging_api.TextMessage).Text)
	}
	return nil
}

func (f *fakeMessenger) ShowLoading(chatID string, _ int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = append(f.loading, chatID)
	return nil
}

type fakeAsker struct {
	mu   sync.Mutex
	reqs []chat.Request
	err  error
}

func (f *fakeAsker) Ask(_ context.Context, req chat.Request) (chat.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return chat.Reply{}, f.err
	}
	return chat.Reply{Answer: pipeline.Answer{Text: "answer to " + req.Query, Status: pipeline.StatusOK}}, nil
}

func newHandler(asker Asker) (*Handler, *fakeMessenger, *gin.Engine) {
	m := &fakeMessenger{}
	h := NewHandler(Config{ChannelSecret: secret, Messenger: m, Chat: asker, Logger: logger.New("error")})
	r := gin.New()
	r.POST("/callback", h.Handle)
	return h, m, r
}

func post(t *testing.T, r http.Handler, body []byte, signature string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func callback(t *testing.T, events ...map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{"destination": "Ubot", "events": events})
	require.NoError(t, err)
	return body
}

func textEvent(token string, source map[string]any, text string, mention map[string]any) map[string]any {
	msg := map[string]any{"id": "1", "type": "text", "quoteToken": "q", "text": text}
	if mention != nil {
		msg["mention"] = mention
	}
	return map[string]any{
		"type":            "message",
		"mode":            "active",
		"timestamp":       1760000000000,
		"webhookEventId":  "01J" + token,
		"deliveryContext": map[string]any{"isRedelivery": false},
		"replyToken":      token,
		"source":          source,
		"message":         msg,
	}
}

func userSource(id string) map[string]any { return map[string]any{"type": "user", "userId": id} }

func groupSource(group, user string) map[string]any {
	return map[string]any{"type": "group", "groupId": group, "userId": user}
}

func botMention(index, length int) map[string]any {
	return map[string]any{"mentionees": []map[string]any{{"index": index, "length": length, "type": "user", "isSelf": true}}}
}

func drain(t *testing.T, h *Handler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))
}

func TestHandle_InvalidSignature(t *testing.T) {
	t.Parallel()
	asker := &fakeAsker{}
	h, _, r := newHandler(asker)
	body := callback(t, textEvent("tok-1", userSource("U1"), "hello", nil))

	assert.Equal(t, http.StatusBadRequest, post(t, r, body, "bogus"))
	drain(t, h)
	assert.Empty(t, asker.reqs)
}

func TestHandle_PersonalChat(t *testing.T) {
	t.Parallel()
	asker := &fakeAsker{}
	h, m, r := newHandler(asker)
	body := callback(t, textEvent("tok-1", userSource("U1"), "What are the hostel fees?", nil))

	assert.Equal(t, http.StatusOK, post(t, r, body, sign(body)))
	drain(t, h)

	require.Len(t, asker.reqs, 1)
	assert.Equal(t, chat.Request{Channel: chat.ChannelLine, SessionID: "U1", UserID: "U1", Query: "What are the hostel fees?"}, asker.reqs[0])
	assert.Equal(t, []string{"answer to What are the hostel fees?"}, m.replies["tok-1"])
	assert.Equal(t, []string{"U1"}, m.loading)
}

func TestHandle_GroupRequiresMention(t *testing.T) {
	t.Parallel()
	asker := &fakeAsker{}
	h, m, r := newHandler(asker)
	body := callback(t,
		textEvent("tok-1", groupSource("G1", "U1"), "just chatting", nil),
		textEvent("tok-2", groupSource("G1", "U2"), "@Bot library hours?", botMention(0, 4)),
		textEvent("tok-3", groupSource("G1", "U3"), "@Bot", botMention(0, 4)),
	)

	assert.Equal(t, http.StatusOK, post(t, r, body, sign(body)))
	drain(t, h)

	require.Len(t, asker.reqs, 1)
	assert.Equal(t, "library hours?", asker.reqs[0].Query)
	assert.Equal(t, "G1", asker.reqs[0].SessionID)
	assert.Equal(t, "U2", asker.reqs[0].UserID)
	assert.NotContains(t, m.replies, "tok-1")
	assert.Equal(t, []string{EmptyAskText}, m.replies["tok-3"])
	assert.Empty(t, m.loading)
}

func TestHandle_ChatErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", apperrors.ErrRateLimitExceeded, chat.RateLimitedText},
		{"invalid", apperrors.ErrInvalidInput, TooLongText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, m, r := newHandler(&fakeAsker{err: tt.err})
			body := callback(t, textEvent("tok-1", userSource("U1"), "hi", nil))
			assert.Equal(t, http.StatusOK, post(t, r, body, sign(body)))
			drain(t, h)
			assert.Equal(t, []string{tt.want}, m.replies["tok-1"])
		})
	}
}

func TestHandle_FollowAndSticker(t *testing.T) {
	t.Parallel()
	asker := &fakeAsker{}
	h, m, r := newHandler(asker)
	follow := map[string]any{
		"type": "follow", "mode": "active", "timestamp": 1760000000000,
		"webhookEventId": "01Jfollow", "deliveryContext": map[string]any{"isRedelivery": false},
		"replyToken": "tok-f", "source": userSource("U1"), "follow": map[string]any{"isUnblocked": false},
	}
	sticker := textEvent("tok-s", userSource("U1"), "", nil)
	sticker["message"] = map[string]any{"id": "2", "type": "sticker", "packageId": "1", "stickerId": "1", "stickerResourceType": "STATIC", "quoteToken": "q"}

	body := callback(t, follow, sticker)
	assert.Equal(t, http.StatusOK, post(t, r, body, sign(body)))
	drain(t, h)

	assert.Equal(t, []string{WelcomeText}, m.replies["tok-f"])
	assert.Equal(t, []string{TextOnlyText}, m.replies["tok-s"])
	assert.Empty(t, asker.reqs)
}
