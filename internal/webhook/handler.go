// Package webhook serves the LINE Messaging API callback. Text messages in
// personal chats, and group messages that @-mention the bot, are answered
// through the chat service.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/uni-assistant-go/internal/chat"
	"github.com/garyellow/uni-assistant-go/internal/ctxutil"
	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/ratelimit"
)

// LINE platform limits.
const (
	maxEventsPerWebhook = 100
	maxLoadingSeconds   = 60
)

// Canned replies.
const (
	WelcomeText  = "Hi! I'm the university assistant. Ask me about admissions, departments, fees and campus life, or any academic question you're working on."
	TextOnlyText = "I can only read text messages here. To ask about a document, upload it through the web chat."
	TooLongText  = "That message is too long. Please shorten it and try again."
	EmptyAskText = "Mention me with a question, for example: @assistant When does the fall semester start?"
)

// Asker answers one chat request.
type Asker interface {
	Ask(ctx context.Context, req chat.Request) (chat.Reply, error)
}

// Messenger sends replies through the Messaging API.
type Messenger interface {
	Reply(replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(chatID string, seconds int32) error
}

// Config wires a Handler.
type Config struct {
	ChannelSecret string
	Messenger     Messenger
	Chat          Asker
	ReplyRPS      float64 // Outbound reply pacing; zero disables
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
}

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret string
	messenger     Messenger
	chat          Asker
	replyLimiter  *ratelimit.Limiter
	logger        *logger.Logger
	metrics       *metrics.Metrics
	wg            sync.WaitGroup
}

// NewHandler creates a webhook handler.
func NewHandler(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	h := &Handler{
		channelSecret: cfg.ChannelSecret,
		messenger:     cfg.Messenger,
		chat:          cfg.Chat,
		logger:        log.WithModule("webhook"),
		metrics:       cfg.Metrics,
	}
	if cfg.ReplyRPS > 0 {
		h.replyLimiter = ratelimit.New(cfg.ReplyRPS, cfg.ReplyRPS)
	}
	return h
}

// Handle is the gin handler for POST /callback. LINE expects a 200 before
// the events are answered, so processing continues in the background.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}
	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).Warn("Too many events in webhook batch; truncating")
		events = events[:maxEventsPerWebhook]
	}
	events = append([]webhook.EventInterface(nil), events...)
	ctx := ctxutil.PreserveTracing(c.Request.Context())

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in webhook event processing")
			}
		}()
		for _, event := range events {
			h.processEvent(ctx, event)
		}
	})
}

func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	start := time.Now()
	log := h.logger

	var (
		replyToken string
		messages   []messaging_api.MessageInterface
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		if e.WebhookEventId != "" {
			ctx = ctxutil.WithRequestID(ctx, e.WebhookEventId)
			log = log.WithRequestID(e.WebhookEventId)
		}
		if e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery {
			log = log.WithField("is_redelivery", true)
		}
		replyToken = e.ReplyToken
		messages = h.handleMessage(ctx, e, log)
	case webhook.FollowEvent:
		replyToken = e.ReplyToken
		messages = TextMessages(WelcomeText)
	case webhook.JoinEvent:
		replyToken = e.ReplyToken
		messages = TextMessages(WelcomeText)
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	if len(messages) == 0 || replyToken == "" {
		return
	}
	if h.replyLimiter != nil {
		if !h.replyLimiter.Allow() {
			h.metrics.RecordRateLimiterDrop("line_reply")
			if err := h.replyLimiter.Wait(ctx); err != nil {
				return
			}
		}
	}
	if err := h.messenger.Reply(replyToken, messages); err != nil {
		log.WithError(err).Error("Failed to send reply")
		h.metrics.RecordChat(chat.ChannelLine, "reply_error")
		return
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Event processed")
}

func (h *Handler) handleMessage(ctx context.Context, e webhook.MessageEvent, log *logger.Logger) []messaging_api.MessageInterface {
	personal := isPersonalChat(e.Source)
	text, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		if personal {
			return TextMessages(TextOnlyText)
		}
		return nil
	}

	query := text.Text
	if !personal {
		if !isBotMentioned(text) {
			return nil
		}
		query = removeBotMentions(query, text.Mention)
		if query == "" {
			return TextMessages(EmptyAskText)
		}
	}

	conversation := chatID(e.Source)
	if personal {
		if err := h.messenger.ShowLoading(conversation, maxLoadingSeconds); err != nil {
			log.WithError(err).Debug("Failed to show loading animation")
		}
	}

	reply, err := h.chat.Ask(ctx, chat.Request{
		Channel:   chat.ChannelLine,
		SessionID: conversation,
		UserID:    userID(e.Source),
		Query:     query,
	})
	switch {
	case errors.Is(err, apperrors.ErrRateLimitExceeded):
		return TextMessages(chat.LimitText(err))
	case errors.Is(err, apperrors.ErrInvalidInput):
		return TextMessages(TooLongText)
	case err != nil:
		log.WithError(err).Error("Chat request failed")
		return nil
	}
	return TextMessages(reply.Text)
}

// Shutdown waits for in-flight events or ctx.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
