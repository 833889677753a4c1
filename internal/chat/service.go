// Package chat is the entry point shared by every chat surface (HTTP API,
// LINE, CLI). It applies per-user rate limiting, runs the pipeline under the
// processing timeout and records the exchange.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/garyellow/uni-assistant-go/internal/ctxutil"
	"github.com/garyellow/uni-assistant-go/internal/document"
	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/pipeline"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

// Channels a request can arrive on.
const (
	ChannelAPI  = "api"
	ChannelLine = "line"
	ChannelCLI  = "cli"
)

// MaxQueryRunes matches the LINE text message limit.
const MaxQueryRunes = 20000

// DefaultFilesQuery stands in for an empty question when files are attached.
const DefaultFilesQuery = "Please summarize these files for me."

// RateLimitedText is shown when a user exceeds their quota.
const RateLimitedText = "You're sending messages too quickly. Please wait a moment and try again."

// DailyLimitText is shown once a user's 24h quota is spent.
const DailyLimitText = "You've reached today's question limit. Please come back tomorrow."

// ErrDailyQuota marks a rejection by the rolling daily quota rather than
// the burst limit.
var ErrDailyQuota = fmt.Errorf("daily quota reached: %w", apperrors.ErrRateLimitExceeded)

// LimitText returns the user-facing text for a rate-limit error.
func LimitText(err error) string {
	if errors.Is(err, ErrDailyQuota) {
		return DailyLimitText
	}
	return RateLimitedText
}

// Answerer runs the routing pipeline.
type Answerer interface {
	Answer(ctx context.Context, query string, files []document.File) pipeline.Answer
}

// LogStore appends chat exchanges.
type LogStore interface {
	AppendChatLog(ctx context.Context, l *storage.ChatLog) error
}

// Limiter gates requests per key.
type Limiter interface {
	Allow(key string) bool
}

// quotaLimiter is implemented by limiters with a daily quota.
type quotaLimiter interface {
	DailyRemaining(key string) int
}

// Request is one question from a user.
type Request struct {
	Channel   string
	SessionID string // Conversation id; LINE chat id or API session
	UserID    string // Rate-limit key; falls back to SessionID
	Query     string
	Files     []document.File
}

// Reply is the answer plus bookkeeping for the caller.
type Reply struct {
	pipeline.Answer
	RequestID string
	Duration  time.Duration
}

// Config wires a Service.
type Config struct {
	Answerer Answerer
	Log      LogStore // Optional
	Limiter  Limiter  // Optional
	Logger   *logger.Logger
	Metrics  *metrics.Metrics
}

// Service answers chat requests.
type Service struct {
	answerer Answerer
	log      LogStore
	limiter  Limiter
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// New creates a Service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	return &Service{
		answerer: cfg.Answerer,
		log:      cfg.Log,
		limiter:  cfg.Limiter,
		logger:   log.WithModule("chat"),
		metrics:  cfg.Metrics,
	}
}

// Ask validates req, checks the rate limit and answers it. Errors wrap
// apperrors.ErrInvalidInput or apperrors.ErrRateLimitExceeded; pipeline
// failures are reported through Reply.Status instead.
func (s *Service) Ask(ctx context.Context, req Request) (Reply, error) {
	channel := req.Channel
	if channel == "" {
		channel = ChannelAPI
	}
	query := strings.TrimSpace(req.Query)
	if query == "" && len(req.Files) > 0 {
		query = DefaultFilesQuery
	}
	if query == "" {
		s.metrics.RecordChat(channel, "invalid")
		return Reply{}, apperrors.NewValidationError("query", "is required")
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryRunes {
		s.metrics.RecordChat(channel, "invalid")
		return Reply{}, apperrors.NewValidationError("query", fmt.Sprintf("has %d characters, limit is %d", n, MaxQueryRunes))
	}

	key := req.UserID
	if key == "" {
		key = req.SessionID
	}
	if s.limiter != nil && !s.limiter.Allow(key) {
		s.metrics.RecordChat(channel, "rate_limited")
		if q, ok := s.limiter.(quotaLimiter); ok && q.DailyRemaining(key) == 0 {
			return Reply{}, ErrDailyQuota
		}
		return Reply{}, apperrors.ErrRateLimitExceeded
	}

	requestID, ok := ctxutil.GetRequestID(ctx)
	if !ok || requestID == "" {
		requestID = uuid.NewString()
		ctx = ctxutil.WithRequestID(ctx, requestID)
	}
	ctx = ctxutil.WithChannel(ctx, channel)
	if req.SessionID != "" {
		ctx = ctxutil.WithSessionID(ctx, req.SessionID)
	}
	if req.UserID != "" {
		ctx = ctxutil.WithUserID(ctx, req.UserID)
	}

	start := time.Now()
	ans := s.answerer.Answer(ctx, query, req.Files)
	reply := Reply{Answer: ans, RequestID: requestID, Duration: time.Since(start)}

	s.metrics.RecordChat(channel, string(ans.Status))
	s.record(ctx, req, query, reply)
	return reply, nil
}

func (s *Service) record(ctx context.Context, req Request, query string, reply Reply) {
	if s.log == nil {
		return
	}
	entry := &storage.ChatLog{
		RequestID: reply.RequestID,
		Channel:   ctxutil.GetChannel(ctx),
		SessionID: req.SessionID,
		Query:     query,
		Label:     reply.Mode,
		Status:    string(reply.Status),
		Answer:    reply.Text,
		Duration:  reply.Duration,
		CreatedAt: time.Now(),
	}
	// The request context may already be past its deadline.
	if err := s.log.AppendChatLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.WithError(err).WarnContext(ctx, "Failed to append chat log")
	}
}
