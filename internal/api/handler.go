// Package api serves the JSON chat endpoint used by the web client.
package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/uni-assistant-go/internal/chat"
	"github.com/garyellow/uni-assistant-go/internal/document"
	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
	"github.com/garyellow/uni-assistant-go/internal/logger"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

// Upload defaults.
const (
	DefaultMaxFiles     = 10
	DefaultMaxFileBytes = 20 << 20

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Asker answers one chat request.
type Asker interface {
	Ask(ctx context.Context, req chat.Request) (chat.Reply, error)
}

// HistoryStore lists logged exchanges of a session.
type HistoryStore interface {
	RecentChatLogs(ctx context.Context, sessionID string, limit int) ([]storage.ChatLog, error)
}

// Config wires a Handler.
type Config struct {
	Chat         Asker
	History      HistoryStore // Optional; enables the history route
	MaxFiles     int
	MaxFileBytes int64
	TempDir      string // Upload staging; defaults to os.TempDir()
	Logger       *logger.Logger
}

// Handler serves the chat API.
type Handler struct {
	chat         Asker
	history      HistoryStore
	maxFiles     int
	maxFileBytes int64
	tempDir      string
	logger       *logger.Logger
}

// ChatRequest is the JSON body (or multipart fields) of a chat call.
type ChatRequest struct {
	Query     string `json:"query" form:"query"`
	SessionID string `json:"session_id" form:"session_id"`
}

// ChatResponse is returned for every answered request, including
// degraded and timed-out ones.
type ChatResponse struct {
	RequestID  string   `json:"request_id"`
	Answer     string   `json:"answer"`
	Mode       string   `json:"mode"`
	Status     string   `json:"status"`
	Trace      []string `json:"trace"`
	DurationMs int64    `json:"duration_ms"`
}

// ErrorResponse carries a user-facing error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates a handler.
func NewHandler(cfg Config) *Handler {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	return &Handler{
		chat:         cfg.Chat,
		history:      cfg.History,
		maxFiles:     cfg.MaxFiles,
		maxFileBytes: cfg.MaxFileBytes,
		tempDir:      cfg.TempDir,
		logger:       log.WithModule("api"),
	}
}

// Register mounts the chat route.
func (h *Handler) Register(r gin.IRoutes, middleware ...gin.HandlerFunc) {
	r.POST("/api/chat", append(middleware, h.Chat)...)
}

// RegisterHistory mounts GET /api/chat/history when a history store is
// configured. Callers are expected to guard it with auth middleware.
func (h *Handler) RegisterHistory(r gin.IRoutes, middleware ...gin.HandlerFunc) {
	if h.history == nil {
		return
	}
	r.GET("/api/chat/history", append(middleware, h.History)...)
}

// HistoryEntry is one logged exchange.
type HistoryEntry struct {
	RequestID  string    `json:"request_id"`
	Channel    string    `json:"channel"`
	Query      string    `json:"query"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	Answer     string    `json:"answer"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// History lists the newest exchanges of session_id (default: the caller's
// IP), newest first.
func (h *Handler) History(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = c.ClientIP()
	}
	limit := defaultHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.fail(c, http.StatusBadRequest, "limit must be a positive integer.")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	logs, err := h.history.RecentChatLogs(c.Request.Context(), sessionID, limit)
	if err != nil {
		h.logger.WithError(err).ErrorContext(c.Request.Context(), "History lookup failed")
		h.fail(c, http.StatusInternalServerError, "Internal error.")
		return
	}

	entries := make([]HistoryEntry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, HistoryEntry{
			RequestID:  l.RequestID,
			Channel:    l.Channel,
			Query:      l.Query,
			Mode:       l.Label,
			Status:     l.Status,
			Answer:     l.Answer,
			DurationMs: l.Duration.Milliseconds(),
			CreatedAt:  l.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "entries": entries})
}

// Chat answers a JSON or multipart chat request. Uploaded files are staged
// in a private temp directory that is removed before returning.
func (h *Handler) Chat(c *gin.Context) {
	var (
		req   ChatRequest
		files []document.File
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			h.fail(c, http.StatusBadRequest, "Invalid form data.")
			return
		}
		dir, staged, herr := h.stage(c)
		if dir != "" {
			defer func() { _ = os.RemoveAll(dir) }()
		}
		if herr != nil {
			h.fail(c, herr.status, herr.msg)
			return
		}
		files = staged
	} else if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "Request body must be JSON with a \"query\" field.")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = c.ClientIP()
	}

	reply, err := h.chat.Ask(c.Request.Context(), chat.Request{
		Channel:   chat.ChannelAPI,
		SessionID: sessionID,
		UserID:    c.ClientIP(),
		Query:     req.Query,
		Files:     files,
	})
	switch {
	case errors.Is(err, apperrors.ErrRateLimitExceeded):
		c.Header("Retry-After", "5")
		h.fail(c, http.StatusTooManyRequests, chat.LimitText(err))
		return
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.WithError(err).ErrorContext(c.Request.Context(), "Chat request failed")
		h.fail(c, http.StatusInternalServerError, "Internal error.")
		return
	}

	trace := reply.Trace
	if trace == nil {
		trace = []string{}
	}
	c.JSON(http.StatusOK, ChatResponse{
		RequestID:  reply.RequestID,
		Answer:     reply.Text,
		Mode:       reply.Mode,
		Status:     string(reply.Status),
		Trace:      trace,
		DurationMs: reply.Duration.Milliseconds(),
	})
}

// uploadError is a rejected upload with its HTTP status.
type uploadError struct {
	status int
	msg    string
}

// stage saves uploads under a fresh temp dir. The returned dir must be
// removed by the caller even when an error is returned.
func (h *Handler) stage(c *gin.Context) (string, []document.File, *uploadError) {
	form, err := c.MultipartForm()
	if err != nil {
		return "", nil, &uploadError{http.StatusBadRequest, "Invalid multipart body."}
	}
	headers := append(form.File["files"], form.File["files[]"]...)
	if len(headers) == 0 {
		return "", nil, nil
	}
	if len(headers) > h.maxFiles {
		return "", nil, &uploadError{http.StatusBadRequest,
			fmt.Sprintf("Too many files: %d uploaded, the limit is %d.", len(headers), h.maxFiles)}
	}

	dir, err := os.MkdirTemp(h.tempDir, "upload-*")
	if err != nil {
		return "", nil, &uploadError{http.StatusInternalServerError, "Could not stage uploads."}
	}

	files := make([]document.File, 0, len(headers))
	for i, fh := range headers {
		name := safeName(fh)
		// Unsupported types are never written; the loader rejects them by name.
		if !document.Supported(filepath.Ext(name)) {
			files = append(files, document.File{Name: name})
			continue
		}
		if fh.Size > h.maxFileBytes {
			return dir, nil, &uploadError{http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File %s is larger than %s.", name, sizeLabel(h.maxFileBytes))}
		}
		dst := filepath.Join(dir, fmt.Sprintf("%02d_%s", i, name))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			return dir, nil, &uploadError{http.StatusInternalServerError, fmt.Sprintf("Could not save %s.", name)}
		}
		files = append(files, document.File{Path: dst, Name: name})
	}
	return dir, files, nil
}

func safeName(fh *multipart.FileHeader) string {
	name := filepath.Base(strings.ReplaceAll(fh.Filename, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}

func sizeLabel(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%d MiB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

func (h *Handler) fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}
