// Package genai provides the language-model and embedding backends.
// This file contains error wrapping and coarse classification used for
// metrics labels and logs. Classification never triggers a retry.
package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/openai/openai-go/v3"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
)

// ErrorKind is a coarse failure category.
type ErrorKind string

const (
	KindCanceled  ErrorKind = "canceled"
	KindTimeout   ErrorKind = "timeout"
	KindRateLimit ErrorKind = "rate_limit"
	KindAuth      ErrorKind = "auth"
	KindServer    ErrorKind = "server"
	KindClient    ErrorKind = "client"
	KindEmpty     ErrorKind = "empty"
	KindUnknown   ErrorKind = "unknown"
)

// ErrEmptyCompletion is returned when a backend answers with no text.
var ErrEmptyCompletion = apperrors.ErrEmptyResponse

// LLMError wraps a backend error with the provider and HTTP status.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	Model      string
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Provider))
	if e.Model != "" {
		b.WriteString("/" + e.Model)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.StatusCode > 0 {
		b.WriteString(" (status: " + strconv.Itoa(e.StatusCode) + ")")
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// wrapError attaches provider context and extracts the HTTP status from
// SDK error types when available.
func wrapError(err error, provider Provider, model string) error {
	if err == nil {
		return nil
	}
	return &LLMError{
		Err:        err,
		StatusCode: statusCode(err),
		Provider:   provider,
		Model:      model,
	}
}

func statusCode(err error) int {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}

// ClassifyError maps an error to an ErrorKind.
func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, apperrors.ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrEmptyCompletion):
		return KindEmpty
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "429", "rate limit", "too many requests", "resource_exhausted", "quota"):
		return KindRateLimit
	case containsAny(errStr, "401", "403", "unauthorized", "unauthenticated", "invalid api key", "permission denied"):
		return KindAuth
	case containsAny(errStr, "timeout", "deadline"):
		return KindTimeout
	case containsAny(errStr, "500", "502", "503", "504", "unavailable", "overloaded", "bad gateway"):
		return KindServer
	case containsAny(errStr, "400", "404", "422", "bad request", "not found", "invalid"):
		return KindClient
	default:
		return KindUnknown
	}
}

func classifyStatusCode(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindServer
	case code >= 400:
		return KindClient
	default:
		return KindUnknown
	}
}

// containsAny checks if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
