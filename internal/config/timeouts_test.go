package config

import (
	"testing"
	"time"
)

func TestChatTimeouts(t *testing.T) {
	tests := []struct {
		name     string
		got      time.Duration
		expected time.Duration
	}{
		{"ChatProcessing", ChatProcessing, 60 * time.Second},
		{"HTTPRead", HTTPRead, 30 * time.Second},
		{"HTTPWrite", HTTPWrite, 65 * time.Second},
		{"HTTPIdle", HTTPIdle, 120 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestTimeoutRelationships(t *testing.T) {
	if HTTPWrite <= ChatProcessing {
		t.Errorf("HTTPWrite (%v) must exceed ChatProcessing (%v)", HTTPWrite, ChatProcessing)
	}
	if LLMRequest >= ChatProcessing {
		t.Errorf("LLMRequest (%v) should be below ChatProcessing (%v)", LLMRequest, ChatProcessing)
	}
	if SearchRequest >= ChatProcessing {
		t.Errorf("SearchRequest (%v) should be below ChatProcessing (%v)", SearchRequest, ChatProcessing)
	}
	if GracefulShutdown <= 0 {
		t.Error("GracefulShutdown must be positive")
	}
}
