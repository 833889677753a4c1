package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var labels = []Label{General, University, WebSearch}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Label
	}{
		{"university", University},
		{"  University\n", University},
		{`"university"`, University},
		{"university.", University},
		{"web search", WebSearch},
		{"Web Search", WebSearch},
		{"web_search", WebSearch},
		{"websearch", WebSearch},
		{"general", General},
		{"", General},
		{"I think university", General},
		{"banana", General},
		{"<think>", General},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalize_Total(t *testing.T) {
	t.Parallel()

	inputs := []string{"", " ", "\x00", "🎓", "UNIVERSITY!!!", "web", "search", "general knowledge"}
	for _, in := range inputs {
		got := Normalize(in)
		assert.Contains(t, labels, got, "Normalize(%q) returned a label outside the enum", in)
	}
}

func TestLabel_StringsDistinct(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, l := range labels {
		assert.False(t, seen[l.String()], "duplicate name %q", l.String())
		seen[l.String()] = true
		assert.Equal(t, l, Normalize(l.String()))
	}
}
