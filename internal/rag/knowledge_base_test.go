package rag

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/uni-assistant-go/internal/genai"
)

type stubGenerator struct {
	out  string
	err  error
	mu   sync.Mutex
	reqs []genai.Request
}

func (g *stubGenerator) Generate(_ context.Context, req genai.Request) (string, error) {
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	g.mu.Unlock()
	return g.out, g.err
}

func (g *stubGenerator) Provider() genai.Provider { return genai.ProviderGroq }

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	byQuery map[string][]Passage
	err     error
}

func (s *stubSearcher) Search(_ context.Context, query string, k int, _ float64) ([]Passage, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	found := s.byQuery[query]
	if len(found) > k {
		found = found[:k]
	}
	return found, nil
}

func TestParseVariants(t *testing.T) {
	t.Parallel()

	text := "<think>let me think</think>\n1. How do I apply?\n2) What documents are needed to apply?\n\n- how do i apply?\n* \"Admission criteria\"\nWhat are the admission requirements?\nExtra one\nExtra two\nExtra three"
	got := ParseVariants(text, "What are the admission requirements?", 5)
	assert.Equal(t, []string{
		"How do I apply?",
		"What documents are needed to apply?",
		"Admission criteria",
		"Extra one",
		"Extra two",
	}, got)
}

func TestParseVariants_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ParseVariants("  \n\n", "q", 5))
}

func TestExpander_NilIsNoop(t *testing.T) {
	t.Parallel()

	var e *Expander
	got, err := e.Expand(context.Background(), "q")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKnowledgeBase_Fetch(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{out: "How to get admission?\nEntry requirements"}
	store := &stubSearcher{byQuery: map[string][]Passage{
		"What are the admission requirements?": {p("Matric with 60% marks.", 0.8)},
		"How to get admission?":                {p("Matric with 60% marks.", 0.7), p("Entry test in July.", 0.6)},
		"Entry requirements":                   {},
	}}
	kb := NewKnowledgeBase(store, NewExpander(gen, genai.Options{Model: "m", Role: genai.RoleExpand}, 5),
		KnowledgeBaseConfig{TopK: 3, ScoreThreshold: 0.4}, nil)

	out := kb.Fetch(context.Background(), "What are the admission requirements?")
	require.Equal(t, StatusOK, out.Status)
	require.Len(t, out.Blob, 2)
	assert.Equal(t, "Matric with 60% marks.", out.Blob[0].Text)
	assert.ElementsMatch(t, []string{"What are the admission requirements?", "How to get admission?", "Entry requirements"}, store.queries)

	require.Len(t, gen.reqs, 1)
	assert.Equal(t, genai.RoleExpand, gen.reqs[0].Options.Role)
	assert.Contains(t, gen.reqs[0].Prompt, "Original question: What are the admission requirements?")
}

func TestKnowledgeBase_FetchErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		gen   *stubGenerator
		store *stubSearcher
	}{
		{"store error", &stubGenerator{out: "v1"}, &stubSearcher{err: errors.New("pinecone unavailable")}},
		{"expansion error", &stubGenerator{err: errors.New("rate limited")}, &stubSearcher{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kb := NewKnowledgeBase(tt.store, NewExpander(tt.gen, genai.Options{}, 5), KnowledgeBaseConfig{}, nil)

			out := kb.Fetch(context.Background(), "q")
			assert.Equal(t, StatusDegraded, out.Status)
			require.Len(t, out.Blob, 1, "exactly one error passage")
			assert.Equal(t, KBErrorText, out.Blob[0].Text)
			assert.NotEmpty(t, out.Reason)
		})
	}
}

func TestKnowledgeBase_NotConfigured(t *testing.T) {
	t.Parallel()

	kb := NewKnowledgeBase(nil, nil, KnowledgeBaseConfig{}, nil)
	out := kb.Fetch(context.Background(), "q")
	assert.Equal(t, StatusDegraded, out.Status)
	require.Len(t, out.Blob, 1)
	assert.Equal(t, KBNotConfiguredText, out.Blob[0].Text)
	assert.True(t, NotConfigured(out))
	assert.False(t, NotConfigured(Degraded("timeout", Passage{Text: KBErrorText})))
}

func TestHybridStore(t *testing.T) {
	t.Parallel()

	vector := &stubSearcher{byQuery: map[string][]Passage{"q": {p("v1", 0.9), p("shared", 0.8)}}}
	keyword := &stubSearcher{byQuery: map[string][]Passage{"q": {p("shared", 1), p("k1", 0.5)}}}

	got, err := NewHybridStore(vector, keyword).Search(context.Background(), "q", 3, 0.4)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "shared", got[0].Text)

	only, err := NewHybridStore(nil, keyword).Search(context.Background(), "q", 3, 0.4)
	require.NoError(t, err)
	assert.Len(t, only, 2)

	none, err := NewHybridStore(nil, nil).Search(context.Background(), "q", 3, 0.4)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = NewHybridStore(&stubSearcher{err: errors.New("down")}, keyword).Search(context.Background(), "q", 3, 0.4)
	require.ErrorContains(t, err, "vector search")
}
