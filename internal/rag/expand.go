package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/garyellow/uni-assistant-go/internal/genai"
)

// listMarker matches leading numbering or bullets such as "1.", "2)", "-", "*".
var listMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// MultiQueryPrompt asks for paraphrases of question, one per line.
func MultiQueryPrompt(question string, n int) string {
	return fmt.Sprintf(`Generate %d different versions of the given question to improve retrieval of relevant documents.
Create variations that might match different ways the information could be stored in a university knowledge base.
Consider different phrasings, more specific and more general versions, different aspects of the topic, and different terminology for the same concepts.

Original question: %s

Provide exactly %d alternative questions, each on a new line, without numbering or explanation:`, n, question, n)
}

// Expander produces paraphrased query variants with one generation call.
type Expander struct {
	gen  genai.Generator
	opts genai.Options
	n    int
}

// NewExpander creates an expander producing up to n variants.
func NewExpander(gen genai.Generator, opts genai.Options, n int) *Expander {
	return &Expander{gen: gen, opts: opts, n: n}
}

// Expand returns the paraphrases of query. The raw output is parsed
// as is, so a reasoning section is removed here rather than trusted away.
func (e *Expander) Expand(ctx context.Context, query string) ([]string, error) {
	if e == nil || e.gen == nil || e.n <= 0 {
		return nil, nil
	}
	out, err := e.gen.Generate(ctx, genai.Request{
		Prompt:  MultiQueryPrompt(query, e.n),
		Options: e.opts,
	})
	if err != nil {
		return nil, fmt.Errorf("query expansion: %w", err)
	}
	return ParseVariants(out, query, e.n), nil
}

// ParseVariants splits generated text into at most n unique variants,
// dropping blanks, list markers, reasoning and the original query.
func ParseVariants(text, original string, n int) []string {
	text = genai.StripReasoning(text)
	seen := map[string]struct{}{strings.ToLower(strings.TrimSpace(original)): {}}

	var variants []string
	for line := range strings.Lines(text) {
		v := strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		v = strings.Trim(v, `"'`)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, v)
		if len(variants) == n {
			break
		}
	}
	return variants
}
