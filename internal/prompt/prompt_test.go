package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyellow/uni-assistant-go/internal/rag"
)

func TestAssemble(t *testing.T) {
	t.Parallel()

	blob := rag.Blob{
		{Source: "https://a.example/fees", Text: "Tuition is 50,000 per semester."},
		{Source: "https://b.example/dates", Text: "Admissions close in August."},
	}

	tests := []struct {
		name     string
		kind     Kind
		contains []string
		excludes []string
	}{
		{
			name:     "university free text",
			kind:     KindUniversity,
			contains: []string{"CONTEXT INFORMATION:\nTuition is 50,000 per semester.\n\nAdmissions close in August.", "STUDENT QUESTION:\nwhat are the fees?"},
			excludes: []string{"[1]", "https://a.example/fees"},
		},
		{
			name:     "web numbered with sources",
			kind:     KindWeb,
			contains: []string{"SEARCH RESULTS:", "[1] Source: https://a.example/fees\nTuition", "[2] Source: https://b.example/dates", "USER QUESTION:"},
		},
		{
			name:     "document numbered",
			kind:     KindDocument,
			contains: []string{"DOCUMENT CONTENT:", "[1] Document: https://a.example/fees", "[2] Document:"},
		},
		{
			name:     "tutor has no context",
			kind:     KindTutor,
			contains: []string{"STUDENT QUESTION:\nwhat are the fees?"},
			excludes: []string{"Tuition", "CONTEXT", "SEARCH RESULTS", "DOCUMENT CONTENT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Assemble(tt.kind, blob, "what are the fees?")
			assert.NotEmpty(t, got.System)
			for _, c := range tt.contains {
				assert.Contains(t, got.User, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, got.User, e)
			}
		})
	}
}

func TestAssemble_SystemFraming(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Assemble(KindWeb, nil, "q").System, "[Source: X]")
	assert.Contains(t, Assemble(KindUniversity, nil, "q").System, "ONLY information from the provided context")
	assert.Contains(t, Assemble(KindTutor, nil, "q").System, "professor")
	assert.Contains(t, Assemble(KindDocument, nil, "q").System, "documents")
}

func TestAssemble_NoLengthCheck(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 100000)
	got := Assemble(KindDocument, rag.Blob{{Source: "big.txt", Text: long}}, "q")
	assert.Contains(t, got.User, long)
}

func TestKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "university", KindUniversity.String())
	assert.Equal(t, "web", KindWeb.String())
	assert.Equal(t, "document", KindDocument.String())
	assert.Equal(t, "tutor", KindTutor.String())
}
