// Package rag provides Retrieval-Augmented Generation functionality:
// the context types every provider returns, the university knowledge
// base with multi-query expansion, and its vector and keyword stores.
package rag

import "fmt"

// Status is the severity of a context lookup.
type Status int

const (
	// StatusOK means the blob holds real context (possibly empty).
	StatusOK Status = iota
	// StatusDegraded means the blob holds an explanatory placeholder and
	// the pipeline should still proceed.
	StatusDegraded
	// StatusFatal means no answer can be produced; Reason is shown as is.
	StatusFatal
)

// String returns the metrics label of the status.
func (s Status) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusFatal:
		return "fatal"
	default:
		return "ok"
	}
}

// Passage is one unit of retrieved context.
type Passage struct {
	Source string
	Text   string
	Score  *float64 // nil when the backend reports no relevance score
}

// Blob is the ordered context handed to the prompt assembler.
type Blob []Passage

// Outcome is the result of a context provider.
type Outcome struct {
	Status Status
	Blob   Blob
	Reason string
}

// OK wraps a successful blob.
func OK(blob Blob) Outcome {
	return Outcome{Status: StatusOK, Blob: blob}
}

// Degraded wraps a placeholder blob with the underlying reason.
func Degraded(reason string, passages ...Passage) Outcome {
	return Outcome{Status: StatusDegraded, Blob: Blob(passages), Reason: reason}
}

// Fatal reports a failure with a user-facing reason.
func Fatal(reason string) Outcome {
	return Outcome{Status: StatusFatal, Reason: reason}
}

// ScorePtr returns a pointer to s.
func ScorePtr(s float64) *float64 {
	return &s
}

// String renders the passage for logs.
func (p Passage) String() string {
	if p.Score != nil {
		return fmt.Sprintf("%s (%.3f)", p.Source, *p.Score)
	}
	return p.Source
}
