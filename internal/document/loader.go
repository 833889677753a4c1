// Package document turns user-uploaded files into context for
// document-mode answers.
package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/garyellow/uni-assistant-go/internal/rag"
)

const (
	// TruncationMarker is appended when the context exceeds the cap.
	TruncationMarker = "..."

	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
	defaultMaxChars     = 32000
)

// File is one uploaded document.
type File struct {
	Path string // Location on disk
	Name string // Original file name shown to the user
}

// DisplayName returns Name, or the base of Path when Name is empty.
func (f File) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return filepath.Base(f.Path)
}

// Config tunes loading.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	MaxChars     int   // Cap in characters before TruncationMarker
	MaxFileBytes int64 // Zero disables the size check
}

// Loader extracts, chunks and caps uploaded documents.
type Loader struct {
	cfg Config
}

// NewLoader creates a loader, filling zero values with defaults.
func NewLoader(cfg Config) *Loader {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = min(defaultChunkOverlap, cfg.ChunkSize/10)
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	return &Loader{cfg: cfg}
}

// Load extracts every file in order. The first unreadable or unsupported
// file aborts the whole set with a Fatal outcome naming it. The
// successful blob is one passage holding the consolidated text.
func (l *Loader) Load(ctx context.Context, files []File) rag.Outcome {
	var texts []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rag.Fatal(err.Error())
		}
		text, err := l.extract(f)
		if err != nil {
			return rag.Fatal(fmt.Sprintf("Error processing file: %s. %s", f.DisplayName(), err))
		}
		texts = append(texts, text)
	}

	chunks, err := l.split(texts)
	if err != nil {
		return rag.Fatal(fmt.Sprintf("Error processing files: %s", err))
	}

	consolidated := Truncate(strings.Join(chunks, "\n\n"), l.cfg.MaxChars)
	return rag.OK(rag.Blob{{Source: strings.Join(Names(files), ", "), Text: consolidated}})
}

func (l *Loader) extract(f File) (string, error) {
	ext := strings.ToLower(filepath.Ext(f.DisplayName()))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(f.Path))
	}
	fn, ok := extractors[ext]
	if !ok {
		return "", &UnsupportedError{Ext: ext}
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if l.cfg.MaxFileBytes > 0 && info.Size() > l.cfg.MaxFileBytes {
		return "", fmt.Errorf("file is larger than %d bytes", l.cfg.MaxFileBytes)
	}

	text, err := fn(f.Path)
	if err != nil {
		var unsupported *UnsupportedError
		if errors.As(err, &unsupported) {
			return "", err
		}
		return "", fmt.Errorf("%s: %w", ext, err)
	}
	return clean(text), nil
}

func (l *Loader) split(texts []string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(l.cfg.ChunkSize),
		textsplitter.WithChunkOverlap(l.cfg.ChunkOverlap),
	)

	var chunks []string
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		parts, err := splitter.SplitText(t)
		if err != nil {
			return nil, fmt.Errorf("split text: %w", err)
		}
		chunks = append(chunks, parts...)
	}
	return chunks, nil
}

// Truncate cuts s to maxChars characters and appends TruncationMarker when
// s is longer. Shorter input is returned unchanged.
func Truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + TruncationMarker
}

// Names returns the display names of files in order.
func Names(files []File) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.DisplayName()
	}
	return names
}

// Footer names the analysed documents, appended after the answer.
func Footer(files []File) string {
	return fmt.Sprintf("\n\n_Analysis based on %d document(s): %s_", len(files), strings.Join(Names(files), ", "))
}
