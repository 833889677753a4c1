package crawler

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/garyellow/uni-assistant-go/internal/storage"
)

var separator = strings.Repeat("=", 80)

// FormatPage renders a page as a block of the flat-file corpus.
func FormatPage(p storage.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== URL: %s ===\n", p.URL)
	if p.Title != "" {
		fmt.Fprintf(&b, "\n=== Page Title ===\n%s\n", p.Title)
	}
	if p.Content != "" {
		b.WriteString("\n")
		b.WriteString(p.Content)
	}
	return b.String()
}

// Export writes pages as one flat text file, each block framed by a line
// of 80 '=' characters.
func Export(w io.Writer, pages []storage.Page) error {
	bw := bufio.NewWriter(w)
	for _, p := range pages {
		if _, err := fmt.Fprintf(bw, "\n%s\n%s\n%s\n", separator, FormatPage(p), separator); err != nil {
			return fmt.Errorf("export %s: %w", p.URL, err)
		}
	}
	return bw.Flush()
}
