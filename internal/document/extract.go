package document

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/garyellow/uni-assistant-go/internal/errors"
)

// extractor pulls plain text out of one file.
type extractor func(path string) (string, error)

// extractors maps a lower-case extension to its extractor.
var extractors = map[string]extractor{
	".pdf":  extractPDF,
	".txt":  extractText,
	".csv":  extractCSV,
	".docx": extractDOCX,
}

// Supported reports whether ext (with dot, any case) has an extractor.
func Supported(ext string) bool {
	_, ok := extractors[strings.ToLower(ext)]
	return ok
}

// UnsupportedError names an extension without an extractor.
type UnsupportedError struct {
	Ext string
}

func (e *UnsupportedError) Error() string {
	return "Unsupported file type: " + e.Ext
}

// Is matches apperrors.ErrUnsupportedFileType.
func (e *UnsupportedError) Is(target error) bool {
	return target == apperrors.ErrUnsupportedFileType
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// requireText rejects binary content behind a text extension.
func requireText(path, ext string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect content type: %w", err)
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return &UnsupportedError{Ext: ext}
}

// readText reads a text file as UTF-8, transcoding from the detected
// charset when the bytes are not valid UTF-8.
func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
	}
	enc, name, _ := charset.DetermineEncoding(data, "text/plain")
	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("transcode from %s: %w", name, err)
	}
	return strings.ToValidUTF8(string(decoded), "\uFFFD"), nil
}

func extractText(path string) (string, error) {
	if err := requireText(path, ".txt"); err != nil {
		return "", err
	}
	return readText(path)
}

// extractCSV renders each record as one line of "column: value" pairs,
// using the first record as the header.
func extractCSV(path string) (string, error) {
	if err := requireText(path, ".csv"); err != nil {
		return "", err
	}
	text, err := readText(path)
	if err != nil {
		return "", err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("parse csv header: %w", err)
	}

	var b strings.Builder
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse csv: %w", err)
		}
		for i, v := range record {
			col := fmt.Sprintf("column_%d", i+1)
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				col = strings.TrimSpace(header[i])
			}
			b.WriteString(col)
			b.WriteString(": ")
			b.WriteString(strings.TrimSpace(v))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// extractDOCX reads paragraphs from word/document.xml.
func extractDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer func() { _ = rc.Close() }()
		return wordprocessingText(rc)
	}
	return "", errors.New("docx has no word/document.xml")
}

func wordprocessingText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// clean normalizes extracted text to NFC with Unix line endings.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}
