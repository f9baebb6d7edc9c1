// Package extract turns uploaded statement files into plain text for the
// validation agents.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// PreviewLength is the number of characters shown by a document preview.
const PreviewLength = 1000

// ErrUnsupportedFormat is returned for file types the extractor cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrNoText is returned when a document contains no extractable text.
var ErrNoText = errors.New("document contains no extractable text")

// Extractor converts raw document bytes to text.
type Extractor interface {
	Extract(name string, data []byte) (string, error)
}

// ExtractionError reports a document that could not be converted to text.
type ExtractionError struct {
	Name  string
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Name, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// FileExtractor reads PDF, plain text and markdown documents, chosen by
// file extension.
type FileExtractor struct{}

// Extract implements Extractor.
func (FileExtractor) Extract(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			return "", &ExtractionError{Name: name, Cause: err}
		}
		if strings.TrimSpace(text) == "" {
			return "", &ExtractionError{Name: name, Cause: ErrNoText}
		}
		return text, nil
	case ".txt", ".text", ".md", ".markdown":
		if !utf8.Valid(data) {
			return "", &ExtractionError{Name: name, Cause: errors.New("text is not valid UTF-8")}
		}
		return string(data), nil
	default:
		return "", &ExtractionError{Name: name, Cause: ErrUnsupportedFormat}
	}
}

// pdfText concatenates the text of every page, one page per line block.
func pdfText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	fonts := make(map[string]*pdf.Font)
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := p.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := p.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// File reads path and extracts its text with ex.
func File(ex Extractor, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Name: path, Cause: err}
	}
	return ex.Extract(path, data)
}

// Reader reads r fully and extracts its text with ex. limit bounds the number
// of bytes read; 0 means no limit.
func Reader(ex Extractor, name string, r io.Reader, limit int64) (string, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &ExtractionError{Name: name, Cause: err}
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", &ExtractionError{Name: name, Cause: fmt.Errorf("document exceeds %d bytes", limit)}
	}
	return ex.Extract(name, data)
}

// Preview returns the first n characters of text, marking truncation with "...".
func Preview(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
