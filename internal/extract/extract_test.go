package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileExtractor_PDF(t *testing.T) {
	text, err := File(FileExtractor{}, filepath.Join("testdata", "balance_sheet.pdf"))
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if !strings.Contains(text, "Balance Sheet as at 31 March 2025") {
		t.Errorf("text = %q, want the balance sheet heading", text)
	}
	if !strings.Contains(text, "Share capital") {
		t.Errorf("text = %q, want the share capital line", text)
	}
}

func TestFileExtractor_Text(t *testing.T) {
	text, err := File(FileExtractor{}, filepath.Join("testdata", "profit_loss.txt"))
	if err != nil {
		t.Fatalf("File failed: %v", err)
	}
	if !strings.HasPrefix(text, "STATEMENT OF PROFIT AND LOSS") {
		t.Errorf("text = %q", text)
	}
}

func TestFileExtractor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"unsupported", "statement.xlsx", []byte("PK"), ErrUnsupportedFormat},
		{"garbage pdf", "broken.pdf", []byte("not a pdf at all"), nil},
		{"invalid utf8", "notes.txt", []byte{0xff, 0xfe, 0xfd}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FileExtractor{}.Extract(tt.file, tt.data)
			var ee *ExtractionError
			if !errors.As(err, &ee) {
				t.Fatalf("err = %v, want *ExtractionError", err)
			}
			if ee.Name != tt.file {
				t.Errorf("Name = %q, want %q", ee.Name, tt.file)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileExtractor_EmptyTextIsValid(t *testing.T) {
	text, err := FileExtractor{}.Extract("empty.md", nil)
	if err != nil {
		t.Fatalf("empty text documents should extract: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q", text)
	}
}

func TestFile_Missing(t *testing.T) {
	_, err := File(FileExtractor{}, filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestReader_Limit(t *testing.T) {
	_, err := Reader(FileExtractor{}, "big.txt", strings.NewReader(strings.Repeat("a", 11)), 10)
	if err == nil {
		t.Fatal("expected size limit error")
	}

	text, err := Reader(FileExtractor{}, "ok.txt", strings.NewReader("0123456789"), 10)
	if err != nil || text != "0123456789" {
		t.Errorf("text = %q err = %v", text, err)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("Preview = %q", got)
	}
	if got := Preview("Schedule III", 8); got != "Schedule..." {
		t.Errorf("Preview = %q", got)
	}
	if got := Preview("₹1,00,000 crore", 2); got != "₹1..." {
		t.Errorf("Preview should cut on runes, got %q", got)
	}
}
