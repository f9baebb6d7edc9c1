// Package report exports validation reports and renders them for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/finval/pkg/models"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Write encodes r to w in format f.
func Write(w io.Writer, r *models.ValidationReport, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}
		return nil
	}
}

// Read decodes a report previously produced by Write.
func Read(rd io.Reader, f Format) (*models.ValidationReport, error) {
	r := &models.ValidationReport{}
	switch f {
	case FormatYAML:
		if err := yaml.NewDecoder(rd).Decode(r); err != nil {
			return nil, fmt.Errorf("decode yaml report: %w", err)
		}
	default:
		if err := json.NewDecoder(rd).Decode(r); err != nil {
			return nil, fmt.Errorf("decode json report: %w", err)
		}
	}
	if r.Results == nil {
		r.Results = []models.ValidationResult{}
	}
	return r, nil
}

// DefaultFileName returns validation_report_YYYYMMDD_HHMMSS with the
// format's extension.
func DefaultFileName(t time.Time, f Format) string {
	return fmt.Sprintf("validation_report_%s.%s", t.Format("20060102_150405"), f)
}

// SaveFile writes r into dir under DefaultFileName and returns the path.
func SaveFile(dir string, r *models.ValidationReport, f Format, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(dir, DefaultFileName(now, f))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer file.Close()

	if err := Write(file, r, f); err != nil {
		return "", err
	}
	return path, file.Close()
}

// LoadFile reads a report, choosing the format from the file extension.
func LoadFile(path string) (*models.ValidationReport, error) {
	f := FormatJSON
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		f = FormatYAML
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(file, f)
}
