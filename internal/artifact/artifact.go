// Package artifact uploads exported validation reports to object storage.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ShayCichocki/finval/internal/report"
	"github.com/ShayCichocki/finval/pkg/models"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store holds exported report files keyed by run.
type Store interface {
	// Put uploads content and returns the object's location.
	Put(ctx context.Context, runID, name, contentType string, content []byte) (string, error)
	Get(ctx context.Context, runID, name string) ([]byte, error)
}

// objectKey joins prefix, runID and name into a bucket key.
func objectKey(prefix, runID, name string) (string, error) {
	runID = strings.TrimSpace(runID)
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if runID == "" {
		return "", fmt.Errorf("run_id is required")
	}
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if strings.Contains(runID, "/") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid object name %q/%q", runID, name)
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return runID + "/" + name, nil
	}
	return path.Join(prefix, runID, name), nil
}

// UploadReport encodes r in format f and stores it under the run's ID.
func UploadReport(ctx context.Context, s Store, r *models.ValidationReport, f report.Format) (string, error) {
	var buf bytes.Buffer
	if err := report.Write(&buf, r, f); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	name := report.DefaultFileName(r.CompletedAt, f)
	return s.Put(ctx, r.RunID, name, f.ContentType(), buf.Bytes())
}
