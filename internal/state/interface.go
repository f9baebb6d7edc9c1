package state

import (
	"context"
	"io"
	"time"

	"github.com/ShayCichocki/finval/pkg/models"
)

// ReportWriter persists finished validation reports.
type ReportWriter interface {
	SaveReport(ctx context.Context, r *models.ValidationReport) error
	SetArtifactURL(ctx context.Context, runID, url string) error
}

// ReportReader loads stored run history.
type ReportReader interface {
	GetReport(ctx context.Context, runID string) (*models.ValidationReport, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// RunStore is the full run-history backend used by the CLI and server.
type RunStore interface {
	io.Closer
	ReportWriter
	ReportReader
	DeleteRun(ctx context.Context, runID string) error
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Compile-time verification that the concrete types implement the interfaces.
var (
	_ RunStore     = (*Store)(nil)
	_ ReportWriter = (*Store)(nil)
	_ ReportReader = (*Store)(nil)
	_ Migrator     = (*DB)(nil)
)
