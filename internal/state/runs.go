package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ShayCichocki/finval/pkg/models"
)

// ErrRunNotFound is returned when a run ID has no stored report.
var ErrRunNotFound = errors.New("run not found")

// DefaultCacheSize is the number of reports kept in memory by GetReport.
const DefaultCacheSize = 64

// RunSummary is one row of run history.
type RunSummary struct {
	ID             string    `json:"id"`
	DocumentName   string    `json:"document_name,omitempty"`
	AggregateScore float64   `json:"aggregate_score"`
	IssueCount     int       `json:"issue_count"`
	AgentsUsed     int       `json:"agents_used"`
	FailureCount   int       `json:"failure_count"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	ArtifactURL    string    `json:"artifact_url,omitempty"`
}

// Store saves and loads validation reports.
type Store struct {
	db    *DB
	cache *lru.Cache[string, *models.ValidationReport]
}

// NewStore wraps db, migrates it and attaches a report cache.
// A cacheSize of zero or less uses DefaultCacheSize.
func NewStore(db *DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if err := db.Migrate(); err != nil {
		return nil, err
	}
	cache, err := lru.New[string, *models.ValidationReport](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}
	return &Store{db: db, cache: cache}, nil
}

// OpenStore opens the SQLite store at path.
func OpenStore(path string, cacheSize int) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(db, cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgresStore opens the PostgreSQL store at dsn.
func OpenPostgresStore(ctx context.Context, dsn string, cacheSize int) (*Store, error) {
	db, err := OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(db, cacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database.
func (s *Store) DB() *DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores r, replacing any previous report with the same run ID.
func (s *Store) SaveReport(ctx context.Context, r *models.ValidationReport) error {
	if r == nil || r.RunID == "" {
		return fmt.Errorf("save report: missing run id")
	}

	err := s.db.Transaction(ctx, func(tx *Tx) error {
		if err := deleteRunRows(ctx, tx, r.RunID); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO runs (id, document_name, aggregate_score, issue_count, agents_used, failure_count, started_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, r.RunID, r.DocumentName, r.AggregateScore, r.IssueCount, len(r.Results), len(r.Failures),
			formatTime(r.StartedAt), formatTime(r.CompletedAt))
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		for _, res := range r.Results {
			_, err := tx.Exec(ctx, `
				INSERT INTO results (run_id, agent, agent_label, analysis, initial_analysis, refined_analysis, compliance_score, produced_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, r.RunID, string(res.AgentKind), res.AgentLabel, res.Analysis, res.InitialAnalysis, res.RefinedAnalysis,
				res.ComplianceScore, formatTime(res.ProducedAt))
			if err != nil {
				return fmt.Errorf("insert result %s: %w", res.AgentKind, err)
			}
		}

		for _, f := range r.Failures {
			_, err := tx.Exec(ctx, `
				INSERT INTO failures (run_id, agent, agent_label, reason, failed_at)
				VALUES (?, ?, ?, ?, ?)
			`, r.RunID, string(f.AgentKind), f.AgentLabel, f.Reason, formatTime(f.FailedAt))
			if err != nil {
				return fmt.Errorf("insert failure %s: %w", f.AgentKind, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.RunID, err)
	}

	s.cache.Remove(r.RunID)
	return nil
}

// SetArtifactURL records where the run's exported report was uploaded.
func (s *Store) SetArtifactURL(ctx context.Context, runID, url string) error {
	res, err := s.db.Exec(ctx, "UPDATE runs SET artifact_url = ? WHERE id = ?", url, runID)
	if err != nil {
		return fmt.Errorf("set artifact url: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set artifact url %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetReport loads the report for runID.
func (s *Store) GetReport(ctx context.Context, runID string) (*models.ValidationReport, error) {
	if cached, ok := s.cache.Get(runID); ok {
		return cached, nil
	}

	r := &models.ValidationReport{RunID: runID}
	var startedAt, completedAt string
	row := s.db.QueryRow(ctx, `
		SELECT document_name, aggregate_score, issue_count, started_at, completed_at
		FROM runs WHERE id = ?
	`, runID)
	err := row.Scan(&r.DocumentName, &r.AggregateScore, &r.IssueCount, &startedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get report %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", runID, err)
	}
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if r.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	if r.Results, err = s.loadResults(ctx, runID); err != nil {
		return nil, err
	}
	if r.Failures, err = s.loadFailures(ctx, runID); err != nil {
		return nil, err
	}

	s.cache.Add(runID, r)
	return r, nil
}

func (s *Store) loadResults(ctx context.Context, runID string) ([]models.ValidationResult, error) {
	rows, err := s.db.Query(ctx, `
		SELECT agent, agent_label, analysis, initial_analysis, refined_analysis, compliance_score, produced_at
		FROM results WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []models.ValidationResult{}
	for rows.Next() {
		var res models.ValidationResult
		var kind, producedAt string
		if err := rows.Scan(&kind, &res.AgentLabel, &res.Analysis, &res.InitialAnalysis, &res.RefinedAnalysis,
			&res.ComplianceScore, &producedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.AgentKind = models.AgentKind(kind)
		if res.ProducedAt, err = parseTime(producedAt); err != nil {
			return nil, fmt.Errorf("parse produced_at: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	sortByKind(results, func(r models.ValidationResult) models.AgentKind { return r.AgentKind })
	return results, nil
}

func (s *Store) loadFailures(ctx context.Context, runID string) ([]models.AgentFailure, error) {
	rows, err := s.db.Query(ctx, `
		SELECT agent, agent_label, reason, failed_at
		FROM failures WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []models.AgentFailure
	for rows.Next() {
		var f models.AgentFailure
		var kind, failedAt string
		if err := rows.Scan(&kind, &f.AgentLabel, &f.Reason, &failedAt); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.AgentKind = models.AgentKind(kind)
		if f.FailedAt, err = parseTime(failedAt); err != nil {
			return nil, fmt.Errorf("parse failed_at: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}

	sortByKind(failures, func(f models.AgentFailure) models.AgentKind { return f.AgentKind })
	return failures, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT id, document_name, aggregate_score, issue_count, agents_used, failure_count,
			started_at, completed_at, artifact_url
		FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var rs RunSummary
		var startedAt, completedAt string
		if err := rows.Scan(&rs.ID, &rs.DocumentName, &rs.AggregateScore, &rs.IssueCount, &rs.AgentsUsed,
			&rs.FailureCount, &startedAt, &completedAt, &rs.ArtifactURL); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if rs.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if rs.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		runs = append(runs, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	var deleted bool
	err := s.db.Transaction(ctx, func(tx *Tx) error {
		if err := deleteChildRows(ctx, tx, "run_id = ?", runID); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, "DELETE FROM runs WHERE id = ?", runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Remove(runID)
	if !deleted {
		return fmt.Errorf("delete run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// PurgeOlderThan deletes runs that started more than age ago and returns how
// many were removed.
func (s *Store) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-age))

	var purged int64
	err := s.db.Transaction(ctx, func(tx *Tx) error {
		if err := deleteChildRows(ctx, tx, "run_id IN (SELECT id FROM runs WHERE started_at < ?)", cutoff); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff)
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		purged, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		s.cache.Purge()
	}
	return purged, nil
}

// deleteRunRows removes a run and its children ahead of a re-save.
func deleteRunRows(ctx context.Context, tx *Tx, runID string) error {
	if err := deleteChildRows(ctx, tx, "run_id = ?", runID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM runs WHERE id = ?", runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// deleteChildRows does not rely on ON DELETE CASCADE; SQLite only honours it
// on connections where foreign_keys is on.
func deleteChildRows(ctx context.Context, tx *Tx, where string, args ...any) error {
	for _, table := range []string{"results", "failures"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE "+where, args...); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

func sortByKind[T any](items []T, kind func(T) models.AgentKind) {
	slices.SortStableFunc(items, func(a, b T) int {
		return kind(a).Order() - kind(b).Order()
	})
}
