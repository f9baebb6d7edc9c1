package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShayCichocki/finval/pkg/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(tempDBPath(t), 4)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func sampleReport(id string, started time.Time) *models.ValidationReport {
	results := []models.ValidationResult{
		{
			AgentKind:       models.AgentBalanceSheet,
			AgentLabel:      "Balance Sheet",
			InitialAnalysis: "first pass",
			RefinedAnalysis: "refined: compliant",
			ComplianceScore: 60,
			ProducedAt:      started.Add(time.Second),
		},
		{
			AgentKind:       models.AgentNotes,
			AgentLabel:      "Notes",
			Analysis:        "adequate",
			ComplianceScore: 85,
			ProducedAt:      started.Add(2 * time.Second),
		},
	}
	failures := []models.AgentFailure{
		{
			AgentKind:  models.AgentCashFlow,
			AgentLabel: "Cash Flow",
			Reason:     "anthropic completion failed: boom",
			FailedAt:   started.Add(3 * time.Second),
		},
	}
	return models.NewReport(models.ReportMeta{
		RunID:        id,
		DocumentName: "fy25.pdf",
		StartedAt:    started,
		CompletedAt:  started.Add(4 * time.Second),
	}, results, failures)
}

func TestStore_SaveAndGetReport(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 31, 10, 0, 0, 123, time.UTC)

	want := sampleReport("run-1", started)
	if err := s.SaveReport(ctx, want); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	got, err := s.GetReport(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	if got.DocumentName != "fy25.pdf" {
		t.Errorf("DocumentName = %q", got.DocumentName)
	}
	if got.AggregateScore != want.AggregateScore || got.IssueCount != want.IssueCount {
		t.Errorf("aggregate = (%v, %d), want (%v, %d)", got.AggregateScore, got.IssueCount, want.AggregateScore, want.IssueCount)
	}
	if !got.StartedAt.Equal(started) || !got.CompletedAt.Equal(want.CompletedAt) {
		t.Errorf("times = (%v, %v)", got.StartedAt, got.CompletedAt)
	}
	if len(got.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(got.Results))
	}
	if got.Results[0].AgentKind != models.AgentBalanceSheet || got.Results[1].AgentKind != models.AgentNotes {
		t.Errorf("results out of canonical order: %v, %v", got.Results[0].AgentKind, got.Results[1].AgentKind)
	}
	bs := got.Results[0]
	if bs.InitialAnalysis != "first pass" || bs.RefinedAnalysis != "refined: compliant" || bs.Analysis != "" {
		t.Errorf("balance sheet analyses not preserved: %+v", bs)
	}
	if !bs.ProducedAt.Equal(started.Add(time.Second)) {
		t.Errorf("ProducedAt = %v", bs.ProducedAt)
	}
	if len(got.Failures) != 1 || got.Failures[0].Reason != "anthropic completion failed: boom" {
		t.Errorf("failures = %+v", got.Failures)
	}
}

func TestStore_GetReport_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetReport(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestStore_GetReport_EmptyResults(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	r := models.NewReport(models.ReportMeta{RunID: "empty", StartedAt: time.Now(), CompletedAt: time.Now()}, nil, nil)
	if err := s.SaveReport(ctx, r); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	got, err := s.GetReport(ctx, "empty")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.Results == nil || len(got.Results) != 0 {
		t.Errorf("Results = %#v, want empty non-nil slice", got.Results)
	}
	if got.Failures != nil {
		t.Errorf("Failures = %#v, want nil", got.Failures)
	}
}

func TestStore_SaveReport_Replaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC)

	if err := s.SaveReport(ctx, sampleReport("run-1", started)); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	// Warm the cache so the re-save must invalidate it.
	if _, err := s.GetReport(ctx, "run-1"); err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	updated := models.NewReport(models.ReportMeta{RunID: "run-1", StartedAt: started, CompletedAt: started},
		[]models.ValidationResult{{AgentKind: models.AgentProfitLoss, AgentLabel: "Profit & Loss", ComplianceScore: 100}}, nil)
	if err := s.SaveReport(ctx, updated); err != nil {
		t.Fatalf("second SaveReport failed: %v", err)
	}

	got, err := s.GetReport(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].AgentKind != models.AgentProfitLoss {
		t.Errorf("results after replace = %+v", got.Results)
	}
	if len(got.Failures) != 0 {
		t.Errorf("failures after replace = %+v", got.Failures)
	}
}

func TestStore_SaveReport_MissingRunID(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SaveReport(context.Background(), &models.ValidationReport{}); err == nil {
		t.Error("expected error for report without run id")
	}
	if err := s.SaveReport(context.Background(), nil); err == nil {
		t.Error("expected error for nil report")
	}
}

func TestStore_GetReport_UsesCache(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.SaveReport(ctx, sampleReport("run-1", time.Now())); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	first, err := s.GetReport(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	// Remove the row behind the cache's back.
	if _, err := s.DB().Exec(ctx, "DELETE FROM results WHERE run_id = ?", "run-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	second, err := s.GetReport(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if first != second {
		t.Error("expected cached report pointer on second read")
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		if err := s.SaveReport(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveReport(%s) failed: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != "c" || runs[2].ID != "a" {
		t.Errorf("runs not newest first: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	if runs[0].AgentsUsed != 2 || runs[0].FailureCount != 1 {
		t.Errorf("summary counts = (%d, %d), want (2, 1)", runs[0].AgentsUsed, runs[0].FailureCount)
	}
	if runs[0].AggregateScore != 72.5 {
		t.Errorf("AggregateScore = %v, want 72.5", runs[0].AggregateScore)
	}

	limited, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs with limit 2", len(limited))
	}
}

func TestStore_ListRuns_Empty(t *testing.T) {
	s := setupTestStore(t)

	runs, err := s.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("runs = %#v, want empty slice", runs)
	}
}

func TestStore_SetArtifactURL(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.SaveReport(ctx, sampleReport("run-1", time.Now())); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if err := s.SetArtifactURL(ctx, "run-1", "s3://finval-reports/reports/run-1.json"); err != nil {
		t.Fatalf("SetArtifactURL failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if runs[0].ArtifactURL != "s3://finval-reports/reports/run-1.json" {
		t.Errorf("ArtifactURL = %q", runs[0].ArtifactURL)
	}

	if err := s.SetArtifactURL(ctx, "missing", "x"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("SetArtifactURL(missing) = %v, want ErrRunNotFound", err)
	}
}

func TestStore_DeleteRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.SaveReport(ctx, sampleReport("run-1", time.Now())); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if _, err := s.GetReport(ctx, "run-1"); err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	if err := s.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := s.GetReport(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetReport after delete = %v, want ErrRunNotFound", err)
	}

	var orphans int
	if err := s.DB().QueryRow(ctx, "SELECT COUNT(*) FROM results WHERE run_id = ?", "run-1").Scan(&orphans); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("%d orphaned results remain", orphans)
	}

	if err := s.DeleteRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun = %v, want ErrRunNotFound", err)
	}
}

func TestStore_PurgeOlderThan(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.SaveReport(ctx, sampleReport("old", now.Add(-48*time.Hour))); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if err := s.SaveReport(ctx, sampleReport("new", now.Add(-time.Minute))); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	purged, err := s.PurgeOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "new" {
		t.Errorf("remaining runs = %+v", runs)
	}

	var orphans int
	if err := s.DB().QueryRow(ctx, "SELECT COUNT(*) FROM failures WHERE run_id = ?", "old").Scan(&orphans); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if orphans != 0 {
		t.Errorf("%d orphaned failures remain", orphans)
	}
}
