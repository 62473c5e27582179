package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"risk_framework/internal/project"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func statusRecord(id string, updated string) project.StatusRecord {
	return project.StatusRecord{
		Key:              project.Key{ID: id, Name: "Project " + id},
		Updated:          day(updated),
		ExecutiveSummary: "summary for " + id,
	}
}

func TestUpsertStatusIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := statusRecord("PRJ001", "2024-03-15")

	for i := 0; i < 2; i++ {
		if err := s.UpsertStatus(ctx, &rec, "Executive Summary: summary"); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	snaps, err := s.ProjectSnapshots(ctx)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 row after double upsert, got %d", len(snaps))
	}
	if snaps[0].ExecutiveSummary != "summary for PRJ001" {
		t.Fatalf("unexpected summary: %q", snaps[0].ExecutiveSummary)
	}
}

func TestUpsertStatusRejectsInvalidRecord(t *testing.T) {
	s := openTestStore(t)
	rec := project.StatusRecord{Key: project.Key{ID: "PRJ001"}}
	if err := s.UpsertStatus(context.Background(), &rec, ""); err == nil {
		t.Fatalf("expected error for missing project name")
	}
}

func TestUpsertRatingsConflictOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := Assessment{ProjectID: "proj1", ProjectName: "Proj One",
		RatingDate: day("2024-01-01"), OpticName: "Schedule",
		Rating: project.RatingRed, Justification: "j1"}
	second := first
	second.Rating = project.RatingGreen
	second.Justification = "j2"

	if err := s.UpsertRatings(ctx, []Assessment{first}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertRatings(ctx, []Assessment{second}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.HistoryForProject(ctx, "proj1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(got))
	}
	if got[0].Rating != project.RatingGreen || got[0].Justification != "j2" {
		t.Fatalf("conflict should overwrite: %+v", got[0])
	}
}

func TestUpsertRatingsBatchIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []Assessment{
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-01-01"),
			OpticName: "Schedule", Rating: project.RatingGreen},
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-01-01"),
			OpticName: "Budget", Rating: "Purple"},
	}
	if err := s.UpsertRatings(ctx, batch); err == nil {
		t.Fatalf("expected batch failure for invalid rating")
	}
	got, err := s.HistoryForProject(ctx, "proj1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("failed batch must roll back entirely, found %d rows", len(got))
	}
}

func TestLatestRatingsByOptic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []Assessment{
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-01-01"),
			OpticName: "Schedule", Rating: project.RatingRed},
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-02-01"),
			OpticName: "Schedule", Rating: project.RatingAmber},
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-03-01"),
			OpticName: "Schedule", Rating: project.RatingGreen},
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-01-01"),
			OpticName: "Budget", Rating: project.RatingGreen},
	}
	if err := s.UpsertRatings(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.LatestRatingsByOptic(ctx, "proj1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected one row per optic, got %d", len(got))
	}
	// Ordered by optic_name ascending: Budget, Schedule.
	if got[0].OpticName != "Budget" || got[1].OpticName != "Schedule" {
		t.Fatalf("unexpected optic order: %+v", got)
	}
	if got[1].Rating != project.RatingGreen || !got[1].RatingDate.Equal(day("2024-03-01")) {
		t.Fatalf("expected max-date schedule row, got %+v", got[1])
	}
}

func TestHistoryOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []Assessment{
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-01-01"),
			OpticName: "Schedule", Rating: project.RatingRed},
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-02-01"),
			OpticName: "Budget", Rating: project.RatingGreen},
		{ProjectID: "proj1", ProjectName: "Proj One", RatingDate: day("2024-02-01"),
			OpticName: "Schedule", Rating: project.RatingAmber},
	}
	if err := s.UpsertRatings(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.HistoryForProject(ctx, "proj1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if !got[0].RatingDate.Equal(day("2024-02-01")) || got[0].OpticName != "Budget" {
		t.Fatalf("expected newest date first, optic ascending: %+v", got[0])
	}
	if got[2].OpticName != "Schedule" || !got[2].RatingDate.Equal(day("2024-01-01")) {
		t.Fatalf("expected oldest row last: %+v", got[2])
	}
}

func TestListProjects(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []Assessment{
		{ProjectID: "proj1", ProjectName: "Alpha", RatingDate: day("2024-01-01"),
			OpticName: "Schedule", Rating: project.RatingRed},
		{ProjectID: "proj1", ProjectName: "Alpha", RatingDate: day("2024-02-01"),
			OpticName: "Schedule", Rating: project.RatingGreen},
		{ProjectID: "proj2", ProjectName: "Beta", RatingDate: day("2024-01-15"),
			OpticName: "Budget", Rating: project.RatingAmber},
	}
	if err := s.UpsertRatings(ctx, rows); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(got))
	}
	if got[0].ProjectName != "Alpha" || got[0].TotalAssessments != 2 {
		t.Fatalf("unexpected roster entry: %+v", got[0])
	}
	if got[0].LatestAssessment == nil || !got[0].LatestAssessment.Equal(day("2024-02-01")) {
		t.Fatalf("unexpected latest date: %+v", got[0].LatestAssessment)
	}
}

func TestRunBookkeeping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.StartRun(ctx, "run-1"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := s.FinishRun(ctx, "run-1", "ok", "", 3); err != nil {
		t.Fatalf("finish run: %v", err)
	}
}
