package consolidate

import (
	"strings"
	"testing"
	"time"

	"risk_framework/internal/project"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleRecord() project.StatusRecord {
	return project.StatusRecord{
		Key:                project.Key{ID: "PRJ001", Name: "Downstream Exchange"},
		Updated:            date("2024-03-15"),
		ExecutiveSummary:   "On track overall.",
		CommentsOnSchedule: "Two weeks behind on phase 2.",
		CommentsOnBudget:   "",
		Phase:              "Execution",
	}
}

func TestSingleSnapshotSectionOrderAndMarkers(t *testing.T) {
	rec := sampleRecord()
	got := SingleSnapshot(&rec)
	want := strings.Join([]string{
		"Executive Summary: On track overall.",
		"Comments on Schedule: Two weeks behind on phase 2.",
		"Project Phase: Execution",
		"Last Updated: 2024-03-15",
	}, "\n")
	if got != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestSingleSnapshotOmitsEmptySections(t *testing.T) {
	rec := sampleRecord()
	rec.CommentsOnBudget = "n/a"
	got := SingleSnapshot(&rec)
	if strings.Contains(got, "Comments on Budget") {
		t.Fatalf("empty budget section should be omitted entirely:\n%s", got)
	}
}

func TestSingleSnapshotNoContent(t *testing.T) {
	rec := project.StatusRecord{
		Key:     project.Key{ID: "PRJ002", Name: "Empty"},
		Updated: date("2024-01-01"),
		Phase:   "Planning",
	}
	if got := SingleSnapshot(&rec); got != "" {
		t.Fatalf("record with no sections should render empty, got %q", got)
	}
}

func TestMultiSnapshotChronological(t *testing.T) {
	newer := sampleRecord()
	newer.Updated = date("2024-04-15")
	newer.ExecutiveSummary = "Slipping."
	older := sampleRecord()

	got := MultiSnapshot([]project.StatusRecord{newer, older})
	first := strings.Index(got, "--- Record from 2024-03-15 ---")
	second := strings.Index(got, "--- Record from 2024-04-15 ---")
	if first == -1 || second == -1 {
		t.Fatalf("missing record headers:\n%s", got)
	}
	if first > second {
		t.Fatalf("snapshots not in chronological order:\n%s", got)
	}
	if !strings.Contains(got[second:], "Executive Summary: Slipping.") {
		t.Fatalf("newer snapshot content missing:\n%s", got)
	}
}

func TestBuildExcludesEmptyProjects(t *testing.T) {
	full := sampleRecord()
	empty := project.StatusRecord{
		Key:     project.Key{ID: "PRJ003", Name: "Silent"},
		Updated: date("2024-02-01"),
	}
	inputs := Build([]project.StatusRecord{full, empty})
	if len(inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(inputs))
	}
	if inputs[0].Key.ID != "PRJ001" {
		t.Fatalf("unexpected project: %s", inputs[0].Key.ID)
	}
}

func TestBuildGroupsByKey(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.Updated = date("2024-04-15")
	inputs := Build([]project.StatusRecord{a, b})
	if len(inputs) != 1 {
		t.Fatalf("expected single grouped input, got %d", len(inputs))
	}
	if !strings.Contains(inputs[0].Text, "--- Record from 2024-03-15 ---") {
		t.Fatalf("grouped project should use multi-snapshot form:\n%s", inputs[0].Text)
	}
}
