package config

import (
	"strings"
	"testing"
)

const sampleOpticsYAML = `
consolidator_role: Chief Risk Assessment Officer
order:
  - Schedule
  - Budget
optics:
  Schedule:
    Green: on track against plan
    Amber: minor slippage
    Red: major slippage
  Budget:
    Green: within budget
    Amber: under 10% overrun
    Red: over 10% overrun
agents:
  Schedule:
    role: Schedule Risk Analyst
    goal: rate schedule health
    backstory: veteran PMO analyst
`

func TestParseOptics(t *testing.T) {
	optics, err := ParseOptics([]byte(sampleOpticsYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := optics.Names(); len(got) != 2 || got[0] != "Schedule" || got[1] != "Budget" {
		t.Fatalf("unexpected optic order: %v", got)
	}
	if optics.ConsolidatorRole != DefaultConsolidatorRole {
		t.Fatalf("unexpected consolidator role: %q", optics.ConsolidatorRole)
	}
	if optics.Optics[0].Agent.Role != "Schedule Risk Analyst" {
		t.Fatalf("agent template not attached: %+v", optics.Optics[0].Agent)
	}
	if optics.Optics[1].Criteria.Red != "over 10% overrun" {
		t.Fatalf("criteria mismatch: %+v", optics.Optics[1].Criteria)
	}
}

func TestParseOpticsMissingCriteria(t *testing.T) {
	bad := `
optics:
  Scope:
    Green: stable
    Amber: churn
`
	_, err := ParseOptics([]byte(bad))
	if err == nil || !strings.Contains(err.Error(), "Scope") {
		t.Fatalf("expected missing-criteria error naming the optic, got %v", err)
	}
}

func TestParseOpticsUnknownOrderEntry(t *testing.T) {
	bad := `
order: [Schedule, Mystery]
optics:
  Schedule:
    Green: g
    Amber: a
    Red: r
`
	_, err := ParseOptics([]byte(bad))
	if err == nil || !strings.Contains(err.Error(), "Mystery") {
		t.Fatalf("expected unknown-optic error, got %v", err)
	}
}

func TestParseOpticsDefaultsToSortedNames(t *testing.T) {
	raw := `
optics:
  Scope: {Green: g, Amber: a, Red: r}
  Budget: {Green: g, Amber: a, Red: r}
`
	optics, err := ParseOptics([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := optics.Names(); got[0] != "Budget" || got[1] != "Scope" {
		t.Fatalf("expected alphabetical fallback, got %v", got)
	}
}
