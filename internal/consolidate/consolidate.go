package consolidate

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"risk_framework/internal/normalize"
	"risk_framework/internal/project"
)

// Input is one project's text document ready for the rating engine.
type Input struct {
	Key  project.Key
	Text string
}

// SingleSnapshot renders one record's non-empty labeled sections in fixed
// order, followed by a phase marker and a last-updated marker. Returns ""
// when the record has no analyzable content.
func SingleSnapshot(rec *project.StatusRecord) string {
	parts := sectionLines(rec)
	if len(parts) == 0 {
		return ""
	}
	if phase := normalize.Normalize(rec.Phase); phase != "" {
		parts = append(parts, "Project Phase: "+phase)
	}
	if !rec.Updated.IsZero() {
		parts = append(parts, "Last Updated: "+rec.Updated.Format("2006-01-02"))
	}
	return strings.Join(parts, "\n")
}

// MultiSnapshot renders a project's full history: snapshots sorted by
// Updated ascending, each introduced by a record header, sections in fixed
// order within each snapshot. Returns "" when no snapshot has content.
func MultiSnapshot(records []project.StatusRecord) string {
	sorted := append([]project.StatusRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Updated.Before(sorted[j].Updated)
	})

	var parts []string
	for i := range sorted {
		lines := sectionLines(&sorted[i])
		if len(lines) == 0 {
			continue
		}
		header := fmt.Sprintf("--- Record from %s ---", sorted[i].Updated.Format("2006-01-02"))
		parts = append(parts, header)
		parts = append(parts, lines...)
	}
	return strings.Join(parts, "\n")
}

// Build groups records by project key and produces one Input per project
// with analyzable content. A project whose records are all empty is
// excluded entirely. Rows with an invalid key were rejected upstream, but
// any that slip through are dropped and logged rather than failing the
// batch.
func Build(records []project.StatusRecord) []Input {
	grouped := make(map[project.Key][]project.StatusRecord)
	var order []project.Key
	for _, rec := range records {
		if !rec.Key.Valid() {
			log.Printf("consolidate: dropping record with invalid key %+v", rec.Key)
			continue
		}
		if _, seen := grouped[rec.Key]; !seen {
			order = append(order, rec.Key)
		}
		grouped[rec.Key] = append(grouped[rec.Key], rec)
	}

	inputs := make([]Input, 0, len(order))
	for _, key := range order {
		recs := grouped[key]
		var text string
		if len(recs) == 1 {
			text = SingleSnapshot(&recs[0])
		} else {
			text = MultiSnapshot(recs)
		}
		if strings.TrimSpace(text) == "" {
			log.Printf("consolidate: skipping project %s - no analyzable content", key.ID)
			continue
		}
		inputs = append(inputs, Input{Key: key, Text: text})
	}
	return inputs
}

// CombinedData is the persisted combined_data column: fixed-order sections
// only, no phase or date markers.
func CombinedData(rec *project.StatusRecord) string {
	return strings.Join(sectionLines(rec), "\n")
}

func sectionLines(rec *project.StatusRecord) []string {
	var lines []string
	for _, s := range project.Sections {
		if line := normalize.FormatSection(s.Label, s.Value(rec)); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
