package ratings

import (
	"encoding/json"
	"log"
	"sort"
	"strings"
	"time"

	"risk_framework/internal/project"
	"risk_framework/internal/store"
)

// ExtractConsolidatedRatings scans each execution record's task outputs and
// keeps only entries whose agent matches the consolidating role exactly.
// Specialist outputs are intermediate and ignored. A malformed payload
// never raises: missing fields degrade to zero values and still contribute
// a (possibly degenerate) rating.
func ExtractConsolidatedRatings(records []ExecutionRecord, consolidatorRole string) []project.Rating {
	var out []project.Rating
	for _, rec := range records {
		for _, task := range rec.TasksOutput {
			if strings.TrimSpace(task.Agent) != consolidatorRole {
				continue
			}
			var rating project.Rating
			if len(task.JSONDict) > 0 {
				if err := json.Unmarshal(task.JSONDict, &rating); err != nil {
					log.Printf("ratings: malformed consolidator payload: %v", err)
				}
			}
			out = append(out, rating)
		}
	}
	return out
}

// ratingDateLayouts covers the date shapes the engine has emitted.
var ratingDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseRatingDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range ratingDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DedupeToLatest flattens every rating's optics into assessment rows, drops
// rows with unparsable dates (logged, batch continues), sorts ascending by
// rating date with stable order, and keeps the last row per
// (project_id, project_name, optic_name). Most recent rating wins; ties on
// date resolve to the row later in the input sequence.
func DedupeToLatest(all []project.Rating) []store.Assessment {
	var flat []store.Assessment
	for _, r := range all {
		date, ok := parseRatingDate(r.RatingDate)
		if !ok {
			log.Printf("ratings: dropping %s/%s: unparsable rating_date %q", r.ProjectID, r.ProjectName, r.RatingDate)
			continue
		}
		for _, optic := range r.OpticRatings {
			flat = append(flat, store.Assessment{
				ProjectID:      r.ProjectID,
				ProjectName:    r.ProjectName,
				RatingDate:     date,
				OpticName:      optic.OpticName,
				Rating:         optic.Rating,
				Justification:  optic.Justification,
				Recommendation: optic.Recommendation,
			})
		}
	}

	sort.SliceStable(flat, func(i, j int) bool {
		return flat[i].RatingDate.Before(flat[j].RatingDate)
	})

	type groupKey struct {
		projectID   string
		projectName string
		opticName   string
	}
	latest := make(map[groupKey]store.Assessment, len(flat))
	var order []groupKey
	for _, row := range flat {
		key := groupKey{row.ProjectID, row.ProjectName, row.OpticName}
		if _, seen := latest[key]; !seen {
			order = append(order, key)
		}
		latest[key] = row
	}

	out := make([]store.Assessment, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}

// GroupByProject splits deduped rows into per-project batches, preserving
// row order within each project. One batch becomes one store upsert call.
func GroupByProject(rows []store.Assessment) map[string][]store.Assessment {
	grouped := make(map[string][]store.Assessment)
	for _, row := range rows {
		grouped[row.ProjectID] = append(grouped[row.ProjectID], row)
	}
	return grouped
}
