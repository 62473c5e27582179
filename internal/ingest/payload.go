package ingest

import (
	"fmt"
	"time"

	"risk_framework/internal/project"
)

const payloadDateLayout = "2006-01-02 15:04:05"

// RowPayload is the wire shape of one extracted status row, shared by the
// watcher-side poster and the /api/process-rows endpoint.
type RowPayload struct {
	ProjectID             string `json:"project_id"`
	ProjectName           string `json:"project_name"`
	Updated               string `json:"updated"`
	PortfolioManager      string `json:"portfolio_manager,omitempty"`
	ExecutiveSummary      string `json:"executive_summary,omitempty"`
	CommentsOnSchedule    string `json:"comments_on_schedule,omitempty"`
	CommentsOnBudget      string `json:"comments_on_budget,omitempty"`
	CommentsOnCost        string `json:"comments_on_cost,omitempty"`
	CommentsOnResources   string `json:"comments_on_resources,omitempty"`
	CommentsOnScope       string `json:"comments_on_scope,omitempty"`
	Comments              string `json:"comments,omitempty"`
	KeyActivitiesPlanned  string `json:"key_activities_planned,omitempty"`
	LastMonthAchievements string `json:"last_month_achievements,omitempty"`
	BusinessValueComment  string `json:"business_value_comment,omitempty"`
	Phase                 string `json:"phase,omitempty"`
}

// ProcessRowsRequest is the watcher-to-service submission envelope.
type ProcessRowsRequest struct {
	FilePath  string       `json:"file_path"`
	Rows      []RowPayload `json:"rows"`
	TotalRows int          `json:"total_rows"`
}

// RowFromRecord flattens a StatusRecord for transport.
func RowFromRecord(rec *project.StatusRecord) RowPayload {
	return RowPayload{
		ProjectID:             rec.Key.ID,
		ProjectName:           rec.Key.Name,
		Updated:               rec.Updated.Format(payloadDateLayout),
		PortfolioManager:      rec.PortfolioManager,
		ExecutiveSummary:      rec.ExecutiveSummary,
		CommentsOnSchedule:    rec.CommentsOnSchedule,
		CommentsOnBudget:      rec.CommentsOnBudget,
		CommentsOnCost:        rec.CommentsOnCost,
		CommentsOnResources:   rec.CommentsOnResources,
		CommentsOnScope:       rec.CommentsOnScope,
		Comments:              rec.Comments,
		KeyActivitiesPlanned:  rec.KeyActivitiesPlanned,
		LastMonthAchievements: rec.LastMonthAchievements,
		BusinessValueComment:  rec.BusinessValueComment,
		Phase:                 rec.Phase,
	}
}

// ToRecord validates and rebuilds the StatusRecord from a transported row.
func (r RowPayload) ToRecord() (project.StatusRecord, error) {
	key := project.Key{ID: r.ProjectID, Name: r.ProjectName}
	if !key.Valid() {
		return project.StatusRecord{}, fmt.Errorf("missing project id or name")
	}
	updated, err := ParseDate(r.Updated)
	if err != nil {
		return project.StatusRecord{}, fmt.Errorf("invalid updated date %q", r.Updated)
	}
	return project.StatusRecord{
		Key:                   key,
		Updated:               updated.UTC().Truncate(time.Second),
		PortfolioManager:      r.PortfolioManager,
		ExecutiveSummary:      r.ExecutiveSummary,
		CommentsOnSchedule:    r.CommentsOnSchedule,
		CommentsOnBudget:      r.CommentsOnBudget,
		CommentsOnCost:        r.CommentsOnCost,
		CommentsOnResources:   r.CommentsOnResources,
		CommentsOnScope:       r.CommentsOnScope,
		Comments:              r.Comments,
		KeyActivitiesPlanned:  r.KeyActivitiesPlanned,
		LastMonthAchievements: r.LastMonthAchievements,
		BusinessValueComment:  r.BusinessValueComment,
		Phase:                 r.Phase,
	}, nil
}
