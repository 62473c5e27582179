package project

import (
	"strings"
	"time"
)

// Key identifies a project. Both parts must be non-empty after trimming.
type Key struct {
	ID   string
	Name string
}

func (k Key) Valid() bool {
	return strings.TrimSpace(k.ID) != "" && strings.TrimSpace(k.Name) != ""
}

// StatusRecord is one dated status submission for a project: one spreadsheet
// row or one API-submitted row. Immutable once built.
type StatusRecord struct {
	Key     Key
	Updated time.Time

	PortfolioManager      string
	ExecutiveSummary      string
	CommentsOnSchedule    string
	CommentsOnBudget      string
	CommentsOnCost        string
	CommentsOnResources   string
	CommentsOnScope       string
	Comments              string
	KeyActivitiesPlanned  string
	LastMonthAchievements string
	BusinessValueComment  string
	Phase                 string
}

// Section pairs a display label with an accessor into a StatusRecord.
type Section struct {
	Label string
	Value func(*StatusRecord) string
}

// Sections is the fixed ordering of labeled free-text sections used when
// building consolidated project text and the combined_data column.
var Sections = []Section{
	{"Executive Summary", func(r *StatusRecord) string { return r.ExecutiveSummary }},
	{"Comments on Schedule", func(r *StatusRecord) string { return r.CommentsOnSchedule }},
	{"Comments on Budget", func(r *StatusRecord) string { return r.CommentsOnBudget }},
	{"Comments on Cost", func(r *StatusRecord) string { return r.CommentsOnCost }},
	{"Comments on Resources", func(r *StatusRecord) string { return r.CommentsOnResources }},
	{"Comments on Scope", func(r *StatusRecord) string { return r.CommentsOnScope }},
	{"Comments", func(r *StatusRecord) string { return r.Comments }},
	{"Key Activities Planned", func(r *StatusRecord) string { return r.KeyActivitiesPlanned }},
	{"Last Month Achievements", func(r *StatusRecord) string { return r.LastMonthAchievements }},
	{"Business Value", func(r *StatusRecord) string { return r.BusinessValueComment }},
}

// Rating values for an optic.
const (
	RatingRed   = "Red"
	RatingAmber = "Amber"
	RatingGreen = "Green"
)

// ValidRating reports whether v is one of the three allowed ratings.
func ValidRating(v string) bool {
	switch v {
	case RatingRed, RatingAmber, RatingGreen:
		return true
	}
	return false
}

// OpticRating is one verdict from the rating engine.
type OpticRating struct {
	OpticName      string `json:"optic_name"`
	Rating         string `json:"rating"`
	Justification  string `json:"justification"`
	Recommendation string `json:"recommendation"`
}

// Rating is the engine's consolidated verdict for one project at one point
// in time. Multiple Ratings for the same project may exist across runs.
type Rating struct {
	ProjectID    string        `json:"project_id"`
	ProjectName  string        `json:"project_name"`
	RatingDate   string        `json:"rating_date"`
	OpticRatings []OpticRating `json:"optic_ratings"`
}
