package ingest

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"risk_framework/internal/project"
)

// Spreadsheet column contract. Names must match the source workbook exactly,
// including the apostrophe in "Last Month's Achievements" and the lowercase
// "planned" in "Key Activities planned".
const (
	ColProjectName = "Project Name"
	ColNumber      = "Number"
	ColUpdated     = "Updated"

	ColExecutiveSummary      = "Executive Summary"
	ColCommentsOnSchedule    = "Comments on Schedule"
	ColCommentsOnBudget      = "Comments on Budget"
	ColCommentsOnCost        = "Comments on Cost"
	ColCommentsOnResources   = "Comments on Resources"
	ColCommentsOnScope       = "Comments on Scope"
	ColComments              = "Comments"
	ColKeyActivitiesPlanned  = "Key Activities planned"
	ColLastMonthAchievements = "Last Month's Achievements"
	ColBusinessValueComment  = "Business Value Comment"

	ColPortfolioManager = "Portfolio manager"
	ColPhase            = "Phase"
)

// RequiredColumns is the whole-file validation set. A workbook missing any
// of these is rejected outright.
var RequiredColumns = []string{
	ColProjectName, ColNumber, ColUpdated,
	ColExecutiveSummary, ColCommentsOnSchedule, ColCommentsOnBudget,
	ColCommentsOnCost, ColCommentsOnResources, ColCommentsOnScope,
	ColComments, ColKeyActivitiesPlanned, ColLastMonthAchievements,
	ColBusinessValueComment,
}

// Result summarizes one workbook pass. Row-level faults land in Errors and
// do not abort the batch.
type Result struct {
	Records   []project.StatusRecord
	TotalRows int
	Skipped   int
	Errors    []string
}

// dateLayouts covers the formats the status workbooks have shipped with.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01-02-06",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/06 15:04",
	time.RFC3339,
}

// LoadWorkbook reads sheetName (or the first sheet when empty) and extracts
// one StatusRecord per valid row.
func LoadWorkbook(path, sheetName string) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := sheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return ParseRows(rows)
}

// ParseRows validates the header row against RequiredColumns and converts
// each data row. The whole input is rejected when required columns are
// missing; individual bad rows are skipped with an accumulated error.
func ParseRows(rows [][]string) (Result, error) {
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("workbook has no header row")
	}
	index := headerIndex(rows[0])
	if missing := missingColumns(index); len(missing) > 0 {
		return Result{}, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	res := Result{TotalRows: len(rows) - 1}
	for i, row := range rows[1:] {
		rec, err := parseRow(index, row)
		if err != nil {
			// Header is row 1, so the first data row is row 2.
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", i+2, err))
			continue
		}
		res.Records = append(res.Records, rec)
	}
	if res.Skipped > 0 {
		log.Printf("ingest: skipped %d of %d rows", res.Skipped, res.TotalRows)
	}
	return res, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return index
}

func missingColumns(index map[string]int) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

func parseRow(index map[string]int, row []string) (project.StatusRecord, error) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	key := project.Key{ID: get(ColNumber), Name: get(ColProjectName)}
	if key.ID == "" {
		return project.StatusRecord{}, fmt.Errorf("missing project ID (%s)", ColNumber)
	}
	if key.Name == "" {
		return project.StatusRecord{}, fmt.Errorf("missing project name")
	}

	rawUpdated := get(ColUpdated)
	if rawUpdated == "" {
		return project.StatusRecord{}, fmt.Errorf("missing updated date")
	}
	updated, err := ParseDate(rawUpdated)
	if err != nil {
		return project.StatusRecord{}, fmt.Errorf("invalid updated date %q", rawUpdated)
	}

	return project.StatusRecord{
		Key:                   key,
		Updated:               updated,
		PortfolioManager:      get(ColPortfolioManager),
		ExecutiveSummary:      get(ColExecutiveSummary),
		CommentsOnSchedule:    get(ColCommentsOnSchedule),
		CommentsOnBudget:      get(ColCommentsOnBudget),
		CommentsOnCost:        get(ColCommentsOnCost),
		CommentsOnResources:   get(ColCommentsOnResources),
		CommentsOnScope:       get(ColCommentsOnScope),
		Comments:              get(ColComments),
		KeyActivitiesPlanned:  get(ColKeyActivitiesPlanned),
		LastMonthAchievements: get(ColLastMonthAchievements),
		BusinessValueComment:  get(ColBusinessValueComment),
		Phase:                 get(ColPhase),
	}, nil
}

// ParseDate accepts the known workbook date layouts plus Excel serial
// numbers (days since 1899-12-30).
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
		days := math.Floor(serial)
		frac := serial - days
		return epoch.AddDate(0, 0, int(days)).Add(time.Duration(frac * float64(24*time.Hour))), nil
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", raw)
}
