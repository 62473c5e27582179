package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"risk_framework/internal/project"
)

// Store wraps SQLite access for status submissions and risk assessments.
type Store struct {
	db *sql.DB
}

const dateLayout = "2006-01-02"

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS project_data (
			project_id TEXT NOT NULL,
			project_name TEXT NOT NULL,
			updated TIMESTAMP NOT NULL,
			portfolio_manager TEXT,
			executive_summary TEXT,
			comments_on_schedule TEXT,
			comments_on_budget TEXT,
			comments_on_cost TEXT,
			comments_on_resources TEXT,
			comments_on_scope TEXT,
			comments TEXT,
			key_activities_planned TEXT,
			last_month_achievements TEXT,
			business_value_comment TEXT,
			combined_data TEXT,
			processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (project_id, project_name, updated)
		);`,
		`CREATE TABLE IF NOT EXISTS risk_assessments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id TEXT NOT NULL,
			project_name TEXT NOT NULL,
			rating_date TEXT NOT NULL,
			optic_name TEXT NOT NULL,
			rating TEXT NOT NULL CHECK (rating IN ('Red', 'Amber', 'Green')),
			justification TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (project_id, rating_date, optic_name)
		);`,
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			status TEXT,
			projects_rated INTEGER DEFAULT 0,
			error TEXT,
			started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished_at TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Assessment is one durable per-(project, date, optic) rating row.
type Assessment struct {
	ID             int64     `json:"id,omitempty"`
	ProjectID      string    `json:"project_id"`
	ProjectName    string    `json:"project_name"`
	RatingDate     time.Time `json:"rating_date"`
	OpticName      string    `json:"optic_name"`
	Rating         string    `json:"rating"`
	Justification  string    `json:"justification"`
	Recommendation string    `json:"recommendation,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// ProjectInfo is one roster entry: a project with its latest assessment date.
type ProjectInfo struct {
	ProjectID        string     `json:"project_id"`
	ProjectName      string     `json:"project_name"`
	LatestAssessment *time.Time `json:"latest_assessment_date"`
	TotalAssessments int        `json:"total_assessments"`
}

// UpsertStatus inserts or updates one status submission keyed by
// (project_id, project_name, updated). On conflict every text column is
// overwritten and processed_at refreshed. One failed record never aborts
// the caller's batch; callers record the error and continue.
func (s *Store) UpsertStatus(ctx context.Context, rec *project.StatusRecord, combined string) error {
	if !rec.Key.Valid() {
		return fmt.Errorf("invalid project key %+v", rec.Key)
	}
	if rec.Updated.IsZero() {
		return fmt.Errorf("missing updated timestamp for %s", rec.Key.ID)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO project_data (
		project_id, project_name, updated, portfolio_manager,
		executive_summary, comments_on_schedule, comments_on_budget,
		comments_on_cost, comments_on_resources, comments_on_scope,
		comments, key_activities_planned, last_month_achievements,
		business_value_comment, combined_data
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (project_id, project_name, updated) DO UPDATE SET
		portfolio_manager=excluded.portfolio_manager,
		executive_summary=excluded.executive_summary,
		comments_on_schedule=excluded.comments_on_schedule,
		comments_on_budget=excluded.comments_on_budget,
		comments_on_cost=excluded.comments_on_cost,
		comments_on_resources=excluded.comments_on_resources,
		comments_on_scope=excluded.comments_on_scope,
		comments=excluded.comments,
		key_activities_planned=excluded.key_activities_planned,
		last_month_achievements=excluded.last_month_achievements,
		business_value_comment=excluded.business_value_comment,
		combined_data=excluded.combined_data,
		processed_at=CURRENT_TIMESTAMP`,
		rec.Key.ID, rec.Key.Name, rec.Updated.UTC(), rec.PortfolioManager,
		rec.ExecutiveSummary, rec.CommentsOnSchedule, rec.CommentsOnBudget,
		rec.CommentsOnCost, rec.CommentsOnResources, rec.CommentsOnScope,
		rec.Comments, rec.KeyActivitiesPlanned, rec.LastMonthAchievements,
		rec.BusinessValueComment, combined)
	return err
}

// UpsertRatings writes a batch of assessments in one transaction keyed by
// (project_id, rating_date, optic_name); on conflict rating and
// justification are overwritten and updated_at refreshed. All-or-nothing:
// ratings are one atomic consolidation event per engine run, so a single
// failed statement rolls back the whole batch.
func (s *Store) UpsertRatings(ctx context.Context, rows []Assessment) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO risk_assessments
		(project_id, project_name, rating_date, optic_name, rating, justification)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, rating_date, optic_name) DO UPDATE SET
			rating=excluded.rating,
			justification=excluded.justification,
			updated_at=CURRENT_TIMESTAMP`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if !project.ValidRating(row.Rating) {
			return fmt.Errorf("invalid rating %q for %s/%s", row.Rating, row.ProjectID, row.OpticName)
		}
		if _, err := stmt.ExecContext(ctx, row.ProjectID, row.ProjectName,
			row.RatingDate.Format(dateLayout), row.OpticName, row.Rating, row.Justification); err != nil {
			return fmt.Errorf("upsert rating %s/%s: %w", row.ProjectID, row.OpticName, err)
		}
	}
	return tx.Commit()
}

const assessmentColumns = `id, project_id, project_name, rating_date, optic_name, rating, justification, created_at, updated_at`

// LatestRatingsByOptic returns exactly one row per distinct optic for the
// project: the row with the maximum rating_date for that optic. Ties on
// date resolve to the most recently inserted row.
func (s *Store) LatestRatingsByOptic(ctx context.Context, projectID string) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+assessmentColumns+`
		FROM risk_assessments r
		WHERE project_id = ?
		  AND id = (
			SELECT id FROM risk_assessments
			WHERE project_id = r.project_id AND optic_name = r.optic_name
			ORDER BY rating_date DESC, id DESC LIMIT 1
		  )
		ORDER BY optic_name ASC`, projectID)
	if err != nil {
		return nil, err
	}
	return scanAssessments(rows)
}

// HistoryForProject returns all assessment rows for the project ordered by
// rating_date descending, then optic_name ascending.
func (s *Store) HistoryForProject(ctx context.Context, projectID string) ([]Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+assessmentColumns+`
		FROM risk_assessments
		WHERE project_id = ?
		ORDER BY rating_date DESC, optic_name ASC`, projectID)
	if err != nil {
		return nil, err
	}
	return scanAssessments(rows)
}

// ListProjects returns the roster of rated projects with latest assessment
// date and row counts.
func (s *Store) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, project_name,
			MAX(rating_date), COUNT(*)
		FROM risk_assessments
		GROUP BY project_id, project_name
		ORDER BY project_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProjectInfo
	for rows.Next() {
		var p ProjectInfo
		var latest sql.NullString
		if err := rows.Scan(&p.ProjectID, &p.ProjectName, &latest, &p.TotalAssessments); err != nil {
			return nil, err
		}
		if latest.Valid {
			if t, err := time.Parse(dateLayout, latest.String); err == nil {
				p.LatestAssessment = &t
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProjectSnapshots returns every stored status submission ordered by
// project then updated ascending, for history-aware consolidation.
func (s *Store) ProjectSnapshots(ctx context.Context) ([]project.StatusRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, project_name, updated,
			portfolio_manager, executive_summary, comments_on_schedule,
			comments_on_budget, comments_on_cost, comments_on_resources,
			comments_on_scope, comments, key_activities_planned,
			last_month_achievements, business_value_comment
		FROM project_data
		ORDER BY project_id ASC, updated ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []project.StatusRecord
	for rows.Next() {
		var rec project.StatusRecord
		var pm, es, cs, cb, cc, cr, cp, cm, ka, lm, bv sql.NullString
		if err := rows.Scan(&rec.Key.ID, &rec.Key.Name, &rec.Updated,
			&pm, &es, &cs, &cb, &cc, &cr, &cp, &cm, &ka, &lm, &bv); err != nil {
			return nil, err
		}
		rec.PortfolioManager = pm.String
		rec.ExecutiveSummary = es.String
		rec.CommentsOnSchedule = cs.String
		rec.CommentsOnBudget = cb.String
		rec.CommentsOnCost = cc.String
		rec.CommentsOnResources = cr.String
		rec.CommentsOnScope = cp.String
		rec.Comments = cm.String
		rec.KeyActivitiesPlanned = ka.String
		rec.LastMonthAchievements = lm.String
		rec.BusinessValueComment = bv.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanAssessments(rows *sql.Rows) ([]Assessment, error) {
	defer rows.Close()
	var out []Assessment
	for rows.Next() {
		var a Assessment
		var ratingDate string
		var justification sql.NullString
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.ProjectName, &ratingDate,
			&a.OpticName, &a.Rating, &justification, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Justification = justification.String
		t, err := time.Parse(dateLayout, ratingDate)
		if err != nil {
			return nil, fmt.Errorf("bad rating_date %q for id %d: %w", ratingDate, a.ID, err)
		}
		a.RatingDate = t
		out = append(out, a)
	}
	return out, rows.Err()
}

// StartRun records an analysis run and returns its identifier.
func (s *Store) StartRun(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO analysis_runs (id, status) VALUES (?, 'running')`, id)
	return err
}

// FinishRun closes out an analysis run.
func (s *Store) FinishRun(ctx context.Context, id, status, errMsg string, projectsRated int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE analysis_runs
		SET status=?, error=?, projects_rated=?, finished_at=CURRENT_TIMESTAMP
		WHERE id=?`, status, errMsg, projectsRated, id)
	return err
}

// Health returns err if the database is not reachable.
func (s *Store) Health(ctx context.Context) error {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
