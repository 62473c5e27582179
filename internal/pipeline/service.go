package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"risk_framework/internal/config"
	"risk_framework/internal/consolidate"
	"risk_framework/internal/ingest"
	"risk_framework/internal/metrics"
	"risk_framework/internal/project"
	"risk_framework/internal/ratings"
	"risk_framework/internal/store"
)

// Rater is the rating-engine dependency. Satisfied by engine.Client.
type Rater interface {
	RateProject(ctx context.Context, key project.Key, text string) (ratings.ExecutionRecord, error)
}

// Service runs the end-to-end analysis batch: stored status rows are
// consolidated per project, each project is rated by the engine in
// isolation, and the consolidated verdicts are deduped, exported, and
// persisted. One blocking, context-aware entry point; callers that want it
// async run it on the queue.
type Service struct {
	store   *store.Store
	rater   Rater
	cfg     config.Config
	optics  config.Optics
	metrics *metrics.Metrics
}

func NewService(st *store.Store, rater Rater, cfg config.Config, optics config.Optics, m *metrics.Metrics) *Service {
	return &Service{store: st, rater: rater, cfg: cfg, optics: optics, metrics: m}
}

// RunResult summarizes one analysis run.
type RunResult struct {
	RunID            string `json:"run_id"`
	Status           string `json:"status"`
	ProjectsAnalyzed int    `json:"projects_analyzed"`
	ProjectsRated    int    `json:"projects_rated"`
	RowsUpserted     int    `json:"rows_upserted"`
	Error            string `json:"error,omitempty"`
}

// RunAnalysis executes one full batch. Engine failures for individual
// projects are logged and skipped; the run fails only when nothing could be
// loaded or no project produced a verdict.
func (s *Service) RunAnalysis(ctx context.Context) (RunResult, error) {
	runID := uuid.NewString()
	if err := s.store.StartRun(ctx, runID); err != nil {
		log.Printf("pipeline: run bookkeeping start failed: %v", err)
	}
	res := RunResult{RunID: runID}

	snapshots, err := s.store.ProjectSnapshots(ctx)
	if err != nil {
		return s.fail(ctx, res, fmt.Errorf("load snapshots: %w", err))
	}
	inputs := consolidate.Build(snapshots)
	if len(inputs) == 0 {
		return s.fail(ctx, res, fmt.Errorf("no projects with analyzable content"))
	}
	res.ProjectsAnalyzed = len(inputs)

	var records []ratings.ExecutionRecord
	for _, input := range inputs {
		record, err := s.rater.RateProject(ctx, input.Key, input.Text)
		if err != nil {
			s.metrics.RecordEngineFailure()
			log.Printf("pipeline: rating %s failed: %v", input.Key.ID, err)
			continue
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return s.fail(ctx, res, fmt.Errorf("engine produced no verdicts"))
	}

	consolidated := ratings.ExtractConsolidatedRatings(records, s.optics.ConsolidatorRole)
	rows := ratings.DedupeToLatest(consolidated)
	if len(rows) == 0 {
		return s.fail(ctx, res, fmt.Errorf("no persistable ratings after dedupe"))
	}

	if err := ratings.ExportWorkbook(s.cfg.OutputWorkbook, rows); err != nil {
		// Export is best-effort; the database stays authoritative.
		log.Printf("pipeline: workbook export failed: %v", err)
	}

	for projectID, batch := range ratings.GroupByProject(rows) {
		if err := s.store.UpsertRatings(ctx, batch); err != nil {
			log.Printf("pipeline: persist ratings for %s failed: %v", projectID, err)
			continue
		}
		res.ProjectsRated++
		res.RowsUpserted += len(batch)
	}
	s.metrics.RecordRatings(res.RowsUpserted)

	res.Status = "ok"
	if err := s.store.FinishRun(ctx, runID, "ok", "", res.ProjectsRated); err != nil {
		log.Printf("pipeline: run bookkeeping finish failed: %v", err)
	}
	log.Printf("pipeline: run %s rated %d of %d projects (%d rows)", runID, res.ProjectsRated, res.ProjectsAnalyzed, res.RowsUpserted)
	return res, nil
}

// ProcessRows stores submitted status rows. Row faults are accumulated and
// reported; valid rows are never held back by invalid ones.
func (s *Service) ProcessRows(ctx context.Context, rows []ingest.RowPayload) (int, []string) {
	var processed int
	var errs []string
	for i, row := range rows {
		rec, err := row.ToRecord()
		if err != nil {
			errs = append(errs, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if err := s.store.UpsertStatus(ctx, &rec, consolidate.CombinedData(&rec)); err != nil {
			errs = append(errs, fmt.Sprintf("row %d (%s): %v", i+1, rec.Key.ID, err))
			continue
		}
		processed++
	}
	s.metrics.RecordRows(processed, len(errs))
	return processed, errs
}

func (s *Service) fail(ctx context.Context, res RunResult, err error) (RunResult, error) {
	res.Status = "failed"
	res.Error = err.Error()
	if ferr := s.store.FinishRun(ctx, res.RunID, "failed", res.Error, res.ProjectsRated); ferr != nil {
		log.Printf("pipeline: run bookkeeping finish failed: %v", ferr)
	}
	return res, err
}
