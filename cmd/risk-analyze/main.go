// risk-analyze is the one-shot batch tool: ingest the given workbooks into
// the store, run the full rating analysis, and print the run summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"risk_framework/internal/config"
	"risk_framework/internal/consolidate"
	"risk_framework/internal/engine"
	"risk_framework/internal/ingest"
	"risk_framework/internal/metrics"
	"risk_framework/internal/pipeline"
	"risk_framework/internal/store"
)

func main() {
	skipEngine := flag.Bool("ingest-only", false, "ingest workbooks without running the rating engine")
	flag.Parse()

	cfg := config.Load()
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	m := metrics.New()
	for _, path := range flag.Args() {
		if err := ingestWorkbook(ctx, st, m, path, cfg.SheetName); err != nil {
			log.Printf("ingest %s: %v", path, err)
		}
	}

	if *skipEngine {
		snap := m.Snapshot()
		fmt.Printf("ingested %d rows (%d skipped)\n", snap.RowsProcessed, snap.RowsSkipped)
		return
	}

	optics, err := config.LoadOptics(cfg.OpticsPath)
	if err != nil {
		log.Fatalf("load optics: %v", err)
	}
	svc := pipeline.NewService(st, engine.NewClient(cfg.Engine, optics, nil), cfg, optics, m)
	res, err := svc.RunAnalysis(ctx)
	if err != nil {
		log.Printf("analysis failed: %v", err)
		os.Exit(1)
	}
	fmt.Printf("run %s: rated %d of %d projects, %d rows written to %s\n",
		res.RunID, res.ProjectsRated, res.ProjectsAnalyzed, res.RowsUpserted, cfg.OutputWorkbook)
}

func ingestWorkbook(ctx context.Context, st *store.Store, m *metrics.Metrics, path, sheet string) error {
	res, err := ingest.LoadWorkbook(path, sheet)
	if err != nil {
		return err
	}
	var stored int
	for i := range res.Records {
		rec := &res.Records[i]
		if err := st.UpsertStatus(ctx, rec, consolidate.CombinedData(rec)); err != nil {
			log.Printf("store %s/%s: %v", rec.Key.ID, rec.Updated.Format("2006-01-02"), err)
			continue
		}
		stored++
	}
	m.RecordRows(stored, res.Skipped+(len(res.Records)-stored))
	for _, e := range res.Errors {
		log.Printf("%s: %s", path, e)
	}
	log.Printf("ingested %d of %d rows from %s", stored, res.TotalRows, path)
	return nil
}
