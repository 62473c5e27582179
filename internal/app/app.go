package app

import (
	"context"
	"errors"
	"log"
	"net/http"

	"risk_framework/internal/config"
	"risk_framework/internal/engine"
	"risk_framework/internal/httpapi"
	"risk_framework/internal/metrics"
	"risk_framework/internal/notify"
	"risk_framework/internal/pipeline"
	"risk_framework/internal/queue"
	"risk_framework/internal/store"
	"risk_framework/internal/watch"
)

// App wires the framework components together: store, rating engine,
// analysis service, worker queue, file watcher, and the HTTP surface.
type App struct {
	cfg     config.Config
	store   *store.Store
	queue   *queue.Queue
	watcher *watch.Watcher
	service *pipeline.Service
	mux     *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	optics, err := config.LoadOptics(cfg.OpticsPath)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	rater := engine.NewClient(cfg.Engine, optics, nil)
	svc := pipeline.NewService(st, rater, cfg, optics, m)

	q := queue.New(cfg.QueueSize, cfg.WorkerCount, cfg.EventTimeout)
	poster := notify.NewPoster(cfg.IngestBaseURL, cfg.IngestTimeout)
	watcher := watch.New(cfg, q, poster, m)

	mux := http.NewServeMux()
	httpapi.NewRouter(cfg, st, svc, q, m).Register(mux)

	return &App{cfg: cfg, store: st, queue: q, watcher: watcher, service: svc, mux: mux}, nil
}

// Run starts workers, watcher, and HTTP server, and blocks until the
// context is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	a.queue.Start(ctx)
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	if err := a.watcher.Backfill(ctx); err != nil {
		log.Printf("app: backfill failed: %v", err)
	}

	srv := &http.Server{Addr: ":" + a.cfg.HTTPPort, Handler: a.mux}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
		a.queue.Stop(context.Background())
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Analyze exposes a one-shot batch run for the control plane and tests.
func (a *App) Analyze(ctx context.Context) (pipeline.RunResult, error) {
	return a.service.RunAnalysis(ctx)
}

func (a *App) Store() *store.Store { return a.store }
func (a *App) Mux() *http.ServeMux { return a.mux }

func (a *App) Close() error { return a.store.Close() }
