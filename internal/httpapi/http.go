package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"risk_framework/internal/config"
	"risk_framework/internal/ingest"
	"risk_framework/internal/metrics"
	"risk_framework/internal/pipeline"
	"risk_framework/internal/queue"
	"risk_framework/internal/store"
)

// Router builds HTTP handlers for /api and /ops.
type Router struct {
	cfg     config.Config
	store   *store.Store
	svc     *pipeline.Service
	queue   *queue.Queue
	metrics *metrics.Metrics
}

func NewRouter(cfg config.Config, st *store.Store, svc *pipeline.Service, q *queue.Queue, m *metrics.Metrics) *Router {
	return &Router{cfg: cfg, store: st, svc: svc, queue: q, metrics: m}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/projects", r.projects)
	mux.HandleFunc("/api/projects/", r.projectDetail)
	mux.HandleFunc("/api/process-rows", r.processRows)
	mux.HandleFunc("/ops/analyze", r.analyze)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/health", r.health)
}

func (r *Router) projects(w http.ResponseWriter, req *http.Request) {
	list, err := r.store.ListProjects(req.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []store.ProjectInfo{}
	}
	respondJSON(w, list)
}

// projectDetail serves /api/projects/{id}/assessments and
// /api/projects/{id}/latest.
func (r *Router) projectDetail(w http.ResponseWriter, req *http.Request) {
	rest := strings.TrimPrefix(req.URL.Path, "/api/projects/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, req)
		return
	}
	projectID := parts[0]

	var rows []store.Assessment
	var err error
	switch parts[1] {
	case "assessments":
		rows, err = r.store.HistoryForProject(req.Context(), projectID)
	case "latest":
		rows, err = r.store.LatestRatingsByOptic(req.Context(), projectID)
	default:
		http.NotFound(w, req)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.Assessment{}
	}
	respondJSON(w, map[string]any{"project_id": projectID, "assessments": rows, "count": len(rows)})
}

func (r *Router) processRows(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body ingest.ProcessRowsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body.Rows) == 0 {
		respondJSON(w, map[string]any{"success": false, "rows_processed": 0, "error": "no rows submitted"})
		return
	}
	processed, errs := r.svc.ProcessRows(req.Context(), body.Rows)
	resp := map[string]any{
		"success":        processed > 0,
		"rows_processed": processed,
	}
	if len(errs) > 0 {
		resp["errors"] = errs
	}
	log.Printf("httpapi: processed %d of %d rows from %s", processed, body.TotalRows, body.FilePath)
	respondJSON(w, resp)
}

// analyze runs the full batch synchronously and returns its summary.
func (r *Router) analyze(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := r.svc.RunAnalysis(req.Context())
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(res)
		return
	}
	respondJSON(w, res)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	stats := r.queue.Stats()
	r.metrics.UpdateQueue(stats.Length, stats.Capacity, stats.WorkerCount)
	respondJSON(w, map[string]any{
		"queue":   stats,
		"metrics": r.metrics.Snapshot(),
		"workers": r.cfg.WorkerCount,
	})
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if err := r.store.Health(req.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}
