package watch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"risk_framework/internal/config"
	"risk_framework/internal/ingest"
	"risk_framework/internal/metrics"
	"risk_framework/internal/notify"
	"risk_framework/internal/queue"
)

// Watcher monitors the configured directories for status workbooks and
// enqueues extract-and-submit jobs. A content hash per path suppresses
// duplicate events for unchanged files, and one shared mutex serializes all
// file processing so concurrent events for the same workbook cannot
// interleave.
type Watcher struct {
	cfg     config.Config
	queue   *queue.Queue
	poster  *notify.Poster
	metrics *metrics.Metrics

	mu         sync.Mutex
	fileHashes map[string]string
}

func New(cfg config.Config, q *queue.Queue, poster *notify.Poster, m *metrics.Metrics) *Watcher {
	return &Watcher{
		cfg:        cfg,
		queue:      q,
		poster:     poster,
		metrics:    m,
		fileHashes: make(map[string]string),
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && isWorkbook(evt.Name) {
					w.enqueueFile(ctx, evt.Name)
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()

	var added int
	for _, dir := range w.cfg.WatchDirs {
		if _, err := os.Stat(dir); err != nil {
			log.Printf("watch directory does not exist: %s", dir)
			continue
		}
		if err := watcher.Add(dir); err != nil {
			log.Printf("watch %s: %v", dir, err)
			continue
		}
		log.Printf("watching directory: %s", dir)
		added++
	}
	if added == 0 {
		log.Println("no watchable directories configured")
	}
	return nil
}

// Backfill enqueues processing for workbooks already present in the watch
// directories at startup.
func (w *Watcher) Backfill(ctx context.Context) error {
	for _, dir := range w.cfg.WatchDirs {
		entries, err := filepath.Glob(filepath.Join(dir, "*"))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if isWorkbook(e) {
				w.enqueueFile(ctx, e)
			}
		}
	}
	return nil
}

func (w *Watcher) enqueueFile(ctx context.Context, path string) {
	job := queue.Job{
		ID:     filepath.Base(path),
		Source: "watcher",
		Work: func(jobCtx context.Context) error {
			return w.processFile(jobCtx, path)
		},
	}
	enqueued, dropped := w.queue.EnqueueWithRetry(ctx, job, 5*time.Second, 250*time.Millisecond)
	if dropped {
		log.Printf("watcher: queue full, dropped %s", path)
	} else if !enqueued {
		log.Printf("watcher: could not enqueue %s", path)
	}
}

// processFile extracts rows from one workbook and posts them to the ingest
// endpoint. Failed posts are logged and dropped; a later write to the file
// produces a new hash and a fresh attempt.
func (w *Watcher) processFile(ctx context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hash, err := fileHash(path)
	if err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	if w.fileHashes[path] == hash {
		log.Printf("watcher: %s unchanged, skipping", path)
		return nil
	}
	w.fileHashes[path] = hash

	res, err := ingest.LoadWorkbook(path, w.cfg.SheetName)
	if err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}
	if len(res.Records) == 0 {
		log.Printf("watcher: no valid rows in %s", path)
		return nil
	}

	rows := make([]ingest.RowPayload, 0, len(res.Records))
	for i := range res.Records {
		rows = append(rows, ingest.RowFromRecord(&res.Records[i]))
	}

	resp, err := w.poster.PostRows(ctx, path, rows)
	if err != nil {
		log.Printf("watcher: submit %s failed: %v", path, err)
		return err
	}
	if !resp.Success {
		log.Printf("watcher: service rejected %s: %s", path, resp.Error)
		return fmt.Errorf("service rejected %s: %s", path, resp.Error)
	}
	w.metrics.RecordFile()
	log.Printf("watcher: processed %d rows from %s", resp.RowsProcessed, path)
	return nil
}

func isWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		return true
	default:
		return false
	}
}

func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
