package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"risk_framework/internal/ingest"
)

// Poster submits extracted workbook rows to the companion ingest service.
// One fixed timeout per post; callers log and drop on failure, there is no
// retry.
type Poster struct {
	baseURL string
	client  *http.Client
}

// ProcessRowsResponse is the service's acknowledgement.
type ProcessRowsResponse struct {
	Success       bool   `json:"success"`
	RowsProcessed int    `json:"rows_processed"`
	Error         string `json:"error,omitempty"`
}

func NewPoster(baseURL string, timeout time.Duration) *Poster {
	return &Poster{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// PostRows submits one file's rows to /api/process-rows.
func (p *Poster) PostRows(ctx context.Context, filePath string, rows []ingest.RowPayload) (ProcessRowsResponse, error) {
	payload := ingest.ProcessRowsRequest{
		FilePath:  filePath,
		Rows:      rows,
		TotalRows: len(rows),
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/process-rows", bytes.NewReader(buf))
	if err != nil {
		return ProcessRowsResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return ProcessRowsResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return ProcessRowsResponse{}, fmt.Errorf("ingest service status %d: %s", resp.StatusCode, string(body))
	}
	var out ProcessRowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ProcessRowsResponse{}, err
	}
	return out, nil
}
