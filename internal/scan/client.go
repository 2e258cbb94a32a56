// Package scan consumes the external content-scan API: submit content,
// poll for a verdict, fall back to a locally generated mock result when
// the service is slow or unreachable. Callers never see an error from a
// scan; local-only operation stays fully usable.
package scan

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mediavault/mediavault/internal/logging"
	"github.com/mediavault/mediavault/internal/models"
)

const (
	StatusPending = "pending"
	StatusClean   = "clean"
	StatusFlagged = "flagged"

	defaultPollInterval = 2 * time.Second
	defaultMaxAttempts  = 10
	defaultHTTPTimeout  = 10 * time.Second

	mockIDPrefix = "mock_"
)

// Result is a scan verdict. Mock marks verdicts generated locally after
// the service could not be reached or did not finish in time.
type Result struct {
	ScanID string  `json:"scanId"`
	Status string  `json:"status"`
	Score  float64 `json:"score"`
	Mock   bool    `json:"mock,omitempty"`
}

// Config configures the scan client. Zero values select the defaults.
type Config struct {
	Endpoint     string
	PollInterval time.Duration
	MaxAttempts  int
	Timeout      time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logging.Logger
}

func New(cfg Config, log logging.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

type submitRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Digest      string `json:"digest"`
}

type submitResponse struct {
	ScanID string `json:"scanId"`
}

// Submit registers the file's content for scanning and returns the scan
// identifier. When the service cannot be reached a mock identifier is
// returned instead of an error; Poll recognizes it.
func (c *Client) Submit(ctx context.Context, file *models.FileRecord) string {
	req := submitRequest{
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		Digest:      contentDigest(file.Content),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return mockIDPrefix + uuid.NewString()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/scans", bytes.NewReader(body))
	if err != nil {
		return mockIDPrefix + uuid.NewString()
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn(ctx, "scan submit failed, using mock scan", "error", err)
		return mockIDPrefix + uuid.NewString()
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn(ctx, "scan submit rejected, using mock scan", "status", resp.StatusCode)
		return mockIDPrefix + uuid.NewString()
	}
	var out submitResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.ScanID == "" {
		return mockIDPrefix + uuid.NewString()
	}
	return out.ScanID
}

// Poll fetches the verdict once. A pending verdict returns StatusPending.
func (c *Client) Poll(ctx context.Context, scanID string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/scans/"+scanID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scan status request returned %d", resp.StatusCode)
	}
	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode scan status: %w", err)
	}
	return &out, nil
}

// Check runs the whole submit-then-poll cycle. The verdict is polled on a
// fixed interval up to the attempt budget; exhausting the budget, a mock
// submission, or any transport failure yields a locally generated mock
// verdict. Check itself never fails; only context cancellation cuts it
// short, and even then the mock verdict is returned.
func (c *Client) Check(ctx context.Context, file *models.FileRecord) *Result {
	scanID := c.Submit(ctx, file)
	if isMockID(scanID) {
		return c.mockResult(scanID, file)
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		res, err := c.Poll(ctx, scanID)
		if err != nil {
			c.log.Warn(ctx, "scan poll failed, using mock result", "scan", scanID, "error", err)
			return c.mockResult(scanID, file)
		}
		if res.Status != StatusPending {
			return res
		}
		select {
		case <-ctx.Done():
			return c.mockResult(scanID, file)
		case <-ticker.C:
		}
	}

	c.log.Warn(ctx, "scan did not finish within the poll budget, using mock result", "scan", scanID)
	return c.mockResult(scanID, file)
}

// mockResult derives a stable verdict from the content digest so repeated
// checks of the same file agree with each other.
func (c *Client) mockResult(scanID string, file *models.FileRecord) *Result {
	sum := sha256.Sum256([]byte(file.Content))
	score := float64(sum[0]) / 255 * 0.4
	return &Result{ScanID: scanID, Status: StatusClean, Score: score, Mock: true}
}

func isMockID(id string) bool {
	return len(id) > len(mockIDPrefix) && id[:len(mockIDPrefix)] == mockIDPrefix
}

func contentDigest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
