// Package doctly is the client for the external document conversion service.
// The service is asynchronous by nature: a document is uploaded, then its job
// is polled until it completes or fails. Polling decouples the worker from
// the service's completion latency while bounding total wait, so one stuck
// job cannot block the queue without a defined failure.
package doctly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparse/constants"
	"github.com/joseph-ayodele/docparse/internal/common"
)

// Config for the Doctly client.
type Config struct {
	APIKey        string        // if empty, submission fails eagerly
	BaseURL       string        // default https://api.doctly.ai/api/v1
	Accuracy      string        // processing accuracy level ("ultra", "high", "medium")
	UploadTimeout time.Duration // ceiling for one document upload
	PollInterval  time.Duration // delay between status checks
	MaxWait       time.Duration // wall-clock budget for AwaitCompletion
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.doctly.ai/api/v1"
	}
	if cfg.Accuracy == "" {
		cfg.Accuracy = "ultra"
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 300 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 1800 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		// No client-level timeout: uploads and downloads get per-request
		// contexts sized to their own budgets.
		http: &http.Client{},
		log:  logger,
	}
}

// endpoint maps a variant to its submission path. The table variant uses the
// plain markdown conversion endpoint, the structured variant the extraction
// endpoint that returns a JSON document.
func (c *Client) endpoint(v constants.Variant) string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	if v == constants.VariantStructured {
		return base + "/documents/extract/"
	}
	return base + "/documents/"
}

// SubmitDocument uploads content for the variant's endpoint and returns the
// external job id. Network failure, a non-2xx response, or hitting the
// upload timeout all wrap common.ErrSubmission.
func (c *Client) SubmitDocument(ctx context.Context, content []byte, filename string, variant constants.Variant) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: DOCTLY_API_KEY is not set", common.ErrSubmission)
	}

	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("doctly.upload.start",
		"req_id", rid,
		"filename", filename,
		"variant", string(variant),
		"bytes", len(content),
		"accuracy", c.cfg.Accuracy,
	)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", filename)
	if err != nil {
		return "", fmt.Errorf("%w: build multipart: %v", common.ErrSubmission, err)
	}
	if _, err := fw.Write(content); err != nil {
		return "", fmt.Errorf("%w: write multipart: %v", common.ErrSubmission, err)
	}
	if err := mw.WriteField("accuracy", c.cfg.Accuracy); err != nil {
		return "", fmt.Errorf("%w: write accuracy field: %v", common.ErrSubmission, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: close multipart: %v", common.ErrSubmission, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(variant), &body)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", common.ErrSubmission, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("doctly.upload.send_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %v", common.ErrSubmission, err)
	}
	defer closeBody(resp.Body, c.log, rid)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		c.log.Error("doctly.upload.status_error", "req_id", rid, "status", resp.StatusCode, "body", string(raw))
		return "", fmt.Errorf("%w: status %d: %s", common.ErrSubmission, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	id := extractID(raw)
	if id == "" {
		c.log.Error("doctly.upload.no_id", "req_id", rid, "body", string(raw))
		return "", fmt.Errorf("%w: no document id in response", common.ErrSubmission)
	}

	c.log.Info("doctly.upload.ok",
		"req_id", rid,
		"external_job_id", id,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return id, nil
}

// AwaitCompletion polls the job's status every PollInterval until the service
// reports completion (then returns the downloaded payload), reports failure
// (common.ErrConversionService with the service's detail), or MaxWait passes
// (common.ErrPollingTimeout). Transient poll errors are logged and retried on
// the next tick.
func (c *Client) AwaitCompletion(ctx context.Context, externalID string) ([]byte, error) {
	start := time.Now()
	deadline := start.Add(c.cfg.MaxWait)
	c.log.Info("doctly.poll.start", "external_job_id", externalID, "max_wait", c.cfg.MaxWait.String())

	for time.Now().Before(deadline) {
		status, detail, err := c.jobStatus(ctx, externalID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", common.ErrPollingTimeout, ctx.Err())
			}
			c.log.Warn("doctly.poll.transient_error", "external_job_id", externalID, "error", err)
		case status == "COMPLETED":
			c.log.Info("doctly.poll.completed",
				"external_job_id", externalID,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return c.download(ctx, externalID)
		case status == "FAILED" || status == "ERROR":
			c.log.Error("doctly.poll.job_failed", "external_job_id", externalID, "detail", detail)
			if detail == "" {
				detail = "unknown error"
			}
			return nil, fmt.Errorf("%w: %s", common.ErrConversionService, detail)
		case status == "QUEUED" || status == "PROCESSING" || status == "IN_PROGRESS":
			// still running
		default:
			c.log.Warn("doctly.poll.unknown_status", "external_job_id", externalID, "status", status)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", common.ErrPollingTimeout, ctx.Err())
		case <-time.After(c.cfg.PollInterval):
		}
	}

	elapsed := time.Since(start)
	c.log.Error("doctly.poll.timeout", "external_job_id", externalID, "elapsed_ms", elapsed.Milliseconds())
	return nil, fmt.Errorf("%w: job %s did not finish within %s", common.ErrPollingTimeout, externalID, c.cfg.MaxWait)
}

func (c *Client) jobStatus(ctx context.Context, externalID string) (status, detail string, err error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/documents/" + externalID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", err
	}
	defer closeBody(resp.Body, c.log, externalID)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", "", fmt.Errorf("status check: non-2xx status %d", resp.StatusCode)
	}

	var st struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return "", "", fmt.Errorf("decode status response: %w", err)
	}
	return strings.ToUpper(st.Status), st.ErrorMessage, nil
}

// download fetches the finished job's payload. An empty payload is treated as
// a service failure, not a success with no content.
func (c *Client) download(ctx context.Context, externalID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/documents/" + externalID + "/download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build download request: %v", common.ErrConversionService, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", common.ErrConversionService, err)
	}
	defer closeBody(resp.Body, c.log, externalID)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: download status %d", common.ErrConversionService, resp.StatusCode)
	}

	// The service reports errors for finished jobs as JSON bodies on the
	// download route.
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Message != "" {
			return nil, fmt.Errorf("%w: %s", common.ErrConversionService, e.Message)
		}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: downloaded payload is empty", common.ErrConversionService)
	}

	c.log.Info("doctly.download.ok", "external_job_id", externalID, "bytes", len(raw))
	return raw, nil
}

// extractID tolerates the id field names the service has used across
// versions.
func extractID(raw []byte) string {
	var r struct {
		ID         string `json:"id"`
		JobID      string `json:"job_id"`
		DocumentID string `json:"document_id"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		// Uploads respond with a one-element array in some versions.
		var arr []struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(raw, &arr) == nil && len(arr) > 0 {
			return arr[0].ID
		}
		return ""
	}
	switch {
	case r.ID != "":
		return r.ID
	case r.JobID != "":
		return r.JobID
	default:
		return r.DocumentID
	}
}

func closeBody(body io.ReadCloser, logger *slog.Logger, id string) {
	if err := body.Close(); err != nil {
		logger.Warn("doctly.response_body_close_error", "id", id, "error", err)
	}
}
