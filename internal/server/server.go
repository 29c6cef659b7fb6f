// Package server is the producer-facing HTTP boundary: it validates
// submissions, enqueues jobs, and exposes the health and history surfaces.
// All real work happens in the worker; handlers here stay thin.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docparse/constants"
	"github.com/joseph-ayodele/docparse/internal/common"
	"github.com/joseph-ayodele/docparse/internal/entity"
	"github.com/joseph-ayodele/docparse/internal/queue"
	"github.com/joseph-ayodele/docparse/internal/repository"
)

const serviceVersion = "1.0.0"

// ParseRequest is the submission body shared by both variant routes.
type ParseRequest struct {
	S3Bucket     string `json:"s3_bucket"`
	S3Key        string `json:"s3_key"`
	WebhookURL   string `json:"webhook_url"`
	OutputFormat string `json:"output_format,omitempty"`
}

// ParseResponse acknowledges a queued job with its snapshot position.
type ParseResponse struct {
	Status   string `json:"status"`
	Position int    `json:"position"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type Server struct {
	cfg     *common.Config
	queue   *queue.JobQueue
	history repository.HistoryRepository // optional
	schema  *jsonschema.Schema
	logger  *slog.Logger
}

func New(cfg *common.Config, q *queue.JobQueue, history repository.HistoryRepository, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		queue:   q,
		history: history,
		schema:  compileParseRequestSchema(),
		logger:  logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /parse", s.handleParse(constants.VariantTable))
	mux.HandleFunc("POST /parse-json", s.handleParse(constants.VariantStructured))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /jobs/recent", s.handleRecentJobs)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

// handleParse builds the submission handler for one variant. Both routes
// share this code path; only the variant differs.
func (s *Server) handleParse(variant constants.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()

		// Configuration is checked eagerly, before the job queue is ever
		// touched: a misconfigured service must reject submissions with a
		// stable error rather than fail jobs later in the pipeline.
		if missing := s.cfg.MissingCredentials(); len(missing) > 0 {
			detail := "missing environment variables: " + strings.Join(missing, ", ")
			s.logger.Error("server.parse.config_error", "req_id", reqID, "detail", detail)
			s.writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: detail})
			return
		}

		var req ParseRequest
		body := json.NewDecoder(r.Body)
		if err := body.Decode(&req); err != nil {
			s.logger.Warn("server.parse.bad_body", "req_id", reqID, "error", err)
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON body"})
			return
		}
		if err := s.validateRequest(req); err != nil {
			s.logger.Warn("server.parse.invalid_request", "req_id", reqID, "error", err)
			s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
			return
		}

		job := entity.Job{
			ID:           uuid.New(),
			Source:       entity.Location{Bucket: req.S3Bucket, Key: req.S3Key},
			CallbackURL:  req.WebhookURL,
			Variant:      variant,
			OutputFormat: constants.OutputFormat(req.OutputFormat),
			Status:       constants.JobStatusQueued,
			SubmittedAt:  time.Now().UTC(),
		}

		position, err := s.queue.Submit(job)
		if err != nil {
			s.logger.Error("server.parse.submit_failed", "req_id", reqID, "error", err)
			s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "service is shutting down"})
			return
		}

		s.logger.Info("server.parse.queued",
			"req_id", reqID,
			"job_id", job.ID,
			"source", job.Source.String(),
			"variant", string(variant),
			"position", position,
		)
		s.writeJSON(w, http.StatusOK, ParseResponse{Status: "queued", Position: position})
	}
}

// validateRequest runs the JSON-Schema check plus the enum checks the schema
// already encodes, so the error text names the offending field.
func (s *Server) validateRequest(req ParseRequest) error {
	doc := map[string]any{
		"s3_bucket":   req.S3Bucket,
		"s3_key":      req.S3Key,
		"webhook_url": req.WebhookURL,
	}
	if req.OutputFormat != "" {
		doc["output_format"] = req.OutputFormat
	}
	if err := s.schema.Validate(doc); err != nil {
		return common.WrapError(common.ErrInvalidInput, err.Error())
	}
	if !constants.ValidOutputFormat(constants.OutputFormat(req.OutputFormat)) {
		return common.WrapError(common.ErrInvalidInput, "unsupported output_format")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"queue_size": s.queue.Size(),
		"service":    s.cfg.Server.ServiceName,
	})
}

func (s *Server) handleRecentJobs(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, []repository.HistoryRecord{})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("server.jobs_recent.failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "history unavailable"})
		return
	}
	if records == nil {
		records = []repository.HistoryRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": s.cfg.Server.ServiceName,
		"version": serviceVersion,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server.write_response_failed", "error", err)
	}
}
