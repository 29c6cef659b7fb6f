// Package worker drives each job through the conversion pipeline. One worker
// runs for the lifetime of the process and jobs are strictly serialized:
// a job must reach a terminal state before the next one is taken, so this
// process never issues overlapping conversion-service or object-store
// requests for its own queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/docparse/constants"
	"github.com/joseph-ayodele/docparse/internal/common"
	"github.com/joseph-ayodele/docparse/internal/conversion"
	"github.com/joseph-ayodele/docparse/internal/entity"
	"github.com/joseph-ayodele/docparse/internal/export"
	"github.com/joseph-ayodele/docparse/internal/notify"
	"github.com/joseph-ayodele/docparse/internal/queue"
	"github.com/joseph-ayodele/docparse/internal/repository"
	"github.com/joseph-ayodele/docparse/internal/storage"
)

// ConversionClient is the external conversion service boundary: submit a
// document, then await the asynchronous job's payload.
type ConversionClient interface {
	SubmitDocument(ctx context.Context, content []byte, filename string, variant constants.Variant) (string, error)
	AwaitCompletion(ctx context.Context, externalID string) ([]byte, error)
}

// Worker is the queue's single consumer.
type Worker struct {
	queue     *queue.JobQueue
	store     storage.Gateway
	converter ConversionClient
	notifier  notify.Notifier
	history   repository.HistoryRepository // optional
	logger    *slog.Logger

	wg sync.WaitGroup
}

func New(q *queue.JobQueue, store storage.Gateway, converter ConversionClient, notifier notify.Notifier, history repository.HistoryRepository, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:     q,
		store:     store,
		converter: converter,
		notifier:  notifier,
		history:   history,
		logger:    logger,
	}
}

// Start launches the consumer loop in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.Run(ctx)
	}()
}

// Wait blocks until the loop has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Run is the worker's only entry point: it takes one job at a time and drives
// it to a terminal state. The loop itself never exits because of a job's
// failure — only queue shutdown or context cancellation end it.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker.started")
	for {
		job, ok := w.queue.TakeNext(ctx)
		if !ok {
			w.logger.Info("worker.stopped")
			return
		}
		w.processJob(ctx, job)
	}
}

// processJob executes the pipeline for one job and guarantees exactly one
// outcome notification, success or error, even on unexpected internal faults.
func (w *Worker) processJob(ctx context.Context, job entity.Job) {
	job.Status = constants.JobStatusProcessing
	job.StartedAt = time.Now().UTC()
	w.logger.Info("worker.job.start",
		"job_id", job.ID,
		"source", job.Source.String(),
		"variant", string(job.Variant),
		"callback_url", job.CallbackURL,
	)

	outputURL, err := w.runPipeline(ctx, &job)
	job.FinishedAt = time.Now().UTC()

	var payload entity.Notification
	if err != nil {
		job.Status = constants.JobStatusFailed
		job.ErrorDetail = err.Error()
		payload = entity.ErrorNotification(err.Error(), job.Source.OriginalName(), job.ExternalJobID)
		w.logger.Error("worker.job.failed",
			"job_id", job.ID,
			"error", err,
			"external_job_id", job.ExternalJobID,
			"elapsed_ms", job.FinishedAt.Sub(job.StartedAt).Milliseconds(),
		)
	} else {
		job.Status = constants.JobStatusSucceeded
		payload = entity.SuccessNotification(outputURL, job.Source.OriginalName(), job.ExternalJobID)
		w.logger.Info("worker.job.succeeded",
			"job_id", job.ID,
			"output_url", outputURL,
			"external_job_id", job.ExternalJobID,
			"elapsed_ms", job.FinishedAt.Sub(job.StartedAt).Milliseconds(),
		)
	}

	if nErr := w.notifier.Deliver(ctx, job.CallbackURL, payload); nErr != nil {
		// Best effort only: a failed webhook never re-queues the job.
		w.logger.Error("worker.notify.failed", "job_id", job.ID, "callback_url", job.CallbackURL, "error", nErr)
	}

	if w.history != nil {
		if hErr := w.history.RecordOutcome(ctx, &job); hErr != nil {
			w.logger.Warn("worker.history.record_failed", "job_id", job.ID, "error", hErr)
		}
	}
}

// runPipeline runs the stages in order and returns the output's public URL.
// A panic in any stage is recovered and surfaced as an internal error so the
// job still terminates with a notification.
func (w *Worker) runPipeline(ctx context.Context, job *entity.Job) (outputURL string, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker.job.panic", "job_id", job.ID, "panic", fmt.Sprintf("%v", r))
			err = fmt.Errorf("%w: unexpected fault: %v", common.ErrInternal, r)
		}
	}()

	// 1. Fetch input bytes.
	content, err := w.store.Read(ctx, job.Source)
	if err != nil {
		return "", err
	}

	// 2. Convert via the external service.
	externalID, err := w.converter.SubmitDocument(ctx, content, job.Source.OriginalName(), job.Variant)
	if err != nil {
		return "", err
	}
	job.ExternalJobID = externalID

	payload, err := w.converter.AwaitCompletion(ctx, externalID)
	if err != nil {
		return "", err
	}

	// 3. Structural-to-tabular conversion. Converters degrade to fallback
	// output instead of failing, so a malformed payload still succeeds.
	result := conversion.ForVariant(job.Variant)(payload)
	if result.Columns() == 1 && result.Header[0] == conversion.FallbackHeader {
		w.logger.Warn("worker.convert.degraded", "job_id", job.ID, "rows", len(result.Rows))
	} else {
		w.logger.Info("worker.convert.ok", "job_id", job.ID, "columns", result.Columns(), "rows", len(result.Rows))
	}

	// 4. Serialize and store at the derived output location.
	output, err := export.Serialize(result, job.OutputFormat)
	if err != nil {
		return "", fmt.Errorf("%w: serialize output: %v", common.ErrInternal, err)
	}
	outputURL, err = w.store.Write(ctx, job.OutputLocation(), output, export.ContentType(job.OutputFormat))
	if err != nil {
		return "", err
	}
	return outputURL, nil
}

// IsTerminalFailure reports whether err is one of the taxonomy errors that
// fail a job (as opposed to the locally recovered ones).
func IsTerminalFailure(err error) bool {
	return errors.Is(err, common.ErrStorage) ||
		errors.Is(err, common.ErrSubmission) ||
		errors.Is(err, common.ErrPollingTimeout) ||
		errors.Is(err, common.ErrConversionService) ||
		errors.Is(err, common.ErrInternal)
}
