package ocr

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/models"
)

// ProcessFunc re-enters the pipeline for a deferred document with OCR enabled
// and the async page cap in effect.
type ProcessFunc func(ctx context.Context, id string, raw *models.RawDocument)

// queuedJob is one deferred OCR request. Jobs are held in memory only;
// queue persistence is out of scope for this core.
type queuedJob struct {
	ID         string
	Raw        *models.RawDocument
	EnqueuedAt time.Time
}

// Queue defers OCR for documents above the synchronous page tier and drains
// them on a cron schedule, one at a time.
type Queue struct {
	mu      sync.Mutex
	jobs    []*queuedJob
	cron    *cron.Cron
	process ProcessFunc
	logger  arbor.ILogger
}

// NewQueue creates a deferred OCR queue.
func NewQueue(process ProcessFunc, logger arbor.ILogger) *Queue {
	return &Queue{
		cron:    cron.New(cron.WithSeconds()),
		process: process,
		logger:  logger,
	}
}

// Enqueue schedules a document for deferred OCR and returns its job ID.
func (q *Queue) Enqueue(raw *models.RawDocument) string {
	job := &queuedJob{
		ID:         common.NewJobID(),
		Raw:        raw,
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	pending := len(q.jobs)
	q.mu.Unlock()

	q.logger.Info().
		Str("job_id", job.ID).
		Str("filename", raw.Filename).
		Int("pending", pending).
		Msg("Deferred document for background OCR")

	return job.ID
}

// Start begins scheduled draining.
func (q *Queue) Start(schedule string) error {
	if schedule == "" {
		schedule = "0 * * * * *" // Every minute
	}

	_, err := q.cron.AddFunc(schedule, q.drain)
	if err != nil {
		return err
	}

	q.cron.Start()
	q.logger.Info().Str("schedule", schedule).Msg("Deferred OCR queue started")
	return nil
}

// Stop stops the scheduler. Jobs still queued remain queued.
func (q *Queue) Stop() {
	q.cron.Stop()
	q.logger.Info().Msg("Deferred OCR queue stopped")
}

// RunNow triggers a drain in the background. Long-running callers only; a
// one-shot caller that is about to exit must use DrainNow instead so the
// process outlives the jobs.
func (q *Queue) RunNow() {
	common.SafeGo(q.logger, "ocrQueueDrain", q.drain)
}

// DrainNow processes every queued job before returning.
func (q *Queue) DrainNow() {
	q.drain()
}

// Pending returns the number of queued jobs.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// drain processes every queued job sequentially. The OCR governor already
// serializes recognition work; draining one at a time keeps memory flat.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)

		q.logger.Info().
			Str("job_id", job.ID).
			Str("filename", job.Raw.Filename).
			Dur("queued_for", time.Since(job.EnqueuedAt)).
			Msg("Processing deferred OCR job")

		q.process(ctx, job.ID, job.Raw)
		cancel()
	}
}
