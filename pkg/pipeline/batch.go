package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gnana997/themeforge/pkg/extractor"
	"github.com/gnana997/themeforge/pkg/util"
)

// Runner executes one extraction job. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, req extractor.Request) (*Run, error)
}

// Job is one target submitted to a BatchRunner.
type Job struct {
	ID      int
	Request extractor.Request
}

// JobResult is a successful job.
type JobResult struct {
	Job Job
	Run *Run
}

// JobError is a failed job. Jobs run once and are never retried here.
type JobError struct {
	Job Job
	Err error
}

// BatchRunner runs independent jobs on a fixed set of worker goroutines.
// Jobs share nothing but the Runner.
//
//	b := NewBatchRunner(ctx, 4, pipeline, 0, logger)
//	b.Start()
//	go func() {
//	    for _, j := range jobs { b.Submit(j) }
//	    b.FinishSubmitting()
//	    b.Stop()
//	}()
//	for r := range b.Results() { ... }
type BatchRunner struct {
	numWorkers int
	jobTimeout time.Duration
	runner     Runner
	jobs       chan Job
	results    chan JobResult
	errors     chan JobError
	wg         sync.WaitGroup
	logger     *slog.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	started    atomic.Bool
	stopped    atomic.Bool
	jobsClosed atomic.Bool

	jobsSubmitted atomic.Int64
	jobsSucceeded atomic.Int64
	jobsFailed    atomic.Int64
}

// NewBatchRunner creates a runner. numWorkers 0 sizes the pool from the
// CPU count; jobTimeout 0 leaves jobs bounded only by ctx.
func NewBatchRunner(ctx context.Context, numWorkers int, runner Runner, jobTimeout time.Duration, logger *slog.Logger) *BatchRunner {
	if numWorkers <= 0 {
		numWorkers = util.PoolSize(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &BatchRunner{
		numWorkers: numWorkers,
		jobTimeout: jobTimeout,
		runner:     runner,
		jobs:       make(chan Job, numWorkers*2),
		results:    make(chan JobResult, numWorkers),
		errors:     make(chan JobError, numWorkers),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start spawns the workers. It must be called before Submit.
func (b *BatchRunner) Start() {
	if !b.started.CompareAndSwap(false, true) {
		b.logger.Warn("batch runner already started")
		return
	}
	b.logger.Info("starting batch runner", "workers", b.numWorkers)
	for i := 0; i < b.numWorkers; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
}

func (b *BatchRunner) worker(id int) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			b.logger.Debug("worker cancelled", "worker_id", id)
			return
		case job, ok := <-b.jobs:
			if !ok {
				return
			}
			b.process(id, job)
		}
	}
}

func (b *BatchRunner) process(workerID int, job Job) {
	ctx := b.ctx
	if b.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.jobTimeout)
		defer cancel()
	}

	b.logger.Debug("job started", "worker_id", workerID, "job_id", job.ID, "url", job.Request.URL)
	run, err := b.runner.Run(ctx, job.Request)
	if err != nil {
		b.jobsFailed.Add(1)
		b.logger.Warn("job failed", "job_id", job.ID, "url", job.Request.URL, "error", err)
		b.errors <- JobError{Job: job, Err: err}
		return
	}
	b.jobsSucceeded.Add(1)
	b.results <- JobResult{Job: job, Run: run}
}

// Submit enqueues a job, blocking while the queue is full.
func (b *BatchRunner) Submit(job Job) error {
	if b.stopped.Load() || b.jobsClosed.Load() {
		return fmt.Errorf("batch runner is not accepting jobs")
	}
	b.jobsSubmitted.Add(1)
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("batch runner cancelled: %w", b.ctx.Err())
	case b.jobs <- job:
		return nil
	}
}

// Results delivers successful jobs until Stop closes it.
func (b *BatchRunner) Results() <-chan JobResult {
	return b.results
}

// Errors delivers failed jobs until Stop closes it.
func (b *BatchRunner) Errors() <-chan JobError {
	return b.errors
}

// FinishSubmitting closes the queue; workers exit once it drains.
// Idempotent.
func (b *BatchRunner) FinishSubmitting() {
	if b.jobsClosed.CompareAndSwap(false, true) {
		close(b.jobs)
		b.logger.Debug("job queue closed", "submitted", b.jobsSubmitted.Load())
	}
}

// Wait blocks until every worker has exited.
func (b *BatchRunner) Wait() {
	b.wg.Wait()
}

// Stop closes the queue, waits for in-flight jobs and closes the result
// channels. Consumers must keep draining Results and Errors until then.
// Idempotent.
func (b *BatchRunner) Stop() {
	if !b.stopped.CompareAndSwap(false, true) {
		return
	}
	b.FinishSubmitting()
	b.wg.Wait()
	// Jobs left queued after cancellation never ran.
	for job := range b.jobs {
		b.jobsFailed.Add(1)
		b.errors <- JobError{Job: job, Err: fmt.Errorf("job not run: %w", context.Cause(b.ctx))}
	}
	close(b.results)
	close(b.errors)
	b.cancel()
	b.logger.Info("batch runner stopped",
		"submitted", b.jobsSubmitted.Load(),
		"succeeded", b.jobsSucceeded.Load(),
		"failed", b.jobsFailed.Load())
}

// Stats reports current counters.
func (b *BatchRunner) Stats() BatchStats {
	return BatchStats{
		NumWorkers:    b.numWorkers,
		JobsSubmitted: b.jobsSubmitted.Load(),
		JobsSucceeded: b.jobsSucceeded.Load(),
		JobsFailed:    b.jobsFailed.Load(),
		QueueLength:   len(b.jobs),
	}
}

// BatchStats summarizes a BatchRunner.
type BatchStats struct {
	NumWorkers    int   `json:"numWorkers"`
	JobsSubmitted int64 `json:"jobsSubmitted"`
	JobsSucceeded int64 `json:"jobsSucceeded"`
	JobsFailed    int64 `json:"jobsFailed"`
	QueueLength   int   `json:"queueLength"`
}

// RunBatch runs every request on a fresh BatchRunner and returns results
// and errors ordered by request index. Requests that could not be queued
// because ctx ended are reported as errors.
func RunBatch(ctx context.Context, runner Runner, reqs []extractor.Request, workers int, jobTimeout time.Duration, logger *slog.Logger) ([]JobResult, []JobError) {
	b := NewBatchRunner(ctx, util.FetchWorkers(workers, len(reqs)), runner, jobTimeout, logger)
	b.Start()

	var rejected []JobError
	go func() {
		for i, req := range reqs {
			job := Job{ID: i, Request: req}
			if err := b.Submit(job); err != nil {
				rejected = append(rejected, JobError{Job: job, Err: err})
			}
		}
		b.Stop()
	}()

	var results []JobResult
	var errs []JobError
	resultsCh, errorsCh := b.Results(), b.Errors()
	for resultsCh != nil || errorsCh != nil {
		select {
		case r, ok := <-resultsCh:
			if !ok {
				resultsCh = nil
				continue
			}
			results = append(results, r)
		case e, ok := <-errorsCh:
			if !ok {
				errorsCh = nil
				continue
			}
			errs = append(errs, e)
		}
	}
	// The submitter finished before Stop closed the channels.
	errs = append(errs, rejected...)

	sort.Slice(results, func(i, j int) bool { return results[i].Job.ID < results[j].Job.ID })
	sort.Slice(errs, func(i, j int) bool { return errs[i].Job.ID < errs[j].Job.ID })
	return results, errs
}
