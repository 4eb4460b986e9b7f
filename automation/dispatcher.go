package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"dubforge/storage"
)

// Dispatcher consumes queued jobs and runs them through the pipeline
// with a fixed pool of workers. Job state transitions are written to
// storage after every stage so status polling stays accurate.
type Dispatcher struct {
	store   storage.Store
	queue   Queue
	stages  []Stage
	workers int
	logger  *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher with the given worker count.
func NewDispatcher(store storage.Store, queue Queue, stages []Stage, workers int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:   store,
		queue:   queue,
		stages:  stages,
		workers: workers,
		logger:  logger,
	}
}

// Enqueue records a new job and publishes it for processing.
func (d *Dispatcher) Enqueue(ctx context.Context, projectID, jobType string) (*storage.Job, error) {
	job := &storage.Job{
		ProjectID: projectID,
		Type:      jobType,
		Status:    storage.JobQueued,
	}
	if err := d.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if err := d.queue.Publish(ctx, job.ID); err != nil {
		job.Status = storage.JobFailed
		job.Error = "enqueue failed: " + err.Error()
		job.FinishedAt = time.Now()
		d.store.UpdateJob(ctx, job)
		return nil, err
	}

	return job, nil
}

// Start launches the worker pool. It returns once consumption begins.
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)

	messages, err := d.queue.Consume(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i, messages)
	}

	d.logger.Info("dispatcher started", zap.Int("workers", d.workers))
	return nil
}

// Stop cancels consumption and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int, messages <-chan Message) {
	defer d.wg.Done()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := d.process(ctx, msg.JobID); err != nil {
				d.logger.Error("job failed",
					zap.Int("worker", id),
					zap.String("job_id", msg.JobID),
					zap.Error(err))
				msg.Nack(false)
			} else {
				msg.Ack()
			}
		case <-ctx.Done():
			return
		}
	}
}

// process runs one job through every stage.
func (d *Dispatcher) process(ctx context.Context, jobID string) error {
	job, err := d.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Terminal() {
		// Redelivery of a finished job, nothing to do
		return nil
	}

	project, err := d.store.GetProject(ctx, job.ProjectID)
	if err != nil {
		return d.fail(ctx, job, fmt.Errorf("load project: %w", err))
	}

	job.Status = storage.JobRunning
	job.StartedAt = time.Now()
	if job.Result == nil {
		job.Result = make(map[string]string)
	}
	if err := d.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	for i, stage := range d.stages {
		job.Stage = stage.Name
		job.Progress = i * 100 / len(d.stages)
		if err := d.store.UpdateJob(ctx, job); err != nil {
			return err
		}

		d.logger.Info("stage started",
			zap.String("job_id", job.ID),
			zap.String("stage", stage.Name))

		out, err := stage.Run(ctx, job, project)
		if err != nil {
			return d.fail(ctx, job, fmt.Errorf("stage %s: %w", stage.Name, err))
		}
		for k, v := range out {
			job.Result[k] = v
		}
	}

	job.Status = storage.JobCompleted
	job.Progress = 100
	job.Stage = ""
	job.FinishedAt = time.Now()
	if err := d.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	d.logger.Info("job completed", zap.String("job_id", job.ID))
	return nil
}

// fail marks the job failed and records the error.
func (d *Dispatcher) fail(ctx context.Context, job *storage.Job, cause error) error {
	job.Status = storage.JobFailed
	job.Error = cause.Error()
	job.FinishedAt = time.Now()
	if err := d.store.UpdateJob(ctx, job); err != nil {
		d.logger.Error("failed to record job failure",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
	return cause
}
