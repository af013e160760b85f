// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package worker consumes the durable queues. One blocking loop runs per
// named queue, so distinct item classes process in parallel while jobs
// within a queue stay serial. Failed jobs requeue up to the configured
// attempt limit.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ivcrag/ingestion/internal/config"
	"github.com/ivcrag/ingestion/internal/digest"
	"github.com/ivcrag/ingestion/internal/models"
	"github.com/panjf2000/ants/v2"
)

const dequeueBlock = 5 * time.Second

// Passes is the orchestrator surface the worker dispatches to.
type Passes interface {
	RunEmailPass(ctx context.Context) error
	RunDocumentPass(ctx context.Context) error
	MonitorDocuments(ctx context.Context) error
}

// DigestBuilder produces the periodic digest report.
type DigestBuilder interface {
	Build(ctx context.Context) (*digest.Report, error)
}

// JobQueue is the queue surface the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context, queueName string, block time.Duration) (*models.QueueJob, error)
	ReportStatus(ctx context.Context, queueName, jobID string, status models.JobStatus, lastError string) error
	Requeue(ctx context.Context, queueName, jobID string, maxAttempts int) (bool, error)
}

// Worker runs the per-queue consumer loops.
type Worker struct {
	queues      config.QueueNames
	jobs        JobQueue
	passes      Passes
	digests     DigestBuilder
	maxAttempts int
	pool        *ants.Pool
}

// New creates a worker with one pool slot per named queue.
func New(queues config.QueueNames, jobs JobQueue, passes Passes, digests DigestBuilder, maxAttempts int) (*Worker, error) {
	pool, err := ants.NewPool(len(queueNames(queues)))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Worker{
		queues:      queues,
		jobs:        jobs,
		passes:      passes,
		digests:     digests,
		maxAttempts: maxAttempts,
		pool:        pool,
	}, nil
}

func queueNames(q config.QueueNames) []string {
	return []string{q.Emails, q.Documents, q.Digest, q.Monitoring}
}

// Run starts one consumer loop per queue and blocks until the context is
// cancelled and all loops have drained.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, name := range queueNames(w.queues) {
		name := name
		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			w.loop(ctx, name)
		})
		if err != nil {
			wg.Done()
			return fmt.Errorf("start consumer for %s: %w", name, err)
		}
	}
	wg.Wait()
	return nil
}

// Release tears down the pool after Run returns.
func (w *Worker) Release() {
	w.pool.Release()
}

func (w *Worker) loop(ctx context.Context, queueName string) {
	slog.Info("queue consumer started", "queue", queueName)
	for ctx.Err() == nil {
		job, err := w.jobs.Dequeue(ctx, queueName, dequeueBlock)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("dequeue failed", "queue", queueName, "error", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.handle(ctx, queueName, job)
	}
	slog.Info("queue consumer stopped", "queue", queueName)
}

func (w *Worker) handle(ctx context.Context, queueName string, job *models.QueueJob) {
	err := w.ProcessQueuedJob(ctx, job)
	if err == nil {
		if repErr := w.jobs.ReportStatus(ctx, queueName, job.ID, models.JobCompleted, ""); repErr != nil {
			slog.Error("report completion", "job_id", job.ID, "error", repErr)
		}
		return
	}

	slog.Error("job failed",
		"job_id", job.ID,
		"queue", queueName,
		"class", job.Class,
		"attempts", job.Attempts,
		"error", err,
	)
	if repErr := w.jobs.ReportStatus(ctx, queueName, job.ID, models.JobFailed, err.Error()); repErr != nil {
		slog.Error("report failure", "job_id", job.ID, "error", repErr)
		return
	}

	requeued, rqErr := w.jobs.Requeue(ctx, queueName, job.ID, w.maxAttempts)
	if rqErr != nil {
		slog.Error("requeue", "job_id", job.ID, "error", rqErr)
		return
	}
	if requeued {
		slog.Info("job requeued", "job_id", job.ID, "queue", queueName, "attempts", job.Attempts)
	}
}

// ProcessQueuedJob dispatches a job to the pass its item class belongs to.
func (w *Worker) ProcessQueuedJob(ctx context.Context, job *models.QueueJob) error {
	switch job.Class {
	case models.ClassEmail:
		return w.passes.RunEmailPass(ctx)
	case models.ClassDocument:
		return w.passes.RunDocumentPass(ctx)
	case models.ClassMonitoring:
		return w.passes.MonitorDocuments(ctx)
	case models.ClassDigest:
		report, err := w.digests.Build(ctx)
		if err != nil {
			return err
		}
		slog.Info("digest generated",
			"window_hours", report.WindowHours,
			"emails", report.TotalEmails,
			"documents", report.TotalDocuments,
			"urgent", len(report.UrgentEmails),
		)
		return nil
	default:
		return fmt.Errorf("unknown item class %q", job.Class)
	}
}
