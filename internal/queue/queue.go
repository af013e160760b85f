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

// Package queue implements durable named work queues on Redis. Each queue
// holds job IDs in a pending LIST; job records live as JSON under their own
// keys and are tracked through started/failed registries so every state is
// countable. Jobs survive process restarts: a job is only gone once it
// completes and its record expires.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ivcrag/ingestion/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "rag:"

	// completedJobTTL is how long a completed job record stays readable
	// before Redis reclaims it.
	completedJobTTL = 24 * time.Hour
)

// ErrUnknownJob is returned when a job ID has no record in Redis.
var ErrUnknownJob = errors.New("unknown job id")

// ErrBadTransition is returned for a status change the lifecycle forbids.
// Transitions run forward only (pending -> started -> completed|failed);
// failed -> pending happens solely through Requeue, and completed is terminal.
var ErrBadTransition = errors.New("invalid job status transition")

// Counts is the per-queue depth snapshot exposed by the status endpoint.
type Counts struct {
	Pending int64 `json:"pending"`
	Started int64 `json:"started"`
	Failed  int64 `json:"failed"`
}

// Queue manages durable jobs across the named queues.
type Queue struct {
	rdb *redis.Client
}

// New creates a queue manager backed by Redis.
func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func jobKey(id string) string       { return keyPrefix + "job:" + id }
func pendingKey(name string) string { return keyPrefix + "queue:" + name }
func workingKey(name string) string { return keyPrefix + "queue:" + name + ":working" }
func startedKey(name string) string { return keyPrefix + "queue:" + name + ":started" }
func failedKey(name string) string  { return keyPrefix + "queue:" + name + ":failed" }

// Enqueue creates a pending job and pushes it onto the named queue.
func (q *Queue) Enqueue(ctx context.Context, queueName string, class models.ItemClass, itemRef string) (*models.QueueJob, error) {
	job := &models.QueueJob{
		ID:        uuid.New().String(),
		Class:     class,
		ItemRef:   itemRef,
		Status:    models.JobPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := q.saveJob(ctx, job, 0); err != nil {
		return nil, err
	}
	if err := q.rdb.LPush(ctx, pendingKey(queueName), job.ID).Err(); err != nil {
		return nil, fmt.Errorf("enqueue LPUSH: %w", err)
	}

	slog.Info("enqueued job",
		"job_id", job.ID,
		"class", job.Class,
		"item_ref", job.ItemRef,
		"queue", queueName,
	)
	return job, nil
}

// Dequeue atomically moves the oldest pending job into the working list and
// marks it started. It blocks up to the given timeout; a nil job with nil
// error means the queue stayed empty.
func (q *Queue) Dequeue(ctx context.Context, queueName string, block time.Duration) (*models.QueueJob, error) {
	id, err := q.rdb.BLMove(ctx, pendingKey(queueName), workingKey(queueName), "RIGHT", "LEFT", block).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue BLMOVE: %w", err)
	}

	job, err := q.loadJob(ctx, id)
	if err != nil {
		// Orphaned ID with no record: drop it rather than loop on it.
		q.rdb.LRem(ctx, workingKey(queueName), 1, id)
		return nil, err
	}

	job.Status = models.JobStarted
	job.Attempts++
	if err := q.saveJob(ctx, job, 0); err != nil {
		return nil, err
	}
	if err := q.rdb.SAdd(ctx, startedKey(queueName), id).Err(); err != nil {
		return nil, fmt.Errorf("dequeue SADD started: %w", err)
	}
	return job, nil
}

// ReportStatus records a terminal outcome for a started job. Only
// started -> completed and started -> failed are accepted here.
func (q *Queue) ReportStatus(ctx context.Context, queueName, jobID string, status models.JobStatus, lastError string) error {
	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		return err
	}

	if job.Status != models.JobStarted || (status != models.JobCompleted && status != models.JobFailed) {
		return fmt.Errorf("%w: %s -> %s", ErrBadTransition, job.Status, status)
	}

	job.Status = status
	job.LastError = lastError

	ttl := time.Duration(0)
	if status == models.JobCompleted {
		ttl = completedJobTTL
	}
	if err := q.saveJob(ctx, job, ttl); err != nil {
		return err
	}

	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, workingKey(queueName), 1, jobID)
	pipe.SRem(ctx, startedKey(queueName), jobID)
	if status == models.JobFailed {
		pipe.SAdd(ctx, failedKey(queueName), jobID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("report status registries: %w", err)
	}

	slog.Info("job finished",
		"job_id", jobID,
		"queue", queueName,
		"status", status,
		"attempts", job.Attempts,
	)
	return nil
}

// Requeue moves a failed job back to pending for another attempt. Returns
// false without error when the job has exhausted maxAttempts; it then stays
// in the failed registry with its last error attached.
func (q *Queue) Requeue(ctx context.Context, queueName, jobID string, maxAttempts int) (bool, error) {
	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status != models.JobFailed {
		return false, fmt.Errorf("%w: %s -> %s", ErrBadTransition, job.Status, models.JobPending)
	}
	if job.Attempts >= maxAttempts {
		slog.Warn("job exhausted retries",
			"job_id", jobID,
			"queue", queueName,
			"attempts", job.Attempts,
			"last_error", job.LastError,
		)
		return false, nil
	}

	job.Status = models.JobPending
	if err := q.saveJob(ctx, job, 0); err != nil {
		return false, err
	}

	pipe := q.rdb.TxPipeline()
	pipe.SRem(ctx, failedKey(queueName), jobID)
	pipe.LPush(ctx, pendingKey(queueName), jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("requeue: %w", err)
	}
	return true, nil
}

// CountsFor returns the depth of each state registry for one named queue.
func (q *Queue) CountsFor(ctx context.Context, queueName string) (Counts, error) {
	var c Counts
	pipe := q.rdb.Pipeline()
	pending := pipe.LLen(ctx, pendingKey(queueName))
	started := pipe.SCard(ctx, startedKey(queueName))
	failed := pipe.SCard(ctx, failedKey(queueName))
	if _, err := pipe.Exec(ctx); err != nil {
		return c, fmt.Errorf("queue counts: %w", err)
	}
	c.Pending = pending.Val()
	c.Started = started.Val()
	c.Failed = failed.Val()
	return c, nil
}

// Ping checks the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return q.rdb.Ping(ctx).Err()
}

func (q *Queue) saveJob(ctx context.Context, job *models.QueueJob, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.rdb.Set(ctx, jobKey(job.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (q *Queue) loadJob(ctx context.Context, id string) (*models.QueueJob, error) {
	data, err := q.rdb.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	var job models.QueueJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}
