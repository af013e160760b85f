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

package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ivcrag/ingestion/internal/config"
	"github.com/ivcrag/ingestion/internal/models"
)

// Enqueuer schedules a job on a named queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, class models.ItemClass, itemRef string) (*models.QueueJob, error)
}

// Scheduler enqueues pass-level jobs on fixed intervals: email passes,
// document monitoring and the digest. Each fires once immediately so a
// fresh deployment does not idle until the first tick.
type Scheduler struct {
	queues Enqueuer
	cfg    *config.Config
}

// NewScheduler creates a pass scheduler.
func NewScheduler(queues Enqueuer, cfg *config.Config) *Scheduler {
	return &Scheduler{queues: queues, cfg: cfg}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	schedule := []struct {
		queue    string
		class    models.ItemClass
		interval time.Duration
	}{
		{s.cfg.Queues.Emails, models.ClassEmail, s.cfg.EmailPassInterval},
		{s.cfg.Queues.Monitoring, models.ClassMonitoring, s.cfg.MonitorInterval},
		{s.cfg.Queues.Digest, models.ClassDigest, s.cfg.DigestInterval},
	}

	for _, entry := range schedule {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.tick(ctx, entry.queue, entry.class, entry.interval)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context, queueName string, class models.ItemClass, interval time.Duration) {
	s.fire(ctx, queueName, class)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.fire(ctx, queueName, class)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, queueName string, class models.ItemClass) {
	if _, err := s.queues.Enqueue(ctx, queueName, class, ""); err != nil {
		slog.Error("schedule pass", "queue", queueName, "class", class, "error", err)
	}
}
