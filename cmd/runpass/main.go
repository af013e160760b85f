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

// IVC RAG — One-Shot Pass Command
//
// Standalone CLI tool that enqueues a single ingestion pass on the running
// service's queues. Intended for seeding a new deployment or forcing a
// pass outside the schedule.
//
// Usage:
//
//	go run ./cmd/runpass/ --class email
//	go run ./cmd/runpass/ --class document
//	go run ./cmd/runpass/ --class digest --wait
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ivcrag/ingestion/internal/config"
	"github.com/ivcrag/ingestion/internal/models"
	"github.com/ivcrag/ingestion/internal/queue"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	classFlag := flag.String("class", "", "Pass to run: email, document, monitoring or digest (required)")
	waitFlag := flag.Bool("wait", false, "Poll until the enqueued job leaves the queue")
	flag.Parse()

	class := models.ItemClass(*classFlag)
	switch class {
	case models.ClassEmail, models.ClassDocument, models.ClassMonitoring, models.ClassDigest:
	case "":
		fmt.Fprintf(os.Stderr, "Error: --class is required\n\n")
		flag.Usage()
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown class %q\n", *classFlag)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	queueName := queueFor(cfg, class)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	jobs := queue.New(rdb)
	if err := jobs.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	job, err := jobs.Enqueue(ctx, queueName, class, "")
	if err != nil {
		slog.Error("enqueue failed", "error", err)
		os.Exit(1)
	}
	slog.Info("pass enqueued", "job_id", job.ID, "class", class, "queue", queueName)

	if !*waitFlag {
		return
	}

	// Poll until the queue quiets down; the consumer lives in the service.
	for {
		time.Sleep(2 * time.Second)
		counts, err := jobs.CountsFor(ctx, queueName)
		if err != nil {
			slog.Error("counts failed", "error", err)
			os.Exit(1)
		}
		slog.Info("queue depth",
			"queue", queueName,
			"pending", counts.Pending,
			"started", counts.Started,
			"failed", counts.Failed,
		)
		if counts.Pending == 0 && counts.Started == 0 {
			return
		}
	}
}

func queueFor(cfg *config.Config, class models.ItemClass) string {
	switch class {
	case models.ClassDocument:
		return cfg.Queues.Documents
	case models.ClassDigest:
		return cfg.Queues.Digest
	case models.ClassMonitoring:
		return cfg.Queues.Monitoring
	default:
		return cfg.Queues.Emails
	}
}
