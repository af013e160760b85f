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

// IVC RAG — Ingestion Service
//
// Entry point for the ingestion service. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL and Redis, registers the configured sources
//  3. Builds the fetchers, extractor, enrichment client and publisher
//  4. Starts one queue consumer per named queue plus the pass scheduler
//  5. Serves health and status endpoints
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ivcrag/ingestion/internal/config"
	"github.com/ivcrag/ingestion/internal/creds"
	"github.com/ivcrag/ingestion/internal/dedup"
	"github.com/ivcrag/ingestion/internal/digest"
	"github.com/ivcrag/ingestion/internal/drive"
	"github.com/ivcrag/ingestion/internal/extract"
	"github.com/ivcrag/ingestion/internal/llm"
	"github.com/ivcrag/ingestion/internal/mailbox"
	"github.com/ivcrag/ingestion/internal/ocr"
	"github.com/ivcrag/ingestion/internal/pipeline"
	"github.com/ivcrag/ingestion/internal/queue"
	"github.com/ivcrag/ingestion/internal/ragflow"
	"github.com/ivcrag/ingestion/internal/store"
	"github.com/ivcrag/ingestion/internal/worker"
)

// storageSource is the credential grant subject used for the file-storage
// and knowledge store clients, as opposed to per-mailbox subjects.
const storageSource = "storage"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting ingestion service")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"sources", len(cfg.Sources),
		"fetch_window", cfg.FetchWindow,
		"email_pass_interval", cfg.EmailPassInterval,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	db, err := store.New(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise store", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// Register configured sources; position follows config order.
	for i, src := range cfg.Sources {
		if err := db.EnsureSource(ctx, src.Address, i); err != nil {
			slog.Error("failed to register source", "source", src.Address, "error", err)
			os.Exit(1)
		}
	}

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)

	jobs := queue.New(rdb)
	if err := jobs.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	seen := dedup.NewFilter(rdb)

	// --- Credentials + fetchers ---
	provider := creds.NewProvider(cfg.OAuth)

	mailboxes := func(ctx context.Context, source string) pipeline.MailboxClient {
		return mailbox.NewClient(provider.Client(ctx, source), cfg.MailboxBaseURL,
			source, cfg.ListPageSize, cfg.PageDelay, cfg.RatePerSec)
	}
	storage := drive.NewClient(provider.Client(ctx, storageSource), cfg.StorageBaseURL,
		cfg.ListPageSize, cfg.PageDelay, cfg.RatePerSec)

	// --- Extraction ---
	extractor := extract.New(ocr.NewTesseract(cfg.OCR), ocr.NewRasterizer(cfg.OCR))

	// --- Enrichment ---
	enricher, err := llm.NewClient(cfg.LLM)
	if err != nil {
		slog.Error("failed to create enrichment client", "error", err)
		os.Exit(1)
	}

	// --- Knowledge store publisher ---
	publisher := ragflow.New(http.DefaultClient, cfg.KnowledgeBaseURL, cfg.KnowledgeAPIKey)

	// --- Orchestrator + workers ---
	orch := pipeline.New(cfg, db, jobs, seen, mailboxes, storage, extractor, enricher, publisher)
	digests := digest.NewBuilder(db, cfg.DigestLookback)

	workers, err := worker.New(cfg.Queues, jobs, orch, digests, cfg.MaxJobAttempts)
	if err != nil {
		slog.Error("failed to create workers", "error", err)
		os.Exit(1)
	}
	defer workers.Release()

	go func() {
		if err := workers.Run(ctx); err != nil {
			slog.Error("worker pool error", "error", err)
		}
	}()

	scheduler := worker.NewScheduler(jobs, cfg)
	go scheduler.Run(ctx)

	// --- Health + Status Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := jobs.Ping(r.Context()); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}
		if err := pgPool.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		st, err := orch.Status(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(st)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		rdb.Close()
		pgPool.Close()
	}()

	slog.Info("ingestion service listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("ingestion service stopped")
}
