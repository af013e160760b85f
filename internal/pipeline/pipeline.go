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

// Package pipeline orchestrates the ingestion passes: mailbox sources in
// their configured sequence, file-storage department folders, and the
// per-item journey from discovery through dedup, extraction, enrichment and
// publication. One item failing never stops the pass; the failure is
// recorded and the pass moves on.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ivcrag/ingestion/internal/config"
	"github.com/ivcrag/ingestion/internal/drive"
	"github.com/ivcrag/ingestion/internal/extract"
	"github.com/ivcrag/ingestion/internal/llm"
	"github.com/ivcrag/ingestion/internal/mailbox"
	"github.com/ivcrag/ingestion/internal/models"
	"github.com/ivcrag/ingestion/internal/queue"
	"github.com/ivcrag/ingestion/internal/store"
)

// MailboxClient is the per-source mailbox surface the email pass consumes.
type MailboxClient interface {
	ListMessages(ctx context.Context, window time.Duration) ([]models.CandidateMessage, error)
	GetMessage(ctx context.Context, messageID string) (*mailbox.Message, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// MailboxFactory builds a mailbox client carrying one source's credentials.
type MailboxFactory func(ctx context.Context, source string) MailboxClient

// StorageClient is the file-storage surface the document pass and the
// attachment archiver consume.
type StorageClient interface {
	ListFolders(ctx context.Context, parentID string) ([]drive.Folder, error)
	ListFiles(ctx context.Context, folderID string, since time.Time) ([]models.CandidateFile, error)
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
	UploadFile(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error)
}

// Publisher pushes enriched text into the knowledge store.
type Publisher interface {
	ResolvePartition(ctx context.Context, name string) (string, error)
	PublishDocument(ctx context.Context, partitionID, docName, text string) error
}

// Extractor turns raw bytes into text, flagging when OCR produced it.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename, mimeType string) (extract.Result, error)
}

// SeenFilter is the first-tier transport-id check.
type SeenFilter interface {
	IsNew(ctx context.Context, transportID string) (bool, error)
	Forget(ctx context.Context, transportID string) error
}

// JobQueue is the queue surface the orchestrator needs: enqueue for the
// monitor, counts for the status report.
type JobQueue interface {
	Enqueue(ctx context.Context, queueName string, class models.ItemClass, itemRef string) (*models.QueueJob, error)
	CountsFor(ctx context.Context, queueName string) (queue.Counts, error)
}

// Datastore is the persistence surface the orchestrator needs.
type Datastore interface {
	ListActiveSources(ctx context.Context) ([]models.Source, error)
	SaveCursor(ctx context.Context, address, cursor string) error
	RecordError(ctx context.Context, itemRef string, class models.ItemClass, errMsg string) error
	RecentErrors(ctx context.Context, limit int) ([]store.ItemError, error)

	InsertEmail(ctx context.Context, e *models.Email) error
	EmailStatusByMessageID(ctx context.Context, messageID string) (emailID string, processed, found bool, err error)
	GetEmailByID(ctx context.Context, emailID string) (*models.Email, error)
	EmailExistsByFingerprint(ctx context.Context, fp string) (bool, error)
	UpdateEmailEnrichment(ctx context.Context, emailID string, e models.Enrichment) error
	MarkEmailProcessed(ctx context.Context, emailID string) error
	InsertAttachment(ctx context.Context, a *models.Attachment) error

	DocumentExistsByStorageID(ctx context.Context, storageID string) (bool, error)
	DocumentStatusByStorageID(ctx context.Context, storageID string) (id string, processed, found bool, err error)
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	InsertDocument(ctx context.Context, d *models.Document) error
	UpdateDocumentEnrichment(ctx context.Context, id string, e models.Enrichment) error
	MarkDocumentProcessed(ctx context.Context, id string) error
}

// Orchestrator drives the ingestion passes.
type Orchestrator struct {
	cfg       *config.Config
	db        Datastore
	jobs      JobQueue
	seen      SeenFilter
	mailboxes MailboxFactory
	storage   StorageClient
	extractor Extractor
	enricher  llm.Enricher
	publisher Publisher

	mu         sync.Mutex
	partitions map[string]string // partition name -> resolved ID
}

// New creates an orchestrator.
func New(cfg *config.Config, db Datastore, jobs JobQueue, seen SeenFilter,
	mailboxes MailboxFactory, storage StorageClient, extractor Extractor,
	enricher llm.Enricher, publisher Publisher) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		db:         db,
		jobs:       jobs,
		seen:       seen,
		mailboxes:  mailboxes,
		storage:    storage,
		extractor:  extractor,
		enricher:   enricher,
		publisher:  publisher,
		partitions: make(map[string]string),
	}
}

// Status is the operational snapshot served by the status endpoint.
type Status struct {
	Queues map[string]queue.Counts `json:"queues"`
	Errors []store.ItemError       `json:"recent_errors"`
}

// Status reports per-queue depths and the latest recorded item failures.
func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	st := &Status{Queues: make(map[string]queue.Counts)}
	for _, name := range []string{
		o.cfg.Queues.Emails,
		o.cfg.Queues.Documents,
		o.cfg.Queues.Digest,
		o.cfg.Queues.Monitoring,
	} {
		counts, err := o.jobs.CountsFor(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("counts for %s: %w", name, err)
		}
		st.Queues[name] = counts
	}

	errs, err := o.db.RecentErrors(ctx, 20)
	if err != nil {
		return nil, err
	}
	st.Errors = errs
	return st, nil
}

// partition resolves a partition name once and caches the ID for the life
// of the process.
func (o *Orchestrator) partition(ctx context.Context, name string) (string, error) {
	o.mu.Lock()
	if id, ok := o.partitions[name]; ok {
		o.mu.Unlock()
		return id, nil
	}
	o.mu.Unlock()

	id, err := o.publisher.ResolvePartition(ctx, name)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	o.partitions[name] = id
	o.mu.Unlock()
	return id, nil
}
