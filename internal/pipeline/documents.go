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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ivcrag/ingestion/internal/drive"
	"github.com/ivcrag/ingestion/internal/models"
	"github.com/ivcrag/ingestion/internal/ragflow"
	"github.com/ivcrag/ingestion/internal/store"
)

// generalDepartment labels files sitting directly in the documents root
// rather than in a department folder.
const generalDepartment = "General"

// RunDocumentPass walks the documents root and every department folder
// under it. A failing folder is logged and skipped; the pass continues.
func (o *Orchestrator) RunDocumentPass(ctx context.Context) error {
	folders, err := o.departmentFolders(ctx)
	if err != nil {
		return err
	}

	for _, f := range folders {
		if err := o.runFolder(ctx, f); err != nil {
			slog.Error("folder pass failed, continuing with next folder",
				"folder", f.Name,
				"error", err,
			)
			if recErr := o.db.RecordError(ctx, f.ID, models.ClassDocument, err.Error()); recErr != nil {
				slog.Error("record folder error", "error", recErr)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// departmentFolders returns the documents root (as "General") followed by
// its child folders, one per department.
func (o *Orchestrator) departmentFolders(ctx context.Context) ([]drive.Folder, error) {
	children, err := o.storage.ListFolders(ctx, o.cfg.DocumentsFolderID)
	if err != nil {
		return nil, fmt.Errorf("list department folders: %w", err)
	}
	folders := make([]drive.Folder, 0, len(children)+1)
	folders = append(folders, drive.Folder{ID: o.cfg.DocumentsFolderID, Name: generalDepartment})
	folders = append(folders, children...)
	return folders, nil
}

func (o *Orchestrator) runFolder(ctx context.Context, folder drive.Folder) error {
	since := time.Now().Add(-o.cfg.FetchWindow)
	files, err := o.storage.ListFiles(ctx, folder.ID, since)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	var processed, skipped, failed int
	for _, cand := range files {
		outcome, err := o.processFile(ctx, folder.Name, cand)
		switch {
		case err != nil:
			failed++
			slog.Error("file processing failed",
				"folder", folder.Name,
				"storage_id", cand.StorageID,
				"name", cand.Name,
				"error", err,
			)
			if recErr := o.db.RecordError(ctx, cand.StorageID, models.ClassDocument, err.Error()); recErr != nil {
				slog.Error("record file error", "error", recErr)
			}
		case outcome == models.StateDone:
			processed++
		default:
			skipped++
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	slog.Info("folder pass complete",
		"folder", folder.Name,
		"candidates", len(files),
		"processed", processed,
		"skipped", skipped,
		"failed", failed,
	)
	return nil
}

func (o *Orchestrator) processFile(ctx context.Context, department string, cand models.CandidateFile) (models.ItemState, error) {
	docID, done, found, err := o.db.DocumentStatusByStorageID(ctx, cand.StorageID)
	if err != nil {
		return models.StateErrored, err
	}
	if found && done {
		return models.StateDeduplicated, nil
	}
	if found {
		return o.resumeDocument(ctx, department, docID)
	}

	isNew, err := o.seen.IsNew(ctx, cand.StorageID)
	if err != nil {
		slog.Warn("seen filter unavailable, continuing without it", "error", err)
	} else if !isNew {
		return models.StateDeduplicated, nil
	}

	state, err := o.ingestFile(ctx, department, cand)
	if err != nil {
		if forgetErr := o.seen.Forget(ctx, cand.StorageID); forgetErr != nil {
			slog.Warn("release seen claim", "storage_id", cand.StorageID, "error", forgetErr)
		}
	}
	return state, err
}

func (o *Orchestrator) ingestFile(ctx context.Context, department string, cand models.CandidateFile) (models.ItemState, error) {
	data, err := o.storage.DownloadFile(ctx, cand.StorageID)
	if err != nil {
		return models.StateErrored, fmt.Errorf("download: %w", err)
	}

	result, err := o.extractor.Extract(ctx, data, cand.Name, cand.MimeType)
	if err != nil {
		return models.StateErrored, fmt.Errorf("extract: %w", err)
	}
	text := result.Text
	if result.OCRUsed {
		text = o.enricher.CorrectOCR(ctx, text)
	}

	doc := &models.Document{
		ID:            uuid.New().String(),
		StorageID:     cand.StorageID,
		SourceType:    "storage",
		Filename:      cand.Name,
		Department:    department,
		ExtractedText: text,
		Size:          cand.Size,
	}
	if strings.TrimSpace(text) != "" {
		parsed, err := o.enricher.EnrichDocument(ctx, text, department)
		if err != nil {
			return models.StateErrored, fmt.Errorf("enrich: %w", err)
		}
		doc.Enrichment = parsed.Enrichment
	}

	if err := o.db.InsertDocument(ctx, doc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.StateDeduplicated, nil
		}
		return models.StateErrored, err
	}

	if err := o.publishDocument(ctx, department, doc); err != nil {
		return models.StateErrored, err
	}
	return models.StateDone, nil
}

// resumeDocument re-runs enrichment and publication from the stored
// extracted text.
func (o *Orchestrator) resumeDocument(ctx context.Context, department string, docID string) (models.ItemState, error) {
	doc, err := o.db.GetDocumentByID(ctx, docID)
	if err != nil {
		return models.StateErrored, err
	}

	slog.Info("resuming unfinished document", "id", docID, "filename", doc.Filename)
	if strings.TrimSpace(doc.ExtractedText) != "" {
		parsed, err := o.enricher.EnrichDocument(ctx, doc.ExtractedText, department)
		if err != nil {
			return models.StateErrored, fmt.Errorf("enrich: %w", err)
		}
		doc.Enrichment = parsed.Enrichment
		if err := o.db.UpdateDocumentEnrichment(ctx, doc.ID, doc.Enrichment); err != nil {
			return models.StateErrored, err
		}
	}

	if err := o.publishDocument(ctx, department, doc); err != nil {
		return models.StateErrored, err
	}
	return models.StateDone, nil
}

func (o *Orchestrator) publishDocument(ctx context.Context, department string, doc *models.Document) error {
	partID, err := o.partition(ctx, ragflow.PartitionForDepartment(department))
	if err != nil {
		return fmt.Errorf("resolve partition: %w", err)
	}

	docName := fmt.Sprintf("doc_%s.txt", doc.StorageID)
	if err := o.publisher.PublishDocument(ctx, partID, docName, renderDocument(doc)); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	if err := o.db.MarkDocumentProcessed(ctx, doc.ID); err != nil {
		return err
	}

	slog.Info("document ingested",
		"id", doc.ID,
		"filename", doc.Filename,
		"department", department,
		"category", doc.Enrichment.Category,
	)
	return nil
}

func renderDocument(doc *models.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document: %s\n", doc.Filename)
	fmt.Fprintf(&b, "Department: %s\n", doc.Department)
	fmt.Fprintf(&b, "Category: %s\n", doc.Enrichment.Category)
	fmt.Fprintf(&b, "Summary: %s\n\n", doc.Enrichment.Summary)
	b.WriteString(doc.ExtractedText)
	return b.String()
}

// MonitorDocuments is the cheap recent-changes poll: it looks for files the
// store has not seen yet and enqueues a document pass when any turn up. The
// heavy lifting stays in the documents queue worker.
func (o *Orchestrator) MonitorDocuments(ctx context.Context) error {
	folders, err := o.departmentFolders(ctx)
	if err != nil {
		return err
	}

	since := time.Now().Add(-o.cfg.FetchWindow)
	fresh := 0
	for _, f := range folders {
		files, err := o.storage.ListFiles(ctx, f.ID, since)
		if err != nil {
			slog.Error("monitor listing failed", "folder", f.Name, "error", err)
			continue
		}
		for _, cand := range files {
			exists, err := o.db.DocumentExistsByStorageID(ctx, cand.StorageID)
			if err != nil {
				slog.Error("monitor existence check failed",
					"storage_id", cand.StorageID,
					"error", err,
				)
				continue
			}
			if !exists {
				fresh++
			}
		}
	}

	if fresh == 0 {
		slog.Debug("monitor found no new documents")
		return nil
	}

	slog.Info("monitor found new documents, scheduling pass", "count", fresh)
	if _, err := o.jobs.Enqueue(ctx, o.cfg.Queues.Documents, models.ClassDocument, ""); err != nil {
		return fmt.Errorf("enqueue document pass: %w", err)
	}
	return nil
}
