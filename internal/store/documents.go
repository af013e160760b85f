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

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivcrag/ingestion/internal/models"
	"github.com/jackc/pgx/v5"
)

// DocumentExistsByStorageID is the cheap existence check the monitor poll
// uses: one remote file maps to at most one stored document, so a miss means
// the file has never been ingested.
func (s *Store) DocumentExistsByStorageID(ctx context.Context, storageID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM documents WHERE storage_id = $1)
	`, storageID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("document exists by storage id: %w", err)
	}
	return exists, nil
}

// DocumentStatusByStorageID reports whether a remote file is already stored
// and whether its pass completed.
func (s *Store) DocumentStatusByStorageID(ctx context.Context, storageID string) (id string, processed, found bool, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT id, processed FROM documents WHERE storage_id = $1
	`, storageID).Scan(&id, &processed)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, fmt.Errorf("document status by storage id: %w", err)
	}
	return id, processed, true, nil
}

// GetDocumentByID loads a stored document, extracted text included, for
// stage resumption.
func (s *Store) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	err := s.pool.QueryRow(ctx, `
		SELECT id, storage_id, source_type, filename, department,
		       extracted_text, size, processed
		FROM documents WHERE id = $1
	`, id).Scan(&d.ID, &d.StorageID, &d.SourceType, &d.Filename, &d.Department,
		&d.ExtractedText, &d.Size, &d.Processed)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &d, nil
}

// InsertDocument stores a fully extracted and enriched document. The
// storage_id uniqueness constraint makes concurrent document workers safe:
// a lost race comes back as ErrDuplicate.
func (s *Store) InsertDocument(ctx context.Context, d *models.Document) error {
	ct, err := s.pool.Exec(ctx, `
		INSERT INTO documents
			(id, storage_id, source_type, filename, department, extracted_text,
			 size, summary, category, priority, sentiment, importance, keywords, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (storage_id) DO NOTHING
	`, d.ID, d.StorageID, d.SourceType, d.Filename, d.Department, d.ExtractedText,
		d.Size, d.Enrichment.Summary, d.Enrichment.Category, d.Enrichment.Urgency,
		d.Enrichment.Sentiment, d.Enrichment.Importance, d.Enrichment.Keywords, d.Processed)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// UpdateDocumentEnrichment overwrites a document's enrichment fields.
func (s *Store) UpdateDocumentEnrichment(ctx context.Context, id string, e models.Enrichment) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET summary = $1, category = $2, priority = $3, sentiment = $4,
		    importance = $5, keywords = $6
		WHERE id = $7
	`, e.Summary, e.Category, e.Urgency, e.Sentiment, e.Importance, e.Keywords, id)
	if err != nil {
		return fmt.Errorf("update document enrichment: %w", err)
	}
	return nil
}

// MarkDocumentProcessed flags a document as fully processed.
func (s *Store) MarkDocumentProcessed(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents SET processed = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark document processed: %w", err)
	}
	return nil
}

// DocumentCategoryCounts aggregates stored documents by category over a
// recent window for the digest report.
func (s *Store) DocumentCategoryCounts(ctx context.Context, sinceHours int) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM documents
		WHERE created_at > NOW() - ($1 || ' hours')::interval
		GROUP BY category
	`, sinceHours)
	if err != nil {
		return nil, fmt.Errorf("document category counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		counts[category] = n
	}
	return counts, rows.Err()
}
