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

// InsertEmail stores a new email atomically. If another worker already
// stored an email with the same fingerprint — or an earlier pass did —
// the insert affects zero rows and ErrDuplicate is returned. The losing
// racer must treat that as "already stored".
func (s *Store) InsertEmail(ctx context.Context, e *models.Email) error {
	ct, err := s.pool.Exec(ctx, `
		INSERT INTO emails
			(email_id, message_id, thread_id, fingerprint, subject, body,
			 sender, recipients, date, labels, source_addr)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (fingerprint) DO NOTHING
	`, e.ID, e.MessageID, e.ThreadID, e.Fingerprint, e.Subject, e.Body,
		e.Sender, e.Recipients, e.Date, e.Labels, e.SourceAddr)
	if err != nil {
		return fmt.Errorf("insert email: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// EmailStatusByMessageID is the cheap pre-download check keyed on the
// transport identifier: it reports whether the ID is already stored and
// whether its pass completed. It cannot replace the fingerprint check (the
// same logical item arrives once per recipient with distinct message ids)
// but it avoids re-fetching payloads this source already delivered. An
// unprocessed hit means a previous pass died mid-flight and the item should
// resume, not restart.
func (s *Store) EmailStatusByMessageID(ctx context.Context, messageID string) (emailID string, processed, found bool, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT email_id, processed FROM emails WHERE message_id = $1
	`, messageID).Scan(&emailID, &processed)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, fmt.Errorf("email status by message id: %w", err)
	}
	return emailID, processed, true, nil
}

// GetEmailByID loads a stored email for stage resumption. Attachments are
// not loaded; the resume path re-walks them from the provider.
func (s *Store) GetEmailByID(ctx context.Context, emailID string) (*models.Email, error) {
	var e models.Email
	err := s.pool.QueryRow(ctx, `
		SELECT email_id, message_id, thread_id, fingerprint, subject, body,
		       sender, recipients, date, labels, processed, source_addr
		FROM emails WHERE email_id = $1
	`, emailID).Scan(&e.ID, &e.MessageID, &e.ThreadID, &e.Fingerprint, &e.Subject,
		&e.Body, &e.Sender, &e.Recipients, &e.Date, &e.Labels, &e.Processed, &e.SourceAddr)
	if err != nil {
		return nil, fmt.Errorf("get email %s: %w", emailID, err)
	}
	return &e, nil
}

// EmailExistsByFingerprint reports whether the logical item is already stored.
func (s *Store) EmailExistsByFingerprint(ctx context.Context, fp string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM emails WHERE fingerprint = $1)
	`, fp).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("email exists by fingerprint: %w", err)
	}
	return exists, nil
}

// UpdateEmailEnrichment writes the enrichment fields for a stored email.
// Re-enrichment overwrites, which is what makes the stage re-entrant.
func (s *Store) UpdateEmailEnrichment(ctx context.Context, emailID string, e models.Enrichment) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE emails
		SET summary = $1, category = $2, priority = $3, sentiment = $4,
		    importance = $5, keywords = $6
		WHERE email_id = $7
	`, e.Summary, e.Category, e.Urgency, e.Sentiment, e.Importance, e.Keywords, emailID)
	if err != nil {
		return fmt.Errorf("update email enrichment: %w", err)
	}
	return nil
}

// MarkEmailProcessed flags an email as fully processed.
func (s *Store) MarkEmailProcessed(ctx context.Context, emailID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE emails SET processed = TRUE WHERE email_id = $1
	`, emailID)
	if err != nil {
		return fmt.Errorf("mark email processed: %w", err)
	}
	return nil
}

// InsertAttachment stores an extracted and enriched attachment under its
// parent email.
func (s *Store) InsertAttachment(ctx context.Context, a *models.Attachment) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO email_attachments
			(email_id, filename, mime_type, size, storage_id, content,
			 summary, category, priority, sentiment, importance, keywords, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING attachment_id
	`, a.EmailID, a.Filename, a.MimeType, a.Size, a.StorageID, a.Content,
		a.Enrichment.Summary, a.Enrichment.Category, a.Enrichment.Urgency,
		a.Enrichment.Sentiment, a.Enrichment.Importance, a.Enrichment.Keywords,
		a.Processed).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

// EmailCategoryCounts aggregates stored emails by category over a recent
// window. Feeds the digest report.
func (s *Store) EmailCategoryCounts(ctx context.Context, sinceHours int) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, COUNT(*)
		FROM emails
		WHERE created_at > NOW() - ($1 || ' hours')::interval
		GROUP BY category
	`, sinceHours)
	if err != nil {
		return nil, fmt.Errorf("email category counts: %w", err)
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

// RecentUrgentEmails returns the most recent urgent emails for the digest.
func (s *Store) RecentUrgentEmails(ctx context.Context, sinceHours, limit int) ([]models.Email, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email_id, message_id, subject, sender, summary, category, priority
		FROM emails
		WHERE created_at > NOW() - ($1 || ' hours')::interval
		  AND LOWER(priority) = 'urgent'
		ORDER BY created_at DESC
		LIMIT $2
	`, sinceHours, limit)
	if err != nil {
		return nil, fmt.Errorf("recent urgent emails: %w", err)
	}
	defer rows.Close()

	var out []models.Email
	for rows.Next() {
		var e models.Email
		if err := rows.Scan(&e.ID, &e.MessageID, &e.Subject, &e.Sender,
			&e.Enrichment.Summary, &e.Enrichment.Category, &e.Enrichment.Urgency); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
