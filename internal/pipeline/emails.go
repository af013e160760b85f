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
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ivcrag/ingestion/internal/fingerprint"
	"github.com/ivcrag/ingestion/internal/llm"
	"github.com/ivcrag/ingestion/internal/models"
	"github.com/ivcrag/ingestion/internal/ragflow"
	"github.com/ivcrag/ingestion/internal/store"
)

// RunEmailPass visits every active source in its configured sequence. A
// failing source is logged and skipped; later sources still run. The pass
// itself only errors when the source list cannot be read.
func (o *Orchestrator) RunEmailPass(ctx context.Context) error {
	sources, err := o.db.ListActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	for _, src := range sources {
		if err := o.runSource(ctx, src); err != nil {
			slog.Error("source pass failed, continuing with next source",
				"source", src.Address,
				"error", err,
			)
			if recErr := o.db.RecordError(ctx, src.Address, models.ClassEmail, err.Error()); recErr != nil {
				slog.Error("record source error", "error", recErr)
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func (o *Orchestrator) runSource(ctx context.Context, src models.Source) error {
	source := src.Address
	mbx := o.mailboxes(ctx, source)

	candidates, err := mbx.ListMessages(ctx, o.listWindow(src))
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	var processed, skipped, failed int
	for _, cand := range candidates {
		outcome, err := o.processMessage(ctx, mbx, source, cand)
		switch {
		case err != nil:
			failed++
			slog.Error("message processing failed",
				"source", source,
				"message_id", cand.MessageID,
				"error", err,
			)
			if recErr := o.db.RecordError(ctx, cand.MessageID, models.ClassEmail, err.Error()); recErr != nil {
				slog.Error("record message error", "error", recErr)
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

	slog.Info("source pass complete",
		"source", source,
		"candidates", len(candidates),
		"processed", processed,
		"skipped", skipped,
		"failed", failed,
	)

	// The cursor records when this source last completed a pass. It only
	// advances on success so a failed pass re-covers the same window.
	if err := o.db.SaveCursor(ctx, source, time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Error("save cursor", "source", source, "error", err)
	}
	return nil
}

// listWindow widens the configured fetch window when a source has been
// offline longer than the window covers, so messages that arrived during
// the outage are still listed.
func (o *Orchestrator) listWindow(src models.Source) time.Duration {
	window := o.cfg.FetchWindow
	if src.Cursor == "" {
		return window
	}
	last, err := time.Parse(time.RFC3339, src.Cursor)
	if err != nil {
		return window
	}
	if gap := time.Since(last); gap > window {
		return gap
	}
	return window
}

// processMessage runs one candidate through the item state machine. The
// returned state is Done for a fully published item, Deduplicated for a
// skip.
func (o *Orchestrator) processMessage(ctx context.Context, mbx MailboxClient, source string, cand models.CandidateMessage) (models.ItemState, error) {
	// The store is the authority: a stored-but-unprocessed hit means an
	// earlier pass died mid-flight and the item resumes from enrichment.
	emailID, done, found, err := o.db.EmailStatusByMessageID(ctx, cand.MessageID)
	if err != nil {
		return models.StateErrored, err
	}
	if found && done {
		return models.StateDeduplicated, nil
	}
	if found {
		return o.resumeEmail(ctx, source, emailID)
	}

	// First-tier claim: loses cheaply when an overlapping pass already
	// picked this transport ID up.
	isNew, err := o.seen.IsNew(ctx, cand.MessageID)
	if err != nil {
		slog.Warn("seen filter unavailable, continuing without it", "error", err)
	} else if !isNew {
		return models.StateDeduplicated, nil
	}

	state, err := o.ingestMessage(ctx, mbx, source, cand)
	if err != nil {
		// Release the claim so the next pass retries this item instead
		// of waiting out the filter TTL.
		if forgetErr := o.seen.Forget(ctx, cand.MessageID); forgetErr != nil {
			slog.Warn("release seen claim", "message_id", cand.MessageID, "error", forgetErr)
		}
	}
	return state, err
}

func (o *Orchestrator) ingestMessage(ctx context.Context, mbx MailboxClient, source string, cand models.CandidateMessage) (models.ItemState, error) {
	msg, err := mbx.GetMessage(ctx, cand.MessageID)
	if err != nil {
		return models.StateErrored, fmt.Errorf("fetch message: %w", err)
	}

	fp := fingerprint.Compute(msg.Headers, msg.Body)
	exists, err := o.db.EmailExistsByFingerprint(ctx, fp)
	if err != nil {
		return models.StateErrored, err
	}
	if exists {
		slog.Debug("fingerprint already stored", "message_id", cand.MessageID)
		return models.StateDeduplicated, nil
	}

	email := &models.Email{
		ID:          uuid.New().String(),
		MessageID:   cand.MessageID,
		ThreadID:    cand.ThreadID,
		Fingerprint: fp,
		Subject:     msg.Headers["Subject"],
		Body:        msg.Body,
		Sender:      parseAddress(msg.Headers["From"]),
		Recipients:  parseAddressList(msg.Headers["To"]),
		Date:        msg.Date,
		SourceAddr:  source,
	}

	if err := o.db.InsertEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost the insert race: the item is already stored, and
			// whoever won finishes it.
			return models.StateDeduplicated, nil
		}
		return models.StateErrored, err
	}

	o.processAttachments(ctx, mbx, source, email, msg.Attachments)

	if err := o.enrichAndPublishEmail(ctx, source, email); err != nil {
		return models.StateErrored, err
	}
	return models.StateDone, nil
}

// resumeEmail re-runs enrichment and publication for a stored email whose
// pass never completed. Both stages are re-entrant: enrichment overwrites
// and the publisher replaces by document name. Attachments are not
// revisited; the attachment stage ran before the failure point.
func (o *Orchestrator) resumeEmail(ctx context.Context, source string, emailID string) (models.ItemState, error) {
	email, err := o.db.GetEmailByID(ctx, emailID)
	if err != nil {
		return models.StateErrored, err
	}

	slog.Info("resuming unfinished email", "email_id", emailID, "message_id", email.MessageID)
	if err := o.enrichAndPublishEmail(ctx, source, email); err != nil {
		return models.StateErrored, err
	}
	return models.StateDone, nil
}

func (o *Orchestrator) enrichAndPublishEmail(ctx context.Context, source string, email *models.Email) error {
	date := ""
	if email.Date != nil {
		date = email.Date.Format("2006-01-02 15:04")
	}
	parsed, err := o.enricher.EnrichEmail(ctx, llm.EmailInput{
		From:    email.Sender,
		To:      email.Recipients,
		Subject: email.Subject,
		Date:    date,
		Body:    email.Body,
	})
	if err != nil {
		return fmt.Errorf("enrich email: %w", err)
	}
	email.Enrichment = parsed.Enrichment

	if err := o.db.UpdateEmailEnrichment(ctx, email.ID, email.Enrichment); err != nil {
		return err
	}

	partID, err := o.partition(ctx, ragflow.PartitionForSource(source))
	if err != nil {
		return fmt.Errorf("resolve partition: %w", err)
	}
	docName := fmt.Sprintf("email_%s.txt", email.MessageID)
	if err := o.publisher.PublishDocument(ctx, partID, docName, renderEmail(email)); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}

	if err := o.db.MarkEmailProcessed(ctx, email.ID); err != nil {
		return err
	}

	slog.Info("email ingested",
		"email_id", email.ID,
		"source", source,
		"category", email.Enrichment.Category,
		"urgency", email.Enrichment.Urgency,
	)
	return nil
}

// processAttachments walks a message's attachments. Each one is downloaded,
// extracted, archived, enriched and published independently; one bad
// attachment never takes the email or its siblings down.
func (o *Orchestrator) processAttachments(ctx context.Context, mbx MailboxClient, source string, email *models.Email, stubs []models.AttachmentStub) {
	for _, stub := range stubs {
		if err := o.processAttachment(ctx, mbx, source, email, stub); err != nil {
			slog.Error("attachment processing failed",
				"email_id", email.ID,
				"filename", stub.Filename,
				"error", err,
			)
			ref := fmt.Sprintf("%s/%s", email.MessageID, stub.Filename)
			if recErr := o.db.RecordError(ctx, ref, models.ClassEmail, err.Error()); recErr != nil {
				slog.Error("record attachment error", "error", recErr)
			}
		}
	}
}

func (o *Orchestrator) processAttachment(ctx context.Context, mbx MailboxClient, source string, email *models.Email, stub models.AttachmentStub) error {
	data, err := mbx.GetAttachment(ctx, email.MessageID, stub.AttachmentID)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	result, err := o.extractor.Extract(ctx, data, stub.Filename, stub.MimeType)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	text := result.Text
	if result.OCRUsed {
		text = o.enricher.CorrectOCR(ctx, text)
	}

	storageID, err := o.storage.UploadFile(ctx, o.cfg.AttachmentFolderID, stub.Filename, stub.MimeType, data)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	att := &models.Attachment{
		EmailID:   email.ID,
		Filename:  stub.Filename,
		MimeType:  stub.MimeType,
		Size:      stub.Size,
		StorageID: storageID,
		Content:   text,
		Processed: true,
	}
	if strings.TrimSpace(text) != "" {
		parsed, err := o.enricher.EnrichAttachment(ctx, text, source)
		if err != nil {
			return fmt.Errorf("enrich: %w", err)
		}
		att.Enrichment = parsed.Enrichment
	}

	if err := o.db.InsertAttachment(ctx, att); err != nil {
		return err
	}

	if strings.TrimSpace(text) != "" {
		partID, err := o.partition(ctx, ragflow.PartitionForSource(source))
		if err != nil {
			return fmt.Errorf("resolve partition: %w", err)
		}
		docName := fmt.Sprintf("email_%s_%s.txt", email.MessageID, stub.Filename)
		if err := o.publisher.PublishDocument(ctx, partID, docName, renderAttachment(email, att)); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}
	return nil
}

// renderEmail composes the text published to the knowledge store: the
// enrichment header followed by the original body.
func renderEmail(email *models.Email) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
	fmt.Fprintf(&b, "From: %s\n", email.Sender)
	if email.Date != nil {
		fmt.Fprintf(&b, "Date: %s\n", email.Date.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "Category: %s\n", email.Enrichment.Category)
	fmt.Fprintf(&b, "Urgency: %s\n", email.Enrichment.Urgency)
	fmt.Fprintf(&b, "Summary: %s\n\n", email.Enrichment.Summary)
	b.WriteString(email.Body)
	return b.String()
}

func renderAttachment(email *models.Email, att *models.Attachment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attachment: %s\n", att.Filename)
	fmt.Fprintf(&b, "From email: %s (%s)\n", email.Subject, email.Sender)
	fmt.Fprintf(&b, "Category: %s\n", att.Enrichment.Category)
	fmt.Fprintf(&b, "Summary: %s\n\n", att.Enrichment.Summary)
	b.WriteString(att.Content)
	return b.String()
}

func parseAddress(header string) string {
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return strings.TrimSpace(header)
	}
	return addr.Address
}

func parseAddressList(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(header)
	if err != nil {
		return []string{strings.TrimSpace(header)}
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out
}
