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

// Package digest aggregates recently ingested items into a periodic report:
// per-category counts for emails and documents plus the urgent emails of the
// window. The report is the digest job's output; delivery is out of scope.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivcrag/ingestion/internal/models"
)

// reporter is the subset of the store the digest reads.
type reporter interface {
	EmailCategoryCounts(ctx context.Context, sinceHours int) (map[string]int, error)
	DocumentCategoryCounts(ctx context.Context, sinceHours int) (map[string]int, error)
	RecentUrgentEmails(ctx context.Context, sinceHours, limit int) ([]models.Email, error)
}

// maxUrgentItems caps how many urgent emails a report carries.
const maxUrgentItems = 20

// Report is one digest window's aggregation.
type Report struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	WindowHours      int            `json:"window_hours"`
	EmailsByCategory map[string]int `json:"emails_by_category"`
	DocsByCategory   map[string]int `json:"documents_by_category"`
	TotalEmails      int            `json:"total_emails"`
	TotalDocuments   int            `json:"total_documents"`
	UrgentEmails     []UrgentItem   `json:"urgent_emails"`
}

// UrgentItem is one urgent email's digest line.
type UrgentItem struct {
	Subject  string `json:"subject"`
	Sender   string `json:"sender"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

// Builder produces digest reports from the store.
type Builder struct {
	store    reporter
	lookback time.Duration
}

// NewBuilder creates a digest builder with the configured lookback window.
func NewBuilder(store reporter, lookback time.Duration) *Builder {
	return &Builder{store: store, lookback: lookback}
}

// Build aggregates the lookback window into a Report.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	hours := int(b.lookback.Hours())
	if hours < 1 {
		hours = 1
	}

	emailCounts, err := b.store.EmailCategoryCounts(ctx, hours)
	if err != nil {
		return nil, fmt.Errorf("email counts: %w", err)
	}
	docCounts, err := b.store.DocumentCategoryCounts(ctx, hours)
	if err != nil {
		return nil, fmt.Errorf("document counts: %w", err)
	}
	urgent, err := b.store.RecentUrgentEmails(ctx, hours, maxUrgentItems)
	if err != nil {
		return nil, fmt.Errorf("urgent emails: %w", err)
	}

	report := &Report{
		GeneratedAt:      time.Now().UTC(),
		WindowHours:      hours,
		EmailsByCategory: emailCounts,
		DocsByCategory:   docCounts,
	}
	for _, n := range emailCounts {
		report.TotalEmails += n
	}
	for _, n := range docCounts {
		report.TotalDocuments += n
	}
	for _, e := range urgent {
		report.UrgentEmails = append(report.UrgentEmails, UrgentItem{
			Subject:  e.Subject,
			Sender:   e.Sender,
			Summary:  e.Enrichment.Summary,
			Category: e.Enrichment.Category,
		})
	}

	slog.Info("built digest report",
		"window_hours", hours,
		"emails", report.TotalEmails,
		"documents", report.TotalDocuments,
		"urgent", len(report.UrgentEmails),
	)
	return report, nil
}
