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

package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivcrag/ingestion/internal/models"
)

type fakeReporter struct {
	emailCounts map[string]int
	docCounts   map[string]int
	urgent      []models.Email
	err         error
	gotHours    int
}

func (f *fakeReporter) EmailCategoryCounts(_ context.Context, sinceHours int) (map[string]int, error) {
	f.gotHours = sinceHours
	return f.emailCounts, f.err
}

func (f *fakeReporter) DocumentCategoryCounts(_ context.Context, sinceHours int) (map[string]int, error) {
	return f.docCounts, f.err
}

func (f *fakeReporter) RecentUrgentEmails(_ context.Context, sinceHours, limit int) ([]models.Email, error) {
	return f.urgent, f.err
}

func TestBuild_AggregatesWindow(t *testing.T) {
	rep := &fakeReporter{
		emailCounts: map[string]int{"Purchase Order": 3, "Complaint": 1},
		docCounts:   map[string]int{"Quality Document": 2},
		urgent: []models.Email{
			{
				Subject: "Line down",
				Sender:  "plant@ivc.example",
				Enrichment: models.Enrichment{
					Summary:  "Production line stopped.",
					Category: "Complaint",
				},
			},
		},
	}

	b := NewBuilder(rep, 24*time.Hour)
	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if rep.gotHours != 24 {
		t.Errorf("window hours = %d, want 24", rep.gotHours)
	}
	if report.TotalEmails != 4 {
		t.Errorf("total emails = %d, want 4", report.TotalEmails)
	}
	if report.TotalDocuments != 2 {
		t.Errorf("total documents = %d, want 2", report.TotalDocuments)
	}
	if len(report.UrgentEmails) != 1 || report.UrgentEmails[0].Subject != "Line down" {
		t.Errorf("urgent = %+v", report.UrgentEmails)
	}
}

func TestBuild_SubHourWindowRoundsUp(t *testing.T) {
	rep := &fakeReporter{emailCounts: map[string]int{}, docCounts: map[string]int{}}
	b := NewBuilder(rep, 10*time.Minute)
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if rep.gotHours != 1 {
		t.Errorf("window hours = %d, want 1", rep.gotHours)
	}
}

func TestBuild_StoreErrorPropagates(t *testing.T) {
	rep := &fakeReporter{err: errors.New("connection refused")}
	b := NewBuilder(rep, time.Hour)
	if _, err := b.Build(context.Background()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
