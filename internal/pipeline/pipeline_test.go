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
	"testing"
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

// --- In-memory datastore ---

type fakeDB struct {
	sources      []models.Source
	emails       map[string]*models.Email // keyed by email ID
	docs         map[string]*models.Document
	attachments  []*models.Attachment
	errorsSeen   []string
	cursors      map[string]string
	existsErrFor map[string]error // storage ID -> forced existence-check error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		emails:  make(map[string]*models.Email),
		docs:    make(map[string]*models.Document),
		cursors: make(map[string]string),
	}
}

func (f *fakeDB) ListActiveSources(context.Context) ([]models.Source, error) {
	return f.sources, nil
}

func (f *fakeDB) SaveCursor(_ context.Context, address, cursor string) error {
	f.cursors[address] = cursor
	return nil
}

func (f *fakeDB) RecordError(_ context.Context, itemRef string, _ models.ItemClass, _ string) error {
	f.errorsSeen = append(f.errorsSeen, itemRef)
	return nil
}

func (f *fakeDB) RecentErrors(context.Context, int) ([]store.ItemError, error) {
	return nil, nil
}

func (f *fakeDB) InsertEmail(_ context.Context, e *models.Email) error {
	for _, existing := range f.emails {
		if existing.Fingerprint == e.Fingerprint {
			return store.ErrDuplicate
		}
	}
	cp := *e
	f.emails[e.ID] = &cp
	return nil
}

func (f *fakeDB) EmailStatusByMessageID(_ context.Context, messageID string) (string, bool, bool, error) {
	for id, e := range f.emails {
		if e.MessageID == messageID {
			return id, e.Processed, true, nil
		}
	}
	return "", false, false, nil
}

func (f *fakeDB) GetEmailByID(_ context.Context, emailID string) (*models.Email, error) {
	e, ok := f.emails[emailID]
	if !ok {
		return nil, fmt.Errorf("no email %s", emailID)
	}
	cp := *e
	return &cp, nil
}

func (f *fakeDB) EmailExistsByFingerprint(_ context.Context, fp string) (bool, error) {
	for _, e := range f.emails {
		if e.Fingerprint == fp {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) UpdateEmailEnrichment(_ context.Context, emailID string, e models.Enrichment) error {
	f.emails[emailID].Enrichment = e
	return nil
}

func (f *fakeDB) MarkEmailProcessed(_ context.Context, emailID string) error {
	f.emails[emailID].Processed = true
	return nil
}

func (f *fakeDB) InsertAttachment(_ context.Context, a *models.Attachment) error {
	cp := *a
	f.attachments = append(f.attachments, &cp)
	return nil
}

func (f *fakeDB) DocumentExistsByStorageID(_ context.Context, storageID string) (bool, error) {
	if err, ok := f.existsErrFor[storageID]; ok {
		return false, err
	}
	for _, d := range f.docs {
		if d.StorageID == storageID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) DocumentStatusByStorageID(_ context.Context, storageID string) (string, bool, bool, error) {
	for id, d := range f.docs {
		if d.StorageID == storageID {
			return id, d.Processed, true, nil
		}
	}
	return "", false, false, nil
}

func (f *fakeDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("no document %s", id)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDB) InsertDocument(_ context.Context, d *models.Document) error {
	for _, existing := range f.docs {
		if existing.StorageID == d.StorageID {
			return store.ErrDuplicate
		}
	}
	cp := *d
	f.docs[d.ID] = &cp
	return nil
}

func (f *fakeDB) UpdateDocumentEnrichment(_ context.Context, id string, e models.Enrichment) error {
	f.docs[id].Enrichment = e
	return nil
}

func (f *fakeDB) MarkDocumentProcessed(_ context.Context, id string) error {
	f.docs[id].Processed = true
	return nil
}

// --- Mailbox fake ---

type fakeMailbox struct {
	candidates []models.CandidateMessage
	messages   map[string]*mailbox.Message
	attachData map[string][]byte
	listErr    error
}

func (f *fakeMailbox) ListMessages(context.Context, time.Duration) ([]models.CandidateMessage, error) {
	return f.candidates, f.listErr
}

func (f *fakeMailbox) GetMessage(_ context.Context, messageID string) (*mailbox.Message, error) {
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("no message %s", messageID)
	}
	return msg, nil
}

func (f *fakeMailbox) GetAttachment(_ context.Context, _, attachmentID string) ([]byte, error) {
	data, ok := f.attachData[attachmentID]
	if !ok {
		return nil, fmt.Errorf("no attachment %s", attachmentID)
	}
	return data, nil
}

// --- Remaining doubles ---

type fakeStorage struct {
	folders   []drive.Folder
	files     map[string][]models.CandidateFile // keyed by folder ID
	fileData  map[string][]byte
	uploads   []string
	uploadErr error
}

func (f *fakeStorage) ListFolders(context.Context, string) ([]drive.Folder, error) {
	return f.folders, nil
}

func (f *fakeStorage) ListFiles(_ context.Context, folderID string, _ time.Time) ([]models.CandidateFile, error) {
	return f.files[folderID], nil
}

func (f *fakeStorage) DownloadFile(_ context.Context, fileID string) ([]byte, error) {
	data, ok := f.fileData[fileID]
	if !ok {
		return nil, fmt.Errorf("no file %s", fileID)
	}
	return data, nil
}

func (f *fakeStorage) UploadFile(_ context.Context, _, name, _ string, _ []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, name)
	return "archived-" + name, nil
}

type fakeQueue struct {
	enqueued []models.ItemClass
}

func (f *fakeQueue) Enqueue(_ context.Context, _ string, class models.ItemClass, itemRef string) (*models.QueueJob, error) {
	f.enqueued = append(f.enqueued, class)
	return &models.QueueJob{ID: "job-1", Class: class, ItemRef: itemRef}, nil
}

func (f *fakeQueue) CountsFor(context.Context, string) (queue.Counts, error) {
	return queue.Counts{}, nil
}

type fakeSeen struct {
	seen map[string]bool
}

func (f *fakeSeen) IsNew(_ context.Context, id string) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

func (f *fakeSeen) Forget(_ context.Context, id string) error {
	delete(f.seen, id)
	return nil
}

type fakeExtractor struct {
	failFor map[string]bool
	ocrFor  map[string]bool
}

func (f *fakeExtractor) Extract(_ context.Context, data []byte, filename, _ string) (extract.Result, error) {
	if f.failFor[filename] {
		return extract.Result{}, errors.New("corrupt file")
	}
	return extract.Result{Text: "text of " + filename, OCRUsed: f.ocrFor[filename]}, nil
}

type fakeEnricher struct {
	emailCalls    int
	attachCalls   int
	documentCalls int
	correctCalls  int
	err           error
}

func (f *fakeEnricher) EnrichEmail(context.Context, llm.EmailInput) (llm.ParsedEnrichment, error) {
	f.emailCalls++
	if f.err != nil {
		return llm.ParsedEnrichment{}, f.err
	}
	return llm.ParsedEnrichment{
		Enrichment: models.Enrichment{Summary: "summary", Category: "Purchase Order", Urgency: "Normal"},
		Mode:       llm.ParseStructured,
	}, nil
}

func (f *fakeEnricher) EnrichAttachment(context.Context, string, string) (llm.ParsedEnrichment, error) {
	f.attachCalls++
	return llm.ParsedEnrichment{
		Enrichment: models.Enrichment{Summary: "attachment summary", Category: "Technical Drawing"},
	}, nil
}

func (f *fakeEnricher) EnrichDocument(context.Context, string, string) (llm.ParsedEnrichment, error) {
	f.documentCalls++
	return llm.ParsedEnrichment{
		Enrichment: models.Enrichment{Summary: "document summary", Category: "Quality Document"},
	}, nil
}

func (f *fakeEnricher) CorrectOCR(_ context.Context, text string) string {
	f.correctCalls++
	return text
}

type fakePublisher struct {
	published  []string
	publishErr error
}

func (f *fakePublisher) ResolvePartition(_ context.Context, name string) (string, error) {
	return "id-" + name, nil
}

func (f *fakePublisher) PublishDocument(_ context.Context, _, docName, _ string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, docName)
	return nil
}

// --- Helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AttachmentFolderID: "archive",
		DocumentsFolderID:  "docs-root",
		FetchWindow:        24 * time.Hour,
		Queues: config.QueueNames{
			Emails: "emails", Documents: "documents",
			Digest: "digest", Monitoring: "monitoring",
		},
	}
}

func plainMessage(id, subject, body string) *mailbox.Message {
	return &mailbox.Message{
		ID: id,
		Headers: map[string]string{
			"Message-ID": "<" + id + "@example.com>",
			"Subject":    subject,
			"From":       "buyer@example.com",
			"To":         "sales@ivc.example",
		},
		Body: body,
	}
}

type fixture struct {
	db        *fakeDB
	mbx       *fakeMailbox
	storage   *fakeStorage
	jobs      *fakeQueue
	enricher  *fakeEnricher
	publisher *fakePublisher
	extractor *fakeExtractor
	orch      *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		db:        newFakeDB(),
		mbx:       &fakeMailbox{messages: make(map[string]*mailbox.Message), attachData: make(map[string][]byte)},
		storage:   &fakeStorage{files: make(map[string][]models.CandidateFile), fileData: make(map[string][]byte)},
		jobs:      &fakeQueue{},
		enricher:  &fakeEnricher{},
		publisher: &fakePublisher{},
		extractor: &fakeExtractor{},
	}
	f.db.sources = []models.Source{{Address: "sales@ivc.example", Position: 0, Active: true}}
	factory := func(context.Context, string) MailboxClient { return f.mbx }
	f.orch = New(testConfig(), f.db, f.jobs, &fakeSeen{}, factory, f.storage, f.extractor, f.enricher, f.publisher)
	return f
}

// --- Email pass tests ---

func TestEmailPass_IngestsNewMessage(t *testing.T) {
	f := newFixture()
	f.mbx.candidates = []models.CandidateMessage{{MessageID: "msg-1", ThreadID: "t-1"}}
	f.mbx.messages["msg-1"] = plainMessage("msg-1", "RFQ valves", "Please quote 50 gate valves.")

	if err := f.orch.RunEmailPass(context.Background()); err != nil {
		t.Fatalf("RunEmailPass failed: %v", err)
	}

	if len(f.db.emails) != 1 {
		t.Fatalf("stored %d emails, want 1", len(f.db.emails))
	}
	for _, e := range f.db.emails {
		if !e.Processed {
			t.Error("email not marked processed")
		}
		if e.Enrichment.Category != "Purchase Order" {
			t.Errorf("category = %q", e.Enrichment.Category)
		}
		if e.Sender != "buyer@example.com" {
			t.Errorf("sender = %q", e.Sender)
		}
	}
	if len(f.publisher.published) != 1 || f.publisher.published[0] != "email_msg-1.txt" {
		t.Errorf("published = %v", f.publisher.published)
	}
}

// Same content arriving through two transports gets two distinct message
// IDs but one fingerprint; exactly one copy is stored and enriched.
func TestEmailPass_DeduplicatesAcrossTransports(t *testing.T) {
	f := newFixture()
	f.mbx.candidates = []models.CandidateMessage{
		{MessageID: "gw-1"},
		{MessageID: "gw-2"},
	}
	// Identical canonical headers and body regardless of transport ID.
	f.mbx.messages["gw-1"] = plainMessage("order-77", "PO-1043", "Order confirmed.")
	f.mbx.messages["gw-2"] = plainMessage("order-77", "PO-1043", "Order confirmed.")

	if err := f.orch.RunEmailPass(context.Background()); err != nil {
		t.Fatalf("RunEmailPass failed: %v", err)
	}

	if len(f.db.emails) != 1 {
		t.Fatalf("stored %d emails, want 1", len(f.db.emails))
	}
	if f.enricher.emailCalls != 1 {
		t.Errorf("enriched %d times, want 1", f.enricher.emailCalls)
	}
}

// A stored-but-unprocessed email (a previous run died before publishing)
// resumes enrichment and publication without inserting a second row.
func TestEmailPass_ResumesUnprocessedEmail(t *testing.T) {
	f := newFixture()
	f.db.emails["e-1"] = &models.Email{
		ID:          "e-1",
		MessageID:   "msg-1",
		Fingerprint: "fp-1",
		Subject:     "RFQ valves",
		Body:        "Please quote.",
		Sender:      "buyer@example.com",
		SourceAddr:  "sales@ivc.example",
		Processed:   false,
	}
	f.mbx.candidates = []models.CandidateMessage{{MessageID: "msg-1"}}

	if err := f.orch.RunEmailPass(context.Background()); err != nil {
		t.Fatalf("RunEmailPass failed: %v", err)
	}

	if len(f.db.emails) != 1 {
		t.Fatalf("stored %d emails, want 1", len(f.db.emails))
	}
	if !f.db.emails["e-1"].Processed {
		t.Error("resumed email not marked processed")
	}
	if f.enricher.emailCalls != 1 {
		t.Errorf("enriched %d times, want 1", f.enricher.emailCalls)
	}
	if len(f.publisher.published) != 1 {
		t.Errorf("published = %v", f.publisher.published)
	}
}

func TestEmailPass_ProcessedMessageSkipped(t *testing.T) {
	f := newFixture()
	f.db.emails["e-1"] = &models.Email{ID: "e-1", MessageID: "msg-1", Fingerprint: "fp-1", Processed: true}
	f.mbx.candidates = []models.CandidateMessage{{MessageID: "msg-1"}}

	if err := f.orch.RunEmailPass(context.Background()); err != nil {
		t.Fatalf("RunEmailPass failed: %v", err)
	}
	if f.enricher.emailCalls != 0 {
		t.Errorf("enriched a processed message %d times", f.enricher.emailCalls)
	}
}

// One attachment failing to extract never blocks the email or its sibling
// attachments.
func TestEmailPass_AttachmentFailureIsolated(t *testing.T) {
	f := newFixture()
	f.extractor.failFor = map[string]bool{"broken.pdf": true}
	f.mbx.candidates = []models.CandidateMessage{{MessageID: "msg-1"}}
	msg := plainMessage("msg-1", "Specs", "See attachments.")
	msg.Attachments = []models.AttachmentStub{
		{AttachmentID: "a-1", Filename: "broken.pdf", MimeType: "application/pdf"},
		{AttachmentID: "a-2", Filename: "good.pdf", MimeType: "application/pdf"},
	}
	f.mbx.messages["msg-1"] = msg
	f.mbx.attachData["a-1"] = []byte("x")
	f.mbx.attachData["a-2"] = []byte("y")

	if err := f.orch.RunEmailPass(context.Background()); err != nil {
		t.Fatalf("RunEmailPass failed: %v", err)
	}

	if len(f.db.attachments) != 1 || f.db.attachments[0].Filename != "good.pdf" {
		t.Errorf("attachments stored = %+v", f.db.attachments)
	}
	for _, e := range f.db.emails {
		if !e.Processed {
			t.Error("email with failed attachment not processed")
		}
	}
	if len(f.db.errorsSeen) != 1 {
		t.Errorf("recorded errors = %v", f.db.errorsSeen)
	}
}

// A failing source is isolated: later sources in the sequence still run.
func TestEmailPass_SourceFailureIsolated(t *testing.T) {
	f := newFixture()
	good := &fakeMailbox{
		candidates: []models.CandidateMessage{{MessageID: "msg-2"}},
		messages:   map[string]*mailbox.Message{"msg-2": plainMessage("msg-2", "Hello", "Body.")},
	}
	bad := &fakeMailbox{listErr: errors.New("token expired")}

	f.db.sources = []models.Source{
		{Address: "broken@ivc.example", Position: 0, Active: true},
		{Address: "sales@ivc.example", Position: 1, Active: true},
	}
	factory := func(_ context.Context, source string) MailboxClient {
		if source == "broken@ivc.example" {
			return bad
		}
		return good
	}
	f.orch = New(testConfig(), f.db, f.jobs, &fakeSeen{}, factory, f.storage, f.extractor, f.enricher, f.publisher)

	if err := f.orch.RunEmailPass(context.Background()); err != nil {
		t.Fatalf("RunEmailPass failed: %v", err)
	}
	if len(f.db.emails) != 1 {
		t.Errorf("stored %d emails from healthy source, want 1", len(f.db.emails))
	}
	if len(f.db.errorsSeen) != 1 || f.db.errorsSeen[0] != "broken@ivc.example" {
		t.Errorf("recorded errors = %v", f.db.errorsSeen)
	}
}

// A publish failure leaves the email stored but unprocessed so a later pass
// resumes it; the enrichment is not lost.
func TestEmailPass_PublishFailureLeavesUnprocessed(t *testing.T) {
	f := newFixture()
	f.publisher.publishErr = errors.New("knowledge store down")
	f.mbx.candidates = []models.CandidateMessage{{MessageID: "msg-1"}}
	f.mbx.messages["msg-1"] = plainMessage("msg-1", "RFQ", "Body.")

	if err := f.orch.RunEmailPass(context.Background()); err != nil {
		t.Fatalf("RunEmailPass failed: %v", err)
	}

	if len(f.db.emails) != 1 {
		t.Fatalf("stored %d emails, want 1", len(f.db.emails))
	}
	for _, e := range f.db.emails {
		if e.Processed {
			t.Error("email marked processed despite publish failure")
		}
		if e.Enrichment.Summary == "" {
			t.Error("enrichment lost on publish failure")
		}
	}
}

// The cursor advances only after a source pass completes; a failing source
// keeps its old cursor so the next pass re-covers the window.
func TestEmailPass_CursorAdvancesOnSuccessOnly(t *testing.T) {
	f := newFixture()
	good := &fakeMailbox{messages: make(map[string]*mailbox.Message)}
	bad := &fakeMailbox{listErr: errors.New("unreachable")}

	f.db.sources = []models.Source{
		{Address: "ok@ivc.example", Position: 0, Active: true},
		{Address: "down@ivc.example", Position: 1, Active: true},
	}
	factory := func(_ context.Context, source string) MailboxClient {
		if source == "ok@ivc.example" {
			return good
		}
		return bad
	}
	f.orch = New(testConfig(), f.db, f.jobs, &fakeSeen{}, factory, f.storage, f.extractor, f.enricher, f.publisher)

	if err := f.orch.RunEmailPass(context.Background()); err != nil {
		t.Fatalf("RunEmailPass failed: %v", err)
	}

	if _, ok := f.db.cursors["ok@ivc.example"]; !ok {
		t.Error("healthy source cursor did not advance")
	}
	if _, ok := f.db.cursors["down@ivc.example"]; ok {
		t.Error("failing source cursor advanced")
	}
}

func TestListWindow_WidensAfterOutage(t *testing.T) {
	f := newFixture()

	stale := time.Now().Add(-72 * time.Hour).Format(time.RFC3339)
	got := f.orch.listWindow(models.Source{Address: "a", Cursor: stale})
	if got < 71*time.Hour {
		t.Errorf("window = %v, want about 72h", got)
	}

	recent := time.Now().Add(-time.Hour).Format(time.RFC3339)
	got = f.orch.listWindow(models.Source{Address: "a", Cursor: recent})
	if got != 24*time.Hour {
		t.Errorf("window = %v, want configured 24h", got)
	}

	got = f.orch.listWindow(models.Source{Address: "a"})
	if got != 24*time.Hour {
		t.Errorf("empty-cursor window = %v, want 24h", got)
	}
}

// --- Document pass tests ---

func TestDocumentPass_IngestsNewFile(t *testing.T) {
	f := newFixture()
	f.storage.folders = []drive.Folder{{ID: "dept-1", Name: "Production"}}
	f.storage.files["dept-1"] = []models.CandidateFile{
		{StorageID: "file-1", Name: "manual.pdf", MimeType: "application/pdf", Size: 100},
	}
	f.storage.fileData["file-1"] = []byte("pdf")

	if err := f.orch.RunDocumentPass(context.Background()); err != nil {
		t.Fatalf("RunDocumentPass failed: %v", err)
	}

	if len(f.db.docs) != 1 {
		t.Fatalf("stored %d documents, want 1", len(f.db.docs))
	}
	for _, d := range f.db.docs {
		if !d.Processed || d.Department != "Production" {
			t.Errorf("document = %+v", d)
		}
	}
	if len(f.publisher.published) != 1 || f.publisher.published[0] != "doc_file-1.txt" {
		t.Errorf("published = %v", f.publisher.published)
	}
}

func TestDocumentPass_SeenFileSkipped(t *testing.T) {
	f := newFixture()
	f.db.docs["d-1"] = &models.Document{ID: "d-1", StorageID: "file-1", Processed: true}
	f.storage.files["docs-root"] = []models.CandidateFile{
		{StorageID: "file-1", Name: "manual.pdf", MimeType: "application/pdf"},
	}

	if err := f.orch.RunDocumentPass(context.Background()); err != nil {
		t.Fatalf("RunDocumentPass failed: %v", err)
	}
	if f.enricher.documentCalls != 0 {
		t.Errorf("re-enriched a seen file %d times", f.enricher.documentCalls)
	}
}

func TestDocumentPass_OCROutputNormalized(t *testing.T) {
	f := newFixture()
	f.extractor.ocrFor = map[string]bool{"scan.png": true}
	f.storage.files["docs-root"] = []models.CandidateFile{
		{StorageID: "file-1", Name: "scan.png", MimeType: "image/png"},
	}
	f.storage.fileData["file-1"] = []byte("png")

	if err := f.orch.RunDocumentPass(context.Background()); err != nil {
		t.Fatalf("RunDocumentPass failed: %v", err)
	}
	if f.enricher.correctCalls != 1 {
		t.Errorf("OCR correction ran %d times, want 1", f.enricher.correctCalls)
	}
}

func TestMonitorDocuments_EnqueuesOnNewFiles(t *testing.T) {
	f := newFixture()
	f.storage.files["docs-root"] = []models.CandidateFile{
		{StorageID: "file-new", Name: "new.pdf", MimeType: "application/pdf"},
	}

	if err := f.orch.MonitorDocuments(context.Background()); err != nil {
		t.Fatalf("MonitorDocuments failed: %v", err)
	}
	if len(f.jobs.enqueued) != 1 || f.jobs.enqueued[0] != models.ClassDocument {
		t.Errorf("enqueued = %v", f.jobs.enqueued)
	}
}

// A store error while checking one candidate must not abort the poll; the
// remaining candidates are still checked and a pass is still scheduled.
func TestMonitorDocuments_ExistenceCheckFailureIsolated(t *testing.T) {
	f := newFixture()
	f.db.existsErrFor = map[string]error{"file-bad": errors.New("connection reset")}
	f.storage.files["docs-root"] = []models.CandidateFile{
		{StorageID: "file-bad", Name: "flaky.pdf", MimeType: "application/pdf"},
		{StorageID: "file-new", Name: "new.pdf", MimeType: "application/pdf"},
	}

	if err := f.orch.MonitorDocuments(context.Background()); err != nil {
		t.Fatalf("MonitorDocuments failed: %v", err)
	}
	if len(f.jobs.enqueued) != 1 || f.jobs.enqueued[0] != models.ClassDocument {
		t.Errorf("enqueued = %v", f.jobs.enqueued)
	}
}

func TestMonitorDocuments_QuietWhenNothingNew(t *testing.T) {
	f := newFixture()
	f.db.docs["d-1"] = &models.Document{ID: "d-1", StorageID: "file-1", Processed: true}
	f.storage.files["docs-root"] = []models.CandidateFile{
		{StorageID: "file-1", Name: "manual.pdf", MimeType: "application/pdf"},
	}

	if err := f.orch.MonitorDocuments(context.Background()); err != nil {
		t.Fatalf("MonitorDocuments failed: %v", err)
	}
	if len(f.jobs.enqueued) != 0 {
		t.Errorf("enqueued = %v", f.jobs.enqueued)
	}
}
