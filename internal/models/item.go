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

// Package models defines the data structures shared across the ingestion
// pipeline: stored items, attachments, enrichment results, queue jobs and
// the transient candidates discovered during a fetch pass.
package models

import "time"

// Enrichment is the generative-model-derived annotation attached to an item.
// The urgency/sentiment/importance values follow a fixed taxonomy
// (Urgent/Normal/Low Priority etc.) but are stored as free text: a response
// that violates the taxonomy is accepted as-is.
type Enrichment struct {
	Summary    string   `json:"summary"`
	Urgency    string   `json:"urgency"`
	Sentiment  string   `json:"sentiment"`
	Importance string   `json:"importance"`
	Keywords   []string `json:"keywords"`
	Category   string   `json:"category"`
}

// Email is a durable stored email record.
type Email struct {
	ID          string       `json:"email_id"`
	MessageID   string       `json:"message_id"`
	ThreadID    string       `json:"thread_id,omitempty"`
	Fingerprint string       `json:"fingerprint"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Sender      string       `json:"sender"`
	Recipients  []string     `json:"recipients"`
	Date        *time.Time   `json:"date,omitempty"`
	Labels      []string     `json:"labels,omitempty"`
	Attachments []Attachment `json:"attachments"`
	Enrichment  Enrichment   `json:"enrichment"`
	Processed   bool         `json:"processed"`
	SourceAddr  string       `json:"source_addr"`
}

// Attachment is a child of a stored email. It is extracted and enriched
// independently of its parent.
type Attachment struct {
	ID         int64      `json:"attachment_id,omitempty"`
	EmailID    string     `json:"email_id,omitempty"`
	Filename   string     `json:"filename"`
	MimeType   string     `json:"mime_type"`
	Size       int        `json:"size"`
	StorageID  string     `json:"storage_id,omitempty"` // archive file ID after upload
	Content    string     `json:"content,omitempty"`    // extracted text
	Enrichment Enrichment `json:"enrichment"`
	Processed  bool       `json:"processed"`
}

// Document is a durable stored file-storage record.
type Document struct {
	ID            string     `json:"id"`
	StorageID     string     `json:"storage_id"` // remote file ID
	SourceType    string     `json:"source_type"`
	Filename      string     `json:"filename"`
	Department    string     `json:"department"`
	ExtractedText string     `json:"extracted_text"`
	Size          int64      `json:"size"`
	Enrichment    Enrichment `json:"enrichment"`
	Processed     bool       `json:"processed"`
}

// Source is a configured mailbox visited by the email pass. Sources are
// processed in strict Position order; the cursor is an opaque
// incremental-sync token mutated only after a successful fetch batch.
type Source struct {
	Address  string     `json:"address"`
	Position int        `json:"position"`
	Cursor   string     `json:"cursor"`
	Active   bool       `json:"active"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}
