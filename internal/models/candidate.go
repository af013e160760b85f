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

package models

import "time"

// CandidateMessage is a message discovered from a mailbox source before
// persistence. It carries only what the fingerprint and the cheap
// existence checks need; the full payload is fetched separately.
type CandidateMessage struct {
	MessageID string
	ThreadID  string
}

// CandidateFile is a file discovered from a file-storage source before
// persistence.
type CandidateFile struct {
	StorageID    string
	Name         string
	MimeType     string
	Size         int64
	ModifiedTime time.Time
}

// AttachmentStub identifies an attachment within a fetched message whose
// bytes have not been downloaded yet.
type AttachmentStub struct {
	AttachmentID string
	Filename     string
	MimeType     string
	Size         int
}
