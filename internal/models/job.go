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

// ItemClass is one of the fixed categories of work, each routed to its own
// named queue.
type ItemClass string

const (
	ClassEmail      ItemClass = "email"
	ClassDocument   ItemClass = "document"
	ClassDigest     ItemClass = "digest"
	ClassMonitoring ItemClass = "monitoring"
)

// JobStatus is the lifecycle state of a queue job. Transitions are
// forward-only except failed -> pending on retry; a completed job never
// transitions again.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobStarted   JobStatus = "started"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// QueueJob is a durable work record held in a named queue.
type QueueJob struct {
	ID        string    `json:"id"`
	Class     ItemClass `json:"class"`
	ItemRef   string    `json:"item_ref,omitempty"` // target item reference, empty for pass-level jobs
	Status    JobStatus `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemState is the outcome of running one item through a pipeline pass.
// The intermediate stages (extraction, enrichment, publication) do not
// surface as states; a pass either finishes an item, skips it as a
// duplicate, or errors.
type ItemState string

const (
	StateDeduplicated ItemState = "deduplicated"
	StateDone         ItemState = "done"
	StateErrored      ItemState = "errored"
)
