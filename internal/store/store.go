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

// Package store provides the Postgres-backed item store. The fingerprint
// unique constraint on emails is the sole deduplication guarantee: the
// insert is atomic and a lost race surfaces as ErrDuplicate, which callers
// treat as "already stored", never as a failure.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicate reports that an insert hit a uniqueness constraint: the
// logical item is already stored. This is a signal, not an error condition.
var ErrDuplicate = errors.New("item already stored")

// Store provides CRUD operations for pipeline state in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New creates an item store backed by the given Postgres pool.
// It ensures the schema exists on creation.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ingestion schema: %w", err)
	}
	slog.Info("item store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sources (
			id          BIGSERIAL PRIMARY KEY,
			address     TEXT NOT NULL UNIQUE,
			position    INT NOT NULL,
			cursor      TEXT DEFAULT '',
			active      BOOLEAN DEFAULT TRUE,
			last_sync   TIMESTAMPTZ,
			created_at  TIMESTAMPTZ DEFAULT NOW(),
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS emails (
			email_id    TEXT PRIMARY KEY,
			message_id  TEXT NOT NULL,
			thread_id   TEXT DEFAULT '',
			fingerprint TEXT NOT NULL UNIQUE,
			subject     TEXT DEFAULT '',
			body        TEXT DEFAULT '',
			sender      TEXT DEFAULT '',
			recipients  TEXT[] DEFAULT '{}',
			date        TIMESTAMPTZ,
			labels      TEXT[] DEFAULT '{}',
			source_addr TEXT DEFAULT '',
			summary     TEXT DEFAULT '',
			category    TEXT DEFAULT '',
			priority    TEXT DEFAULT '',
			sentiment   TEXT DEFAULT '',
			importance  TEXT DEFAULT '',
			keywords    TEXT[] DEFAULT '{}',
			processed   BOOLEAN DEFAULT FALSE,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_emails_message ON emails(message_id);
		CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);
		CREATE INDEX IF NOT EXISTS idx_emails_created ON emails(created_at);

		CREATE TABLE IF NOT EXISTS email_attachments (
			attachment_id BIGSERIAL PRIMARY KEY,
			email_id      TEXT NOT NULL REFERENCES emails(email_id) ON DELETE CASCADE,
			filename      TEXT DEFAULT '',
			mime_type     TEXT DEFAULT '',
			size          INT DEFAULT 0,
			storage_id    TEXT DEFAULT '',
			content       TEXT DEFAULT '',
			summary       TEXT DEFAULT '',
			category      TEXT DEFAULT '',
			priority      TEXT DEFAULT '',
			sentiment     TEXT DEFAULT '',
			importance    TEXT DEFAULT '',
			keywords      TEXT[] DEFAULT '{}',
			processed     BOOLEAN DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_attachments_email ON email_attachments(email_id);

		CREATE TABLE IF NOT EXISTS documents (
			id             TEXT PRIMARY KEY,
			storage_id     TEXT NOT NULL UNIQUE,
			source_type    TEXT DEFAULT '',
			filename       TEXT DEFAULT '',
			department     TEXT DEFAULT '',
			extracted_text TEXT DEFAULT '',
			size           BIGINT DEFAULT 0,
			summary        TEXT DEFAULT '',
			category       TEXT DEFAULT '',
			priority       TEXT DEFAULT '',
			sentiment      TEXT DEFAULT '',
			importance     TEXT DEFAULT '',
			keywords       TEXT[] DEFAULT '{}',
			processed      BOOLEAN DEFAULT FALSE,
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);

		CREATE TABLE IF NOT EXISTS processing_errors (
			id          BIGSERIAL PRIMARY KEY,
			item_ref    TEXT NOT NULL,
			item_class  TEXT NOT NULL,
			error       TEXT NOT NULL,
			occurred_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_errors_occurred ON processing_errors(occurred_at);
	`)
	return err
}
