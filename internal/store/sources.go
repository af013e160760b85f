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
	"fmt"

	"github.com/ivcrag/ingestion/internal/models"
)

// EnsureSource upserts a configured source keyed on its address. Position
// comes from the configuration order and is refreshed on every startup so
// a reordered config takes effect without manual migration.
func (s *Store) EnsureSource(ctx context.Context, address string, position int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sources (address, position, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (address) DO UPDATE SET
			position   = EXCLUDED.position,
			active     = TRUE,
			updated_at = NOW()
	`, address, position)
	if err != nil {
		return fmt.Errorf("ensure source %s: %w", address, err)
	}
	return nil
}

// ListActiveSources returns active sources in their configured sequence.
// The order is business-significant and must be preserved by callers.
func (s *Store) ListActiveSources(ctx context.Context) ([]models.Source, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, position, cursor, active, last_sync
		FROM sources
		WHERE active = TRUE
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(&src.Address, &src.Position, &src.Cursor, &src.Active, &src.LastSync); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// SaveCursor persists a source's incremental-sync token after a successful
// fetch batch. Only the orchestrator calls this, and only on success, so a
// failed batch is re-attempted from the previous cursor.
func (s *Store) SaveCursor(ctx context.Context, address, cursor string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sources
		SET cursor = $1, last_sync = NOW(), updated_at = NOW()
		WHERE address = $2
	`, cursor, address)
	if err != nil {
		return fmt.Errorf("save cursor for %s: %w", address, err)
	}
	return nil
}

// RecordError stores the last failure for an item so failed items stay
// queryable with their error attached.
func (s *Store) RecordError(ctx context.Context, itemRef string, class models.ItemClass, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processing_errors (item_ref, item_class, error)
		VALUES ($1, $2, $3)
	`, itemRef, string(class), errMsg)
	if err != nil {
		return fmt.Errorf("record processing error: %w", err)
	}
	return nil
}

// ItemError is one recorded per-item failure.
type ItemError struct {
	ItemRef   string
	ItemClass string
	Error     string
}

// RecentErrors lists the latest recorded per-item failures, newest first.
func (s *Store) RecentErrors(ctx context.Context, limit int) ([]ItemError, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT item_ref, item_class, error
		FROM processing_errors
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent errors: %w", err)
	}
	defer rows.Close()

	var out []ItemError
	for rows.Next() {
		var e ItemError
		if err := rows.Scan(&e.ItemRef, &e.ItemClass, &e.Error); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
