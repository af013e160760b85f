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

// Package dedup provides a cheap first-tier seen filter over transport IDs,
// backed by a Redis SET with TTL. It short-circuits re-listing of messages
// whose IDs were already handled recently; the durable guarantee remains the
// store's unique fingerprint constraint, not this filter.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long we remember a seen transport ID. Listing
	// windows are at most 24h, so overlapping passes within that window
	// are filtered; anything older falls through to the fingerprint check.
	DefaultTTL = 48 * time.Hour

	keyPrefix = "rag:seen:"
)

// Filter tracks which transport IDs have already been handled.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a seen filter backed by Redis.
func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{
		rdb: rdb,
		ttl: DefaultTTL,
	}
}

// IsNew returns true if the transport ID has NOT been seen before.
// If true, the ID is marked as seen atomically (SETNX).
func (f *Filter) IsNew(ctx context.Context, transportID string) (bool, error) {
	key := fmt.Sprintf("%s%s", keyPrefix, transportID)

	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("seen filter SETNX: %w", err)
	}

	return set, nil
}

// Forget drops a transport ID from the filter. Called when processing fails
// after the ID was claimed, so the next pass retries instead of skipping
// the item until the TTL runs out.
func (f *Filter) Forget(ctx context.Context, transportID string) error {
	if err := f.rdb.Del(ctx, keyPrefix+transportID).Err(); err != nil {
		return fmt.Errorf("seen filter DEL: %w", err)
	}
	return nil
}
