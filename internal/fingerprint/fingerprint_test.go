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

package fingerprint

import (
	"strings"
	"testing"
)

// TestCompute_SameContentDifferentTransport verifies that two observations
// of the same logical message hash identically even when discovered via
// different sources with different transport ids.
func TestCompute_SameContentDifferentTransport(t *testing.T) {
	headers := map[string]string{
		"From":    "a@x.com",
		"To":      "b@x.com",
		"Subject": "PO-1001",
		"Date":    "Mon, 12 Jan 2026 10:00:00 +0530",
	}
	body := "Please confirm"

	// The transport message id is deliberately not part of the hash input.
	h1 := Compute(headers, body)
	h2 := Compute(headers, body)

	if h1 != h2 {
		t.Errorf("identical canonical fields produced different hashes: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestCompute_DifferentSubject(t *testing.T) {
	headers := map[string]string{"From": "a@x.com", "Subject": "PO-1001"}
	other := map[string]string{"From": "a@x.com", "Subject": "PO-1002"}

	if Compute(headers, "body") == Compute(other, "body") {
		t.Error("different subjects must produce different hashes")
	}
}

func TestCompute_BodyPrefixOnly(t *testing.T) {
	headers := map[string]string{"From": "a@x.com"}
	common := strings.Repeat("x", BodyPrefixLen)

	// Divergence beyond the prefix does not change the hash.
	h1 := Compute(headers, common+"tail one")
	h2 := Compute(headers, common+"a completely different tail")
	if h1 != h2 {
		t.Error("bytes beyond the prefix must not affect the hash")
	}

	// Divergence within the prefix does.
	h3 := Compute(headers, "y"+common)
	if h1 == h3 {
		t.Error("bytes within the prefix must affect the hash")
	}
}

func TestCompute_AbsentHeadersSkipped(t *testing.T) {
	// A message with no Date header must not hash the same as one with an
	// empty Date header value.
	withEmpty := Compute(map[string]string{"From": "a@x.com", "Date": ""}, "b")
	without := Compute(map[string]string{"From": "a@x.com"}, "b")
	if withEmpty == without {
		t.Error("absent and empty headers should be distinguishable")
	}
}
