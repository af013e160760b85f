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

// Package fingerprint computes the stable identity hash used as the sole
// deduplication key for stored items. The same logical email observed via
// different transport ids (one copy per recipient, re-fetches, overlapping
// windows) hashes identically because the hash is derived from canonical
// header fields and body content, not from the transport message id.
//
// Known limitation: forwarded or replied messages carry altered headers and
// therefore hash differently even when the business content is the same.
// This is accepted behaviour, not something to widen the hash scope over.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// BodyPrefixLen is how many leading bytes of the body participate in the
// hash. Enough to distinguish forwards that keep identical headers.
const BodyPrefixLen = 500

// canonicalHeaders are the header fields that participate in the hash, in
// fixed order. Message-ID is the most reliable; the rest guard against
// providers that rewrite it.
var canonicalHeaders = []string{"Message-ID", "Date", "From", "To", "Subject"}

// Compute returns the hex-encoded SHA-256 identity hash for an item built
// from its canonical headers and the first BodyPrefixLen bytes of body text.
// Absent headers are skipped rather than hashed as empty, matching how the
// canonical representation has always been built.
func Compute(headers map[string]string, body string) string {
	var b strings.Builder
	for _, name := range canonicalHeaders {
		if v, ok := headers[name]; ok {
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	if len(body) > BodyPrefixLen {
		body = body[:BodyPrefixLen]
	}
	b.WriteString(body)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
