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

package llm

import (
	"encoding/json"
	"strings"

	"github.com/ivcrag/ingestion/internal/models"
)

// ParseMode reports which parsing path produced an enrichment record, so
// callers (and tests) can tell a clean structured response from one that
// went through the line-oriented fallback.
type ParseMode string

const (
	ParseStructured     ParseMode = "structured"
	ParseFallbackParsed ParseMode = "fallback"
)

// ParsedEnrichment is an enrichment record together with the parse path
// that produced it. All six fields of the record are always populated,
// with defaults filling any gap.
type ParsedEnrichment struct {
	models.Enrichment
	Mode ParseMode
}

// structuredResponse mirrors the JSON shape the model is asked for.
// Keywords tolerate both an array and a comma-joined string.
type structuredResponse struct {
	Summary    string          `json:"summary"`
	Urgency    string          `json:"urgency"`
	Sentiment  string          `json:"sentiment"`
	Importance string          `json:"importance"`
	Keywords   json.RawMessage `json:"keywords"`
	Category   string          `json:"category"`
}

// ParseResponse turns raw completion output into a complete enrichment
// record. It attempts a JSON decode first and falls back to the
// line-oriented format on any decode failure. It never fails: malformed
// input yields a record of defaults.
func ParseResponse(raw string) ParsedEnrichment {
	text := stripCodeFences(raw)

	var sr structuredResponse
	if err := json.Unmarshal([]byte(text), &sr); err == nil {
		out := ParsedEnrichment{
			Enrichment: models.Enrichment{
				Summary:    strings.TrimSpace(sr.Summary),
				Urgency:    strings.TrimSpace(sr.Urgency),
				Sentiment:  strings.TrimSpace(sr.Sentiment),
				Importance: strings.TrimSpace(sr.Importance),
				Keywords:   parseKeywordsJSON(sr.Keywords),
				Category:   strings.TrimSpace(sr.Category),
			},
			Mode: ParseStructured,
		}
		applyDefaults(&out.Enrichment)
		return out
	}

	out := ParsedEnrichment{
		Enrichment: parseMultiline(text),
		Mode:       ParseFallbackParsed,
	}
	applyDefaults(&out.Enrichment)
	return out
}

// parseMultiline recognizes "Field: value" prefixes in any order.
// Unlabeled lines following Summary: continue the summary.
func parseMultiline(raw string) models.Enrichment {
	e := models.Enrichment{Keywords: []string{}}

	inSummary := false
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Summary:"):
			e.Summary = strings.TrimSpace(strings.TrimPrefix(line, "Summary:"))
			inSummary = true
		case strings.HasPrefix(line, "Urgency:"):
			e.Urgency = strings.TrimSpace(strings.TrimPrefix(line, "Urgency:"))
			inSummary = false
		case strings.HasPrefix(line, "Sentiment:"):
			e.Sentiment = strings.TrimSpace(strings.TrimPrefix(line, "Sentiment:"))
			inSummary = false
		case strings.HasPrefix(line, "Importance:"):
			e.Importance = strings.TrimSpace(strings.TrimPrefix(line, "Importance:"))
			inSummary = false
		case strings.HasPrefix(line, "Keywords:"):
			e.Keywords = splitKeywords(strings.TrimPrefix(line, "Keywords:"))
			inSummary = false
		case strings.HasPrefix(line, "Category:"):
			e.Category = strings.TrimSpace(strings.TrimPrefix(line, "Category:"))
			inSummary = false
		case inSummary && line != "":
			e.Summary += " " + line
		}
	}
	return e
}

// applyDefaults fills the taxonomy fields so the record is always complete.
// Summary intentionally has no default: an empty summary stays empty.
func applyDefaults(e *models.Enrichment) {
	if e.Urgency == "" {
		e.Urgency = "Normal"
	}
	if e.Sentiment == "" {
		e.Sentiment = "Neutral"
	}
	if e.Importance == "" {
		e.Importance = "Normal"
	}
	if e.Keywords == nil {
		e.Keywords = []string{}
	}
}

func splitKeywords(s string) []string {
	out := []string{}
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		k = strings.Trim(k, "[]")
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// parseKeywordsJSON accepts either ["a","b"] or "a, b".
func parseKeywordsJSON(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := []string{}
		for _, k := range list {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return out
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return splitKeywords(joined)
	}
	return []string{}
}

// stripCodeFences removes markdown fencing that chat models like to wrap
// JSON responses in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
