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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_StructuredJSON(t *testing.T) {
	raw := `{"summary": "Order confirmed.", "urgency": "Urgent", "sentiment": "Positive", "importance": "Very Important", "keywords": ["order", "confirmation", "PO-1001"], "category": "Purchase Order"}`

	got := ParseResponse(raw)

	assert.Equal(t, ParseStructured, got.Mode)
	assert.Equal(t, "Order confirmed.", got.Summary)
	assert.Equal(t, "Urgent", got.Urgency)
	assert.Equal(t, []string{"order", "confirmation", "PO-1001"}, got.Keywords)
	assert.Equal(t, "Purchase Order", got.Category)
}

func TestParseResponse_StructuredInCodeFence(t *testing.T) {
	raw := "```json\n{\"summary\": \"Quarterly report attached.\", \"category\": \"Report\"}\n```"

	got := ParseResponse(raw)

	assert.Equal(t, ParseStructured, got.Mode)
	assert.Equal(t, "Quarterly report attached.", got.Summary)
	// Missing fields default
	assert.Equal(t, "Normal", got.Urgency)
	assert.Equal(t, "Neutral", got.Sentiment)
	assert.Equal(t, "Normal", got.Importance)
	assert.Equal(t, []string{}, got.Keywords)
}

// TestParseResponse_FallbackMissingFields covers the §4.5-style scenario:
// a multiline response missing Sentiment/Importance/Keywords defaults them.
func TestParseResponse_FallbackMissingFields(t *testing.T) {
	raw := "Summary: Order confirmed.\nUrgency: Urgent\nCategory: Purchase Order"

	got := ParseResponse(raw)

	assert.Equal(t, ParseFallbackParsed, got.Mode)
	assert.Equal(t, "Order confirmed.", got.Summary)
	assert.Equal(t, "Urgent", got.Urgency)
	assert.Equal(t, "Purchase Order", got.Category)
	assert.Equal(t, "Neutral", got.Sentiment)
	assert.Equal(t, "Normal", got.Importance)
	assert.Equal(t, []string{}, got.Keywords)
}

func TestParseResponse_SummaryContinuation(t *testing.T) {
	raw := "Summary: The vendor requests payment\nwithin 30 days of invoice date.\nUrgency: Normal"

	got := ParseResponse(raw)

	assert.Equal(t, "The vendor requests payment within 30 days of invoice date.", got.Summary)
}

func TestParseResponse_FieldsInAnyOrder(t *testing.T) {
	raw := "Category: Quotation\nKeywords: valve, DN300, tender\nSummary: Quotation for DN300 valves."

	got := ParseResponse(raw)

	assert.Equal(t, "Quotation", got.Category)
	assert.Equal(t, []string{"valve", "DN300", "tender"}, got.Keywords)
	assert.Equal(t, "Quotation for DN300 valves.", got.Summary)
}

func TestParseResponse_KeywordsAsBracketedList(t *testing.T) {
	raw := "Summary: s\nKeywords: [alpha, beta, gamma]"

	got := ParseResponse(raw)

	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got.Keywords)
}

func TestParseResponse_KeywordsAsJSONString(t *testing.T) {
	raw := `{"summary": "s", "keywords": "alpha, beta"}`

	got := ParseResponse(raw)

	assert.Equal(t, ParseStructured, got.Mode)
	assert.Equal(t, []string{"alpha", "beta"}, got.Keywords)
}

// TestParseResponse_NeverIncomplete feeds arbitrary junk and verifies the
// record always comes back with every field populated.
func TestParseResponse_NeverIncomplete(t *testing.T) {
	inputs := []string{
		"",
		"   \n\n  ",
		"complete nonsense with no labels at all",
		"{broken json",
		"Urgency:",
		"```json\nnot json\n```",
		"Summary:",
	}

	for _, in := range inputs {
		got := ParseResponse(in)
		require.NotNil(t, got.Keywords, "input %q: keywords must never be nil", in)
		assert.Equal(t, "Normal", got.Urgency, "input %q", in)
		assert.Equal(t, "Neutral", got.Sentiment, "input %q", in)
		assert.Equal(t, "Normal", got.Importance, "input %q", in)
	}
}

// Enum violations are accepted as-is: the taxonomy is advisory.
func TestParseResponse_EnumViolationAccepted(t *testing.T) {
	raw := "Summary: s\nUrgency: Catastrophically Urgent"

	got := ParseResponse(raw)

	assert.Equal(t, "Catastrophically Urgent", got.Urgency)
}
