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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivcrag/ingestion/internal/config"
)

// chatCompletionServer returns a fake OpenAI-compatible endpoint that
// answers every chat completion with the given content.
func chatCompletionServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"object": "chat.completion",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(t *testing.T, host string) *Client {
	t.Helper()
	c, err := NewClient(config.LLMConfig{
		Host:        host,
		Model:       "test-model",
		Temperature: 0.2,
		TopP:        0.9,
		Timeout:     5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestEnrichEmail_ParsesFallbackResponse(t *testing.T) {
	srv := chatCompletionServer(t,
		"Summary: Order confirmed.\nUrgency: Urgent\nCategory: Purchase Order",
		http.StatusOK)
	defer srv.Close()

	c := testClient(t, srv.URL)

	got, err := c.EnrichEmail(context.Background(), EmailInput{
		From:    "a@x.com",
		To:      []string{"b@x.com"},
		Subject: "PO-1001",
		Body:    "Please confirm",
	})
	require.NoError(t, err)

	assert.Equal(t, ParseFallbackParsed, got.Mode)
	assert.Equal(t, "Order confirmed.", got.Summary)
	assert.Equal(t, "Urgent", got.Urgency)
	assert.Equal(t, "Neutral", got.Sentiment)
}

func TestEnrichEmail_TransportErrorPropagates(t *testing.T) {
	srv := chatCompletionServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	c := testClient(t, srv.URL)

	_, err := c.EnrichEmail(context.Background(), EmailInput{From: "a@x.com", Body: "b"})
	assert.Error(t, err, "transport failures must reach the queue retry policy")
}

func TestCorrectOCR_PassThroughOnFailure(t *testing.T) {
	srv := chatCompletionServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	c := testClient(t, srv.URL)

	in := "0rder c0nfirmed for va1ve DN300"
	assert.Equal(t, in, c.CorrectOCR(context.Background(), in))
}

func TestCorrectOCR_ReturnsCorrectedText(t *testing.T) {
	srv := chatCompletionServer(t, "  Order confirmed for valve DN300  ", http.StatusOK)
	defer srv.Close()

	c := testClient(t, srv.URL)

	got := c.CorrectOCR(context.Background(), "0rder c0nfirmed for va1ve DN300")
	assert.Equal(t, "Order confirmed for valve DN300", got)
}

func TestCorrectOCR_EmptyInputSkipsCall(t *testing.T) {
	// No server at all: an empty input must not trigger a completion call.
	c := testClient(t, "http://127.0.0.1:1")
	assert.Equal(t, "", c.CorrectOCR(context.Background(), ""))
}
