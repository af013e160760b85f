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

package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.Client(), server.URL, "inbox@example.com", 50, time.Millisecond, 1000)
}

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// fullMessageResponse builds a full-format message with a text/plain part
// and one PDF attachment.
func fullMessageResponse(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"threadId":     "thread-" + id,
		"internalDate": "1756300000000",
		"payload": map[string]interface{}{
			"mimeType": "multipart/mixed",
			"headers": []map[string]string{
				{"name": "Message-ID", "value": "<" + id + "@example.com>"},
				{"name": "Subject", "value": "Quotation request"},
				{"name": "From", "value": "buyer@example.com"},
			},
			"parts": []map[string]interface{}{
				{
					"mimeType": "text/plain",
					"body":     map[string]interface{}{"data": b64url("Please quote 50 gate valves.")},
				},
				{
					"mimeType": "application/pdf",
					"filename": "spec.pdf",
					"body": map[string]interface{}{
						"attachmentId": "att-1",
						"size":         2048,
					},
				},
			},
		},
	}
}

func TestListMessages_Pagination(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		calls++
		if r.URL.Query().Get("q") == "" {
			t.Errorf("missing recency query, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"messages": []map[string]string{
					{"id": "msg-1", "threadId": "t-1"},
					{"id": "msg-2", "threadId": "t-2"},
				},
				"nextPageToken": "tok-2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []map[string]string{
				{"id": "msg-3", "threadId": "t-3"},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server)
	candidates, err := c.ListMessages(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 listing calls, got %d", calls)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[2].MessageID != "msg-3" {
		t.Errorf("last candidate = %q, want msg-3", candidates[2].MessageID)
	}
}

func TestListMessages_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(server)
	candidates, err := c.ListMessages(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected 0 candidates, got %d", len(candidates))
	}
}

func TestListMessages_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server)
	if _, err := c.ListMessages(context.Background(), time.Hour); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestGetMessage_ParsesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("format") != "full" {
			t.Errorf("expected format=full, got %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(fullMessageResponse("msg-1"))
	}))
	defer server.Close()

	c := newTestClient(server)
	msg, err := c.GetMessage(context.Background(), "msg-1")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}

	if msg.Headers["Message-ID"] != "<msg-1@example.com>" {
		t.Errorf("Message-ID header = %q", msg.Headers["Message-ID"])
	}
	if msg.Body != "Please quote 50 gate valves." {
		t.Errorf("body = %q", msg.Body)
	}
	if msg.Date == nil {
		t.Error("expected parsed date")
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment stub, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.AttachmentID != "att-1" || att.Filename != "spec.pdf" || att.Size != 2048 {
		t.Errorf("attachment stub = %+v", att)
	}
}

func TestGetAttachment_DecodesData(t *testing.T) {
	payload := []byte("%PDF-1.4 fake")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"size": len(payload),
			"data": base64.RawURLEncoding.EncodeToString(payload),
		})
	}))
	defer server.Close()

	c := newTestClient(server)
	data, err := c.GetAttachment(context.Background(), "msg-1", "att-1")
	if err != nil {
		t.Fatalf("GetAttachment failed: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("attachment bytes = %q", data)
	}
}

func TestExtractBody_PrefersPlainAndFallsBackToHTML(t *testing.T) {
	plainAndHTML := &rawPayload{
		MimeType: "multipart/alternative",
		Parts: []rawPayload{
			{MimeType: "text/html", Body: rawBody{Data: b64url("<p>Hello <b>there</b></p>")}},
			{MimeType: "text/plain", Body: rawBody{Data: b64url("Hello there")}},
		},
	}
	if got := extractBody(plainAndHTML); got != "Hello there" {
		t.Errorf("plain-preferred body = %q", got)
	}

	htmlOnly := &rawPayload{
		MimeType: "text/html",
		Body:     rawBody{Data: b64url("<div>Hello &amp; welcome</div>")},
	}
	if got := extractBody(htmlOnly); got != "Hello & welcome" {
		t.Errorf("html-stripped body = %q", got)
	}
}

func TestStripDisclaimers(t *testing.T) {
	body := "Order confirmed for next week.\n\nDISCLAIMER: This email and any files transmitted are confidential."
	got := stripDisclaimers(body)
	if got != "Order confirmed for next week." {
		t.Errorf("stripped body = %q", got)
	}

	clean := "No boilerplate here."
	if got := stripDisclaimers(clean); got != clean {
		t.Errorf("clean body changed: %q", got)
	}
}
