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
	"strings"
	"time"

	"github.com/ivcrag/ingestion/internal/models"
)

// Message is a fully fetched mailbox message: parsed headers, decoded body
// text and stubs for any attachments.
type Message struct {
	ID          string
	ThreadID    string
	Headers     map[string]string
	Body        string
	Date        *time.Time
	Attachments []models.AttachmentStub
}

// rawMessage mirrors the provider's full-format message response. The
// payload tree nests arbitrarily for multipart messages.
type rawMessage struct {
	ID           string     `json:"id"`
	ThreadID     string     `json:"threadId"`
	InternalDate int64      `json:"internalDate,string"`
	Payload      rawPayload `json:"payload"`
}

type rawPayload struct {
	PartID   string `json:"partId"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body  rawBody      `json:"body"`
	Parts []rawPayload `json:"parts"`
}

type rawBody struct {
	AttachmentID string `json:"attachmentId"`
	Size         int    `json:"size"`
	Data         string `json:"data"`
}

// disclaimerMarkers begin the boilerplate blocks appended by corporate mail
// gateways. Everything from the first marker on is dropped so the
// fingerprint and enrichment see only the authored text.
var disclaimerMarkers = []string{
	"DISCLAIMER",
	"CONFIDENTIALITY NOTICE",
	"This email and any files transmitted",
	"This message contains confidential information",
}

// parseMessage converts a provider message response into a Message.
func parseMessage(raw *rawMessage) (*Message, error) {
	headers := make(map[string]string, len(raw.Payload.Headers))
	for _, h := range raw.Payload.Headers {
		headers[h.Name] = h.Value
	}

	body := extractBody(&raw.Payload)
	body = stripDisclaimers(body)

	msg := &Message{
		ID:          raw.ID,
		ThreadID:    raw.ThreadID,
		Headers:     headers,
		Body:        body,
		Attachments: collectAttachments(&raw.Payload),
	}
	if raw.InternalDate > 0 {
		t := time.UnixMilli(raw.InternalDate).UTC()
		msg.Date = &t
	}
	return msg, nil
}

// extractBody walks the payload tree and returns the decoded message text,
// preferring text/plain parts over text/html.
func extractBody(p *rawPayload) string {
	if plain := findPartText(p, "text/plain"); plain != "" {
		return plain
	}
	if html := findPartText(p, "text/html"); html != "" {
		return stripTags(html)
	}
	return ""
}

func findPartText(p *rawPayload, mimeType string) string {
	if p.MimeType == mimeType && p.Filename == "" && p.Body.Data != "" {
		data, err := decodeBase64URL(p.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}
	var parts []string
	for i := range p.Parts {
		if text := findPartText(&p.Parts[i], mimeType); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func collectAttachments(p *rawPayload) []models.AttachmentStub {
	var out []models.AttachmentStub
	if p.Filename != "" && p.Body.AttachmentID != "" {
		out = append(out, models.AttachmentStub{
			AttachmentID: p.Body.AttachmentID,
			Filename:     p.Filename,
			MimeType:     p.MimeType,
			Size:         p.Body.Size,
		})
	}
	for i := range p.Parts {
		out = append(out, collectAttachments(&p.Parts[i])...)
	}
	return out
}

// stripDisclaimers truncates the body at the first disclaimer marker.
func stripDisclaimers(body string) string {
	cut := len(body)
	upper := strings.ToUpper(body)
	for _, marker := range disclaimerMarkers {
		if idx := strings.Index(upper, strings.ToUpper(marker)); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(body[:cut])
}

// stripTags reduces an HTML body to its text content. Block-level tags
// become newlines so paragraphs stay separated.
func stripTags(html string) string {
	var b strings.Builder
	inTag := false
	for i := 0; i < len(html); i++ {
		switch {
		case html[i] == '<':
			inTag = true
			rest := strings.ToLower(html[i:])
			if strings.HasPrefix(rest, "<br") || strings.HasPrefix(rest, "<p") ||
				strings.HasPrefix(rest, "</p") || strings.HasPrefix(rest, "<div") {
				b.WriteByte('\n')
			}
		case html[i] == '>':
			inTag = false
		case !inTag:
			b.WriteByte(html[i])
		}
	}
	text := b.String()
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	return strings.TrimSpace(text)
}
