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

// Package mailbox provides a REST client for the mailbox provider: paginated
// message listing inside a recency window, full-payload retrieval and
// attachment download. Listing calls are rate limited per source so a large
// backlog cannot exhaust the provider quota.
package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ivcrag/ingestion/internal/models"
	"golang.org/x/time/rate"
)

// Client retrieves messages for one mailbox source.
type Client struct {
	httpClient *http.Client
	baseURL    string
	source     string
	pageSize   int
	pageDelay  time.Duration
	limiter    *rate.Limiter
}

// NewClient creates a mailbox client bound to one source address. The
// httpClient must already carry that source's credentials.
func NewClient(httpClient *http.Client, baseURL, source string, pageSize int, pageDelay time.Duration, ratePerSec float64) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		source:     source,
		pageSize:   pageSize,
		pageDelay:  pageDelay,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

type listResponse struct {
	Messages []struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	} `json:"messages"`
	NextPageToken string `json:"nextPageToken"`
}

type attachmentResponse struct {
	Size int    `json:"size"`
	Data string `json:"data"`
}

// ListMessages returns candidate messages received within the window, oldest
// page first, walking every page. Candidates carry IDs only; the full
// payload is fetched per message after the cheap existence checks pass.
func (c *Client) ListMessages(ctx context.Context, window time.Duration) ([]models.CandidateMessage, error) {
	days := int(window.Hours() / 24)
	if days < 1 {
		days = 1
	}
	query := fmt.Sprintf("newer_than:%dd", days)

	var out []models.CandidateMessage
	pageToken := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		u := fmt.Sprintf("%s/users/%s/messages?maxResults=%d&q=%s",
			c.baseURL, url.PathEscape(c.source), c.pageSize, url.QueryEscape(query))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page listResponse
		if err := c.getJSON(ctx, u, &page); err != nil {
			return nil, fmt.Errorf("list messages for %s: %w", c.source, err)
		}

		for _, m := range page.Messages {
			out = append(out, models.CandidateMessage{
				MessageID: m.ID,
				ThreadID:  m.ThreadID,
			})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken

		// Pause between pages so bursty listing stays polite even when
		// the limiter has tokens banked.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	slog.Info("listed mailbox candidates",
		"source", c.source,
		"window", query,
		"count", len(out),
	)
	return out, nil
}

// GetMessage retrieves the full payload for a message and parses it into
// headers, a decoded body and attachment stubs.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	u := fmt.Sprintf("%s/users/%s/messages/%s?format=full",
		c.baseURL, url.PathEscape(c.source), url.PathEscape(messageID))

	var raw rawMessage
	if err := c.getJSON(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("get message %s: %w", messageID, err)
	}

	msg, err := parseMessage(&raw)
	if err != nil {
		return nil, fmt.Errorf("parse message %s: %w", messageID, err)
	}
	return msg, nil
}

// GetAttachment downloads one attachment's bytes.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	u := fmt.Sprintf("%s/users/%s/messages/%s/attachments/%s",
		c.baseURL, url.PathEscape(c.source), url.PathEscape(messageID), url.PathEscape(attachmentID))

	var resp attachmentResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("get attachment %s: %w", attachmentID, err)
	}

	data, err := decodeBase64URL(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %s: %w", attachmentID, err)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mailbox API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeBase64URL handles provider payloads encoded as unpadded base64url,
// tolerating padded input as well.
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
