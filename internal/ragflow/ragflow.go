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

// Package ragflow publishes enriched text into the knowledge store.
// Partitions (datasets) are resolved create-if-absent; documents are named
// from the item identity so a re-publish replaces the previous copy instead
// of accumulating duplicates. Chunking and indexing belong to the store.
package ragflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to the knowledge store HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates a knowledge store client.
func New(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// PartitionForSource derives the partition name for a mailbox source.
// The address munges to a stable identifier: "sales@ivc.example" becomes
// "inbox_sales_ivc_example".
func PartitionForSource(address string) string {
	return "inbox_" + munge(address)
}

// PartitionForDepartment derives the partition name for a department
// document folder.
func PartitionForDepartment(department string) string {
	return "docs_" + munge(department)
}

func munge(s string) string {
	out := strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer("@", "_", ".", "_", " ", "_", "-", "_", "/", "_")
	return replacer.Replace(out)
}

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type dataset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResolvePartition returns the ID for a named partition, creating it when
// absent. Safe to call repeatedly; concurrent creators converge on the
// same partition by name.
func (c *Client) ResolvePartition(ctx context.Context, name string) (string, error) {
	existing, err := c.findDataset(ctx, name)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}

	body, _ := json.Marshal(map[string]string{"name": name})
	var created dataset
	if err := c.call(ctx, http.MethodPost, "/api/v1/datasets", "application/json", bytes.NewReader(body), &created); err != nil {
		// Lost a create race: the partition now exists, look it up again.
		if id, findErr := c.findDataset(ctx, name); findErr == nil && id != "" {
			return id, nil
		}
		return "", fmt.Errorf("create partition %s: %w", name, err)
	}

	slog.Info("created knowledge partition", "name", name, "partition_id", created.ID)
	return created.ID, nil
}

// PublishDocument uploads text into a partition under the given document
// name. An existing document with the same name is removed first, making
// repeated publishes of the same item idempotent.
func (c *Client) PublishDocument(ctx context.Context, partitionID, docName, text string) error {
	if err := c.removeExisting(ctx, partitionID, docName); err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", docName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.WriteString(part, text); err != nil {
		return fmt.Errorf("write document text: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	path := fmt.Sprintf("/api/v1/datasets/%s/documents", url.PathEscape(partitionID))
	if err := c.call(ctx, http.MethodPost, path, mw.FormDataContentType(), &body, nil); err != nil {
		return fmt.Errorf("publish %s: %w", docName, err)
	}

	slog.Info("published document", "name", docName, "partition_id", partitionID)
	return nil
}

func (c *Client) findDataset(ctx context.Context, name string) (string, error) {
	path := "/api/v1/datasets?name=" + url.QueryEscape(name)
	var datasets []dataset
	if err := c.call(ctx, http.MethodGet, path, "", nil, &datasets); err != nil {
		return "", fmt.Errorf("list partitions: %w", err)
	}
	for _, d := range datasets {
		if d.Name == name {
			return d.ID, nil
		}
	}
	return "", nil
}

func (c *Client) removeExisting(ctx context.Context, partitionID, docName string) error {
	path := fmt.Sprintf("/api/v1/datasets/%s/documents?name=%s",
		url.PathEscape(partitionID), url.QueryEscape(docName))

	var listing struct {
		Docs []document `json:"docs"`
	}
	if err := c.call(ctx, http.MethodGet, path, "", nil, &listing); err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	var ids []string
	for _, d := range listing.Docs {
		if d.Name == docName {
			ids = append(ids, d.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	body, _ := json.Marshal(map[string][]string{"ids": ids})
	delPath := fmt.Sprintf("/api/v1/datasets/%s/documents", url.PathEscape(partitionID))
	if err := c.call(ctx, http.MethodDelete, delPath, "application/json", bytes.NewReader(body), nil); err != nil {
		return fmt.Errorf("remove previous copy of %s: %w", docName, err)
	}
	return nil
}

// call performs one API request and decodes the enveloped response data
// into out when non-nil.
func (c *Client) call(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("knowledge store returned HTTP %d", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Code != 0 {
		return fmt.Errorf("knowledge store error %d: %s", envelope.Code, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
