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

// Package drive provides a REST client for the file-storage provider:
// folder and file listing, file download and attachment archival upload.
// Provider-native document types have no downloadable bytes and are skipped
// at listing time.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/ivcrag/ingestion/internal/models"
	"golang.org/x/time/rate"
)

// nativeTypePrefix marks provider-native documents (editable online, not
// stored as regular bytes). They cannot be downloaded with alt=media.
const nativeTypePrefix = "application/vnd.google-apps"

const folderMimeType = "application/vnd.google-apps.folder"

// Client retrieves and stores files in the file-storage provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	pageDelay  time.Duration
	limiter    *rate.Limiter
}

// NewClient creates a file-storage client. The httpClient must carry the
// storage credentials.
func NewClient(httpClient *http.Client, baseURL string, pageSize int, pageDelay time.Duration, ratePerSec float64) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   pageSize,
		pageDelay:  pageDelay,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Folder is a child folder of a listed parent.
type Folder struct {
	ID   string
	Name string
}

type fileResource struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size,string"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

type fileList struct {
	Files         []fileResource `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

// ListFolders returns the child folders of a parent folder. Department
// folders under the documents root are discovered this way.
func (c *Client) ListFolders(ctx context.Context, parentID string) ([]Folder, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType = '%s' and trashed = false", parentID, folderMimeType)

	var out []Folder
	err := c.listPages(ctx, query, func(f fileResource) {
		out = append(out, Folder{ID: f.ID, Name: f.Name})
	})
	if err != nil {
		return nil, fmt.Errorf("list folders under %s: %w", parentID, err)
	}
	return out, nil
}

// ListFiles returns downloadable files in a folder modified after since.
// Provider-native types are filtered out.
func (c *Client) ListFiles(ctx context.Context, folderID string, since time.Time) ([]models.CandidateFile, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	if !since.IsZero() {
		query += fmt.Sprintf(" and modifiedTime > '%s'", since.UTC().Format(time.RFC3339))
	}

	var out []models.CandidateFile
	err := c.listPages(ctx, query, func(f fileResource) {
		if strings.HasPrefix(f.MimeType, nativeTypePrefix) {
			return
		}
		out = append(out, models.CandidateFile{
			StorageID:    f.ID,
			Name:         f.Name,
			MimeType:     f.MimeType,
			Size:         f.Size,
			ModifiedTime: f.ModifiedTime,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", folderID, err)
	}

	slog.Info("listed storage candidates", "folder", folderID, "count", len(out))
	return out, nil
}

// DownloadFile retrieves a file's bytes.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	u := fmt.Sprintf("%s/files/%s?alt=media", c.baseURL, url.PathEscape(fileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storage API returned HTTP %d for file %s", resp.StatusCode, fileID)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

// UploadFile stores bytes as a new file in a folder and returns the storage
// ID. Used to archive email attachments.
func (c *Client) UploadFile(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return "", fmt.Errorf("create metadata part: %w", err)
	}
	meta := map[string]any{"name": name, "parents": []string{folderID}}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", mimeType)
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return "", fmt.Errorf("create media part: %w", err)
	}
	if _, err := mediaPart.Write(data); err != nil {
		return "", fmt.Errorf("write media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	u := c.baseURL + "/upload/files?uploadType=multipart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage API returned HTTP %d uploading %s", resp.StatusCode, name)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}

	slog.Info("archived file", "name", name, "folder", folderID, "storage_id", created.ID)
	return created.ID, nil
}

// listPages walks every page of a file query, invoking visit per resource.
func (c *Client) listPages(ctx context.Context, query string, visit func(fileResource)) error {
	pageToken := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		u := fmt.Sprintf("%s/files?q=%s&pageSize=%d&fields=%s",
			c.baseURL, url.QueryEscape(query), c.pageSize,
			url.QueryEscape("nextPageToken,files(id,name,mimeType,size,modifiedTime)"))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("storage API returned HTTP %d", resp.StatusCode)
		}

		var page fileList
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode file list: %w", err)
		}

		for _, f := range page.Files {
			visit(f)
		}

		if page.NextPageToken == "" {
			return nil
		}
		pageToken = page.NextPageToken

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}
}
