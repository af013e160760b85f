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

package ragflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPartitionNames(t *testing.T) {
	if got := PartitionForSource("Sales@IVC.example"); got != "inbox_sales_ivc_example" {
		t.Errorf("source partition = %q", got)
	}
	if got := PartitionForDepartment("Quality Control"); got != "docs_quality_control" {
		t.Errorf("department partition = %q", got)
	}
}

func TestResolvePartition_ExistingFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected %s call for existing partition", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("missing bearer token")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0,
			"data": []map[string]string{
				{"id": "kb-1", "name": "inbox_sales_ivc_example"},
			},
		})
	}))
	defer server.Close()

	c := New(server.Client(), server.URL, "key-1")
	id, err := c.ResolvePartition(context.Background(), "inbox_sales_ivc_example")
	if err != nil {
		t.Fatalf("ResolvePartition failed: %v", err)
	}
	if id != "kb-1" {
		t.Errorf("partition ID = %q", id)
	}
}

func TestResolvePartition_CreatesWhenAbsent(t *testing.T) {
	created := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 0, "data": []map[string]string{}})
		case http.MethodPost:
			created = true
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["name"] != "docs_production" {
				t.Errorf("create body = %+v", body)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 0,
				"data": map[string]string{"id": "kb-2", "name": "docs_production"},
			})
		}
	}))
	defer server.Close()

	c := New(server.Client(), server.URL, "key-1")
	id, err := c.ResolvePartition(context.Background(), "docs_production")
	if err != nil {
		t.Fatalf("ResolvePartition failed: %v", err)
	}
	if !created {
		t.Error("expected create call")
	}
	if id != "kb-2" {
		t.Errorf("partition ID = %q", id)
	}
}

func TestPublishDocument_ReplacesExisting(t *testing.T) {
	var deleted []string
	uploaded := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 0,
				"data": map[string]interface{}{
					"docs": []map[string]string{
						{"id": "doc-old", "name": "email_msg-1.txt"},
					},
				},
			})
		case http.MethodDelete:
			var body map[string][]string
			json.NewDecoder(r.Body).Decode(&body)
			deleted = body["ids"]
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 0})
		case http.MethodPost:
			uploaded = true
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			f, hdr, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("form file: %v", err)
			}
			defer f.Close()
			if hdr.Filename != "email_msg-1.txt" {
				t.Errorf("uploaded name = %q", hdr.Filename)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 0})
		}
	}))
	defer server.Close()

	c := New(server.Client(), server.URL, "key-1")
	err := c.PublishDocument(context.Background(), "kb-1", "email_msg-1.txt", "enriched text")
	if err != nil {
		t.Fatalf("PublishDocument failed: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "doc-old" {
		t.Errorf("deleted = %v", deleted)
	}
	if !uploaded {
		t.Error("expected upload call")
	}
}

func TestCall_APIErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":    102,
			"message": "dataset not found",
		})
	}))
	defer server.Close()

	c := New(server.Client(), server.URL, "key-1")
	_, err := c.ResolvePartition(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for non-zero API code")
	}
}
