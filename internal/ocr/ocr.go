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

// Package ocr provides optical character recognition for image and
// rasterized-PDF content. The production engine shells out to a local
// Tesseract binary; callers depend only on the Engine interface so tests
// can substitute a double.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivcrag/ingestion/internal/config"
)

// Engine extracts text from a single image (or rasterized PDF page).
type Engine interface {
	ExtractText(ctx context.Context, imageBytes []byte) (string, error)
}

// Tesseract is an Engine backed by the local tesseract binary.
type Tesseract struct {
	binPath  string
	language string
}

// NewTesseract creates a Tesseract engine from the OCR configuration.
func NewTesseract(cfg config.OCRConfig) *Tesseract {
	return &Tesseract{
		binPath:  cfg.TesseractPath,
		language: cfg.Language,
	}
}

// ExtractText runs tesseract over the image bytes on stdin and returns the
// recognized text.
func (t *Tesseract) ExtractText(ctx context.Context, imageBytes []byte) (string, error) {
	cmd := exec.CommandContext(ctx, t.binPath, "stdin", "stdout", "-l", t.language)
	cmd.Stdin = bytes.NewReader(imageBytes)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(out.String()), nil
}

// Rasterizer converts a PDF into per-page images for the OCR fallback path.
type Rasterizer struct {
	binPath string
	dpi     int
}

// NewRasterizer creates a pdftoppm-backed rasterizer.
func NewRasterizer(cfg config.OCRConfig) *Rasterizer {
	return &Rasterizer{
		binPath: cfg.PdftoppmPath,
		dpi:     cfg.DPI,
	}
}

// RasterizePDF renders each page of the PDF as a PNG and returns the pages
// in order.
func (r *Rasterizer) RasterizePDF(ctx context.Context, pdfBytes []byte) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "rasterize-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, r.binPath, "-png", "-r", fmt.Sprint(r.dpi), "-", prefix)
	cmd.Stdin = bytes.NewReader(pdfBytes)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, fmt.Errorf("list rasterized pages: %w", err)
	}
	// pdftoppm zero-pads page numbers, so lexical order is page order
	sort.Strings(matches)

	pages := make([][]byte, 0, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read rasterized page %s: %w", m, err)
		}
		pages = append(pages, data)
	}
	return pages, nil
}
