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

// Package extract converts raw file payloads into plain text, dispatching
// on the declared media type. PDFs try the text layer first and fall back
// to rasterize-then-OCR when the layer is effectively empty; unsupported
// types yield empty text without error so the pipeline continues.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"github.com/ivcrag/ingestion/internal/ocr"
)

// minTextLayerChars is the threshold below which a PDF's text layer is
// considered missing (a scanned document) and the OCR fallback fires.
const minTextLayerChars = 50

// PDFRasterizer renders PDF pages as images for the OCR fallback.
// Implemented by ocr.Rasterizer.
type PDFRasterizer interface {
	RasterizePDF(ctx context.Context, pdfBytes []byte) ([][]byte, error)
}

// Result is the outcome of one extraction. OCRUsed tells the caller whether
// the text came through the OCR path and therefore needs normalization.
type Result struct {
	Text    string
	OCRUsed bool
}

// Extractor converts file payloads to plain text.
type Extractor struct {
	engine     ocr.Engine
	rasterizer PDFRasterizer
}

// New creates an extractor. The OCR engine and rasterizer are only invoked
// for image-bearing content.
func New(engine ocr.Engine, rasterizer PDFRasterizer) *Extractor {
	return &Extractor{
		engine:     engine,
		rasterizer: rasterizer,
	}
}

// Extract dispatches on the declared media type and returns the extracted
// plain text. Unsupported media types are not an error: they produce an
// empty Result so sibling attachments and the parent item keep processing.
func (e *Extractor) Extract(ctx context.Context, data []byte, filename, mimeType string) (Result, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))

	switch {
	case strings.HasPrefix(mt, "text/"):
		return Result{Text: string(bytes.ToValidUTF8(data, nil))}, nil

	case mt == "application/pdf":
		return e.extractPDF(ctx, data, filename)

	case strings.HasPrefix(mt, "image/"):
		text, err := e.engine.ExtractText(ctx, data)
		if err != nil {
			return Result{}, fmt.Errorf("ocr image %s: %w", filename, err)
		}
		return Result{Text: text, OCRUsed: true}, nil

	case mt == "application/msword",
		mt == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		text, err := extractWord(data)
		if err != nil {
			return Result{}, fmt.Errorf("read word document %s: %w", filename, err)
		}
		return Result{Text: text}, nil

	case mt == "application/vnd.ms-excel",
		mt == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		text, err := extractSheet(data)
		if err != nil {
			return Result{}, fmt.Errorf("read spreadsheet %s: %w", filename, err)
		}
		return Result{Text: text}, nil

	default:
		slog.Info("extraction not supported for media type, skipping",
			"mime_type", mimeType,
			"filename", filename,
		)
		return Result{}, nil
	}
}

// extractPDF tries the text layer first; when the result is shorter than
// minTextLayerChars the document is treated as scanned and each page goes
// through rasterize-then-OCR.
func (e *Extractor) extractPDF(ctx context.Context, data []byte, filename string) (Result, error) {
	text, err := pdfTextLayer(data)
	if err != nil {
		slog.Warn("pdf text layer extraction failed, falling back to OCR",
			"filename", filename,
			"error", err,
		)
	} else if len(strings.TrimSpace(text)) >= minTextLayerChars {
		return Result{Text: text}, nil
	}

	pages, err := e.rasterizer.RasterizePDF(ctx, data)
	if err != nil {
		return Result{}, fmt.Errorf("rasterize pdf %s: %w", filename, err)
	}

	var b strings.Builder
	for i, page := range pages {
		pageText, err := e.engine.ExtractText(ctx, page)
		if err != nil {
			// One unreadable page doesn't void the rest of the document
			slog.Warn("ocr failed for pdf page",
				"filename", filename,
				"page", i+1,
				"error", err,
			)
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", i+1, pageText)
	}
	return Result{Text: b.String(), OCRUsed: true}, nil
}

// pdfTextLayer pulls text directly from the PDF's embedded text layer.
func pdfTextLayer(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep whatever the other pages yielded
			continue
		}
		if strings.TrimSpace(text) != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// extractWord reads paragraphs and tables from a word-processing document.
func extractWord(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			b.WriteString(v.String())
			b.WriteString("\n")
		case *docx.Table:
			b.WriteString(v.String())
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// extractSheet flattens every sheet of a workbook into tab-separated rows.
func extractSheet(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		b.WriteString(sheet)
		b.WriteString("\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
