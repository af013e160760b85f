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

// Package llm is the enrichment client for the text-completion service.
// It builds item-class-specific prompts, calls an OpenAI-compatible
// endpoint with deterministic-leaning sampling, and parses responses into
// complete enrichment records via a two-tier JSON-then-line-oriented
// parser. It also runs the OCR correction pass used by the text normalizer.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ivcrag/ingestion/internal/config"
)

// ocrCorrectionTemperature is lower than the enrichment temperature:
// correction must stay close to the input.
const ocrCorrectionTemperature = 0.1

// Enricher is the surface the pipeline depends on; tests substitute a
// double.
type Enricher interface {
	EnrichEmail(ctx context.Context, in EmailInput) (ParsedEnrichment, error)
	EnrichAttachment(ctx context.Context, text, inboxAddr string) (ParsedEnrichment, error)
	EnrichDocument(ctx context.Context, text, department string) (ParsedEnrichment, error)
	CorrectOCR(ctx context.Context, text string) string
}

// EmailInput carries the header fields interpolated into the email prompt.
type EmailInput struct {
	From    string
	To      []string
	Cc      []string
	Subject string
	Date    string
	Body    string
}

// Client calls an OpenAI-compatible completion API via langchaingo.
type Client struct {
	model       llms.Model
	temperature float64
	topP        float64
	timeout     time.Duration
	logger      *slog.Logger
}

// NewClient creates an enrichment client for the configured completion
// service. The token is "none" for local services that skip auth.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	model, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken("none"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	return &Client{
		model:       model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		timeout:     cfg.Timeout,
		logger:      slog.Default().With("component", "llm"),
	}, nil
}

// complete issues one bounded completion call and returns the raw text.
func (c *Client) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(temperature),
		llms.WithTopP(c.topP),
	)
	if err != nil {
		return "", fmt.Errorf("completion call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// EnrichEmail summarizes and classifies an email. A transport error is
// returned to the caller so the work queue's retry policy handles it;
// malformed response text is absorbed by the parser, never an error.
func (c *Client) EnrichEmail(ctx context.Context, in EmailInput) (ParsedEnrichment, error) {
	prompt := fmt.Sprintf(emailPromptTemplate,
		in.From,
		orNotSpecified(strings.Join(in.To, ", ")),
		orNotSpecified(strings.Join(in.Cc, ", ")),
		orNotSpecified(in.Date),
		in.Subject,
		in.Body,
	)

	raw, err := c.complete(ctx, prompt, c.temperature)
	if err != nil {
		return ParsedEnrichment{}, err
	}

	parsed := ParseResponse(raw)
	c.logger.Debug("email enriched", "parse_mode", parsed.Mode, "category", parsed.Category)
	return parsed, nil
}

// EnrichAttachment summarizes and classifies an email attachment's
// extracted text.
func (c *Client) EnrichAttachment(ctx context.Context, text, inboxAddr string) (ParsedEnrichment, error) {
	raw, err := c.complete(ctx, fmt.Sprintf(attachmentPromptTemplate, inboxAddr, text), c.temperature)
	if err != nil {
		return ParsedEnrichment{}, err
	}
	return ParseResponse(raw), nil
}

// EnrichDocument summarizes and classifies a file-storage document.
func (c *Client) EnrichDocument(ctx context.Context, text, department string) (ParsedEnrichment, error) {
	raw, err := c.complete(ctx, fmt.Sprintf(documentPromptTemplate, department, text), c.temperature)
	if err != nil {
		return ParsedEnrichment{}, err
	}
	return ParseResponse(raw), nil
}

// CorrectOCR runs the OCR correction pass over recognized text. The model
// is instructed not to introduce content; that constraint lives in the
// prompt and cannot be verified here. On any failure the original text is
// passed through unmodified — OCR output is still better than nothing.
func (c *Client) CorrectOCR(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	corrected, err := c.complete(ctx, fmt.Sprintf(ocrCorrectionPrompt, text), ocrCorrectionTemperature)
	if err != nil {
		c.logger.Warn("ocr correction failed, passing text through", "error", err)
		return text
	}
	return strings.TrimSpace(corrected)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
