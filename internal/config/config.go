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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig holds one configured mailbox. Sources are visited in the
// order they appear in config.yaml — the order encodes operational
// priority and is preserved by the email pass.
type SourceConfig struct {
	Address     string `yaml:"address"`
	Description string `yaml:"description"`
}

// OAuthConfig holds the client-credentials grant used to obtain access
// tokens for the mailbox and file-storage APIs.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
}

// LLMConfig holds the text-completion service settings. Sampling leans
// deterministic so repeated enrichment of the same item stays stable.
type LLMConfig struct {
	Host        string
	Model       string
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// OCRConfig holds the local OCR toolchain settings.
type OCRConfig struct {
	TesseractPath string `yaml:"tesseract_path"`
	PdftoppmPath  string `yaml:"pdftoppm_path"`
	Language      string `yaml:"language"`
	DPI           int    `yaml:"dpi"`
}

// QueueNames holds the durable queue name per item class.
type QueueNames struct {
	Emails     string
	Documents  string
	Digest     string
	Monitoring string
}

// Config holds all configuration for the ingestion service.
type Config struct {
	Sources []SourceConfig
	OAuth   OAuthConfig
	LLM     LLMConfig
	OCR     OCRConfig

	// External endpoints
	MailboxBaseURL   string
	StorageBaseURL   string
	KnowledgeBaseURL string
	KnowledgeAPIKey  string

	// File-storage folders
	AttachmentFolderID string
	DocumentsFolderID  string

	// Postgres / Redis
	DatabaseURL string
	RedisURL    string
	Queues      QueueNames

	// Fetch behaviour
	FetchWindow  time.Duration // recency window for listing calls
	PageDelay    time.Duration // delay between listing pages
	ListPageSize int
	RatePerSec   float64 // listing-call rate limit per source

	// Queue retry policy
	MaxJobAttempts int

	// Pass scheduling
	EmailPassInterval time.Duration
	MonitorInterval   time.Duration
	DigestInterval    time.Duration

	// Digest
	DigestLookback time.Duration

	// Server (health check only)
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Sources []SourceConfig `yaml:"sources"`
	OAuth   OAuthConfig    `yaml:"oauth"`
	LLM     struct {
		Host        string  `yaml:"host"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
		TopP        float64 `yaml:"top_p"`
		TimeoutSecs int     `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	OCR     OCRConfig `yaml:"ocr"`
	Mailbox struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"mailbox"`
	Storage struct {
		BaseURL            string `yaml:"base_url"`
		AttachmentFolderID string `yaml:"attachment_folder_id"`
		DocumentsFolderID  string `yaml:"documents_folder_id"`
	} `yaml:"storage"`
	Knowledge struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"knowledge"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Emails     string `yaml:"emails"`
			Documents  string `yaml:"documents"`
			Digest     string `yaml:"digest"`
			Monitoring string `yaml:"monitoring"`
		} `yaml:"queues"`
	} `yaml:"redis"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		OAuth: raw.OAuth,
		LLM: LLMConfig{
			Host:        firstNonEmpty(raw.LLM.Host, envOrDefault("LLM_HOST", "http://ollama:11434/v1")),
			Model:       firstNonEmpty(raw.LLM.Model, envOrDefault("LLM_MODEL", "mistral-7b-instruct-v0.3")),
			Temperature: raw.LLM.Temperature,
			TopP:        raw.LLM.TopP,
			Timeout:     time.Duration(raw.LLM.TimeoutSecs) * time.Second,
		},
		OCR:                raw.OCR,
		MailboxBaseURL:     firstNonEmpty(raw.Mailbox.BaseURL, os.Getenv("MAILBOX_BASE_URL")),
		StorageBaseURL:     firstNonEmpty(raw.Storage.BaseURL, os.Getenv("STORAGE_BASE_URL")),
		KnowledgeBaseURL:   firstNonEmpty(raw.Knowledge.BaseURL, envOrDefault("KNOWLEDGE_BASE_URL", "http://ragflow:3000")),
		KnowledgeAPIKey:    firstNonEmpty(raw.Knowledge.APIKey, os.Getenv("KNOWLEDGE_API_KEY")),
		AttachmentFolderID: firstNonEmpty(raw.Storage.AttachmentFolderID, os.Getenv("ATTACHMENT_FOLDER_ID")),
		DocumentsFolderID:  firstNonEmpty(raw.Storage.DocumentsFolderID, os.Getenv("DOCUMENTS_FOLDER_ID")),
		DatabaseURL:        envOrDefault("DATABASE_URL", "postgres://localhost:5432/ingestion"),
		RedisURL:           firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		Queues: QueueNames{
			Emails:     firstNonEmpty(raw.Redis.Queues.Emails, "emails"),
			Documents:  firstNonEmpty(raw.Redis.Queues.Documents, "documents"),
			Digest:     firstNonEmpty(raw.Redis.Queues.Digest, "digest"),
			Monitoring: firstNonEmpty(raw.Redis.Queues.Monitoring, "monitoring"),
		},
		FetchWindow:       envOrDefaultDuration("FETCH_WINDOW", 24*time.Hour),
		PageDelay:         envOrDefaultDuration("PAGE_DELAY", 500*time.Millisecond),
		ListPageSize:      envOrDefaultInt("LIST_PAGE_SIZE", 100),
		RatePerSec:        2.0,
		MaxJobAttempts:    envOrDefaultInt("MAX_JOB_ATTEMPTS", 3),
		EmailPassInterval: envOrDefaultDuration("EMAIL_PASS_INTERVAL", 5*time.Minute),
		MonitorInterval:   envOrDefaultDuration("MONITOR_INTERVAL", 2*time.Minute),
		DigestInterval:    envOrDefaultDuration("DIGEST_INTERVAL", 24*time.Hour),
		DigestLookback:    envOrDefaultDuration("DIGEST_LOOKBACK", 24*time.Hour),
		Port:              envOrDefaultInt("PORT", 8080),
	}

	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.2
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = 0.9
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}
	if cfg.OCR.TesseractPath == "" {
		cfg.OCR.TesseractPath = "tesseract"
	}
	if cfg.OCR.PdftoppmPath == "" {
		cfg.OCR.PdftoppmPath = "pdftoppm"
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.OCR.DPI == 0 {
		cfg.OCR.DPI = 200
	}

	// Build source list, preserving YAML order
	for _, s := range raw.Sources {
		if strings.TrimSpace(s.Address) == "" {
			continue
		}
		cfg.Sources = append(cfg.Sources, s)
	}

	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured — check config.yaml and environment variables")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
