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

// Package creds provides access tokens for the mailbox and file-storage
// APIs via the OAuth2 client-credentials grant. Token refresh is handled
// transparently by the underlying TokenSource; callers treat any error as
// "source unavailable for this run" and move on.
package creds

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/ivcrag/ingestion/internal/config"
)

// Provider issues authenticated HTTP clients and raw access tokens,
// one cached client per source identity.
type Provider struct {
	cfg config.OAuthConfig

	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewProvider creates a credential provider from the configured
// client-credentials grant.
func NewProvider(cfg config.OAuthConfig) *Provider {
	return &Provider{
		cfg:     cfg,
		clients: make(map[string]*http.Client),
	}
}

// grantFor builds the per-source grant. The source address travels as an
// additional endpoint parameter so the authorization server can scope the
// token to one mailbox.
func (p *Provider) grantFor(source string) *clientcredentials.Config {
	grant := &clientcredentials.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		TokenURL:     p.cfg.TokenURL,
		Scopes:       p.cfg.Scopes,
	}
	if source != "" {
		grant.EndpointParams = map[string][]string{"subject": {source}}
	}
	return grant
}

// Client returns an HTTP client that attaches a valid access token to every
// request, refreshing behind the scenes when the token expires.
func (p *Provider) Client(ctx context.Context, source string) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[source]; ok {
		return c
	}
	c := p.grantFor(source).Client(ctx)
	p.clients[source] = c
	return c
}

// GetValidAccessToken obtains a currently-valid access token for the given
// source identity. Any failure here means the source is unavailable for the
// current run.
func (p *Provider) GetValidAccessToken(ctx context.Context, source string) (string, error) {
	tok, err := p.grantFor(source).Token(ctx)
	if err != nil {
		return "", fmt.Errorf("obtain token for %s: %w", source, err)
	}
	return tok.AccessToken, nil
}
