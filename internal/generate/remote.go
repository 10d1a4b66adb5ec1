// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/specgrade/internal/httputil"
	"github.com/pdiddy/specgrade/pkg/types"
)

// maxRemoteResponseBytes caps the size of a document returned by the
// generation service.
const maxRemoteResponseBytes = 16 << 20

// Remote asks an external generation service for a document. It POSTs
// {"api": "<id>"} to <PipelineURL>/generate and expects the OpenAPI
// document, as JSON or YAML, in the response body.
type Remote struct {
	endpoint   string
	token      string
	client     *http.Client
	userAgent  string
	maxRetries int
}

// NewRemote returns a generator for the service at cfg.PipelineURL.
func NewRemote(cfg types.GeneratorConfig) *Remote {
	return &Remote{
		endpoint:   strings.TrimRight(cfg.PipelineURL, "/") + "/generate",
		token:      cfg.PipelineToken,
		client:     httpClient(cfg.HTTPConfig),
		userAgent:  userAgent(cfg.HTTPConfig),
		maxRetries: cfg.MaxRetries,
	}
}

// Name returns "remote".
func (r *Remote) Name() string {
	return string(types.GeneratorRemote)
}

// Generate requests a document for api.
func (r *Remote) Generate(ctx context.Context, api string) (types.Document, error) {
	doc, err := r.generate(ctx, api)
	if err != nil {
		return nil, &Error{API: api, Variant: r.Name(), Err: err}
	}
	return doc, nil
}

func (r *Remote) generate(ctx context.Context, api string) (types.Document, error) {
	payload, err := json.Marshal(map[string]string{"api": api})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, application/yaml")
	req.Header.Set("User-Agent", r.userAgent)
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := httputil.DoWithRetry(ctx, r.client, req, r.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", r.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return nil, fmt.Errorf("%s returned status %d: %s", r.endpoint, resp.StatusCode, msg)
	}

	return ParseDocument(string(body))
}
