// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"text/template"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/specgrade/internal/httputil"
	"github.com/pdiddy/specgrade/pkg/types"
)

// Completer sends one prompt to a language model and returns the text of
// its reply. Tests supply a mock.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const systemPrompt = `You are an API documentation engineer. You write OpenAPI 3.0 documents that describe real, existing HTTP APIs. You never invent endpoints or fields that the API does not have. You answer with a single JSON document and nothing else.`

// generationPromptTmpl is rendered once per API.
var generationPromptTmpl = template.Must(template.New("generation").Parse(`Write an OpenAPI 3.0.0 document for the API "{{.API}}".

Requirements:
- Top-level keys: openapi ("3.0.0"), info (title, version), servers, paths.
- One entry in paths per endpoint, keyed by the exact path template (e.g. "/posts/{id}").
- Declare every path template parameter as an "in: path", "required: true" parameter.
- For each operation, describe the 200 or 201 response body under content."application/json".schema,
  listing every response field under properties (or items.properties for arrays).
- Only include endpoints and fields you are certain exist.

Respond with the JSON document only. Do not wrap it in Markdown.
{{if .Documentation}}
API documentation ({{.SourceURL}}):
{{.Documentation}}
{{end}}`))

// maxDocumentationBytes caps the documentation excerpt included in a prompt.
const maxDocumentationBytes = 64 * 1024

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// LLM generates documents by prompting a language model through a Completer.
type LLM struct {
	name       string
	completer  Completer
	sources    map[string]string
	client     *http.Client
	userAgent  string
	maxRetries int
}

// NewLLM returns a generator named name that prompts completer. Sources
// from cfg are fetched and included in the prompt.
func NewLLM(name string, completer Completer, cfg types.GeneratorConfig) *LLM {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultRetries
	}
	return &LLM{
		name:       name,
		completer:  completer,
		sources:    cfg.Sources,
		client:     httpClient(cfg.HTTPConfig),
		userAgent:  userAgent(cfg.HTTPConfig),
		maxRetries: maxRetries,
	}
}

// Name returns the variant name.
func (g *LLM) Name() string {
	return g.name
}

// Generate prompts the model for api and parses its reply.
func (g *LLM) Generate(ctx context.Context, api string) (types.Document, error) {
	data := promptData{API: api}
	if url := g.sources[api]; url != "" {
		text, err := g.fetchDocumentation(ctx, url)
		if err != nil {
			return nil, &Error{API: api, Variant: g.name, Err: err}
		}
		data.SourceURL = url
		data.Documentation = text
	}

	prompt, err := renderPrompt(data)
	if err != nil {
		return nil, &Error{API: api, Variant: g.name, Err: fmt.Errorf("rendering prompt: %w", err)}
	}

	reply, err := callWithRetry(ctx, g.completer, prompt, g.maxRetries)
	if err != nil {
		return nil, &Error{API: api, Variant: g.name, Err: err}
	}

	doc, err := ParseDocument(reply)
	if err != nil {
		return nil, &Error{API: api, Variant: g.name, Err: err}
	}
	return doc, nil
}

type promptData struct {
	API           string
	SourceURL     string
	Documentation string
}

func renderPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := generationPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fetchDocumentation downloads the documentation page for an API.
func (g *LLM) fetchDocumentation(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating documentation request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := httputil.DoWithRetry(ctx, g.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("fetching documentation %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching documentation %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentationBytes))
	if err != nil {
		return "", fmt.Errorf("reading documentation %s: %w", url, err)
	}
	return string(body), nil
}

// callWithRetry calls the completer with exponential backoff.
func callWithRetry(ctx context.Context, c Completer, prompt string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		reply, err := c.Complete(ctx, systemPrompt, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// ParseDocument decodes a model reply or service response into a
// Document. JSON and YAML are accepted, optionally inside a Markdown code
// fence. Text that looks like a JSON object is decoded as JSON first, so
// duplicate keys keep the last value; anything else, including YAML flow
// mappings, goes through the YAML decoder.
func ParseDocument(text string) (types.Document, error) {
	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return nil, fmt.Errorf("empty document")
	}
	var doc types.Document
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), &doc); err == nil && doc != nil {
			return types.NormalizeDocument(doc), nil
		}
		doc = nil
	}
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parsing generated document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("generated document is not a mapping")
	}
	return types.NormalizeDocument(doc), nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// Drop the opening fence line, including any language tag.
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	} else {
		return ""
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}
