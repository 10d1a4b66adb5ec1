// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: anthropic-api-key, openai-api-key, pipeline-token, database-dsn.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/specgrade/pkg/types"
)

// Key file names.
const (
	AnthropicAPIKey = "anthropic-api-key"
	OpenAIAPIKey    = "openai-api-key"
	PipelineToken   = "pipeline-token"
	DatabaseDSN     = "database-dsn"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply copies credentials into cfg where the configuration left them
// empty. Explicit configuration wins over secret files.
func Apply(cfg *types.Config, secrets map[string]string) {
	if cfg.Generator.APIKey == "" {
		switch cfg.Generator.Variant {
		case types.GeneratorClaude:
			cfg.Generator.APIKey = secrets[AnthropicAPIKey]
		case types.GeneratorOpenAI:
			cfg.Generator.APIKey = secrets[OpenAIAPIKey]
		}
	}
	if cfg.Generator.PipelineToken == "" {
		cfg.Generator.PipelineToken = secrets[PipelineToken]
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = secrets[DatabaseDSN]
	}
}
