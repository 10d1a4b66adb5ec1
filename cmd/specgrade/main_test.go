// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/specgrade/internal/runner"
	"github.com/pdiddy/specgrade/internal/secrets"
	"github.com/pdiddy/specgrade/pkg/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "data/golden_set", cfg.Corpus.GoldenDir)
	assert.Equal(t, []string{"jsonplaceholder", "openweather", "github"}, cfg.Corpus.APIs)
	assert.Equal(t, types.GeneratorStub, cfg.Generator.Variant)
	assert.Equal(t, types.StoreFiles, cfg.Store.Driver)
	assert.Equal(t, "data/eval_results", cfg.Store.ResultsDir)
	assert.Equal(t, types.DefaultWeights, cfg.Weights)
	assert.Equal(t, types.DefaultTargets, cfg.Targets)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestLoadConfigAppliesSecrets(t *testing.T) {
	viper.Set("generator.variant", "claude")
	loadedSecrets = map[string]string{secrets.AnthropicAPIKey: "sk-ant-test"}
	t.Cleanup(func() {
		viper.Set("generator.variant", string(types.GeneratorStub))
		loadedSecrets = nil
	})

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, types.GeneratorClaude, cfg.Generator.Variant)
	assert.Equal(t, "sk-ant-test", cfg.Generator.APIKey)
}

func TestLoadConfigRejectsBadWeights(t *testing.T) {
	viper.Set("weights.schema_validity", 0.5)
	t.Cleanup(func() { viper.Set("weights.schema_validity", types.DefaultWeights.SchemaValidity) })

	_, err := loadConfig()
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestCheckReport(t *testing.T) {
	clean := types.Summary{Tests: 2, ValidSchemas: 2}
	missed := types.Summary{Tests: 1, Misses: []string{"endpoint_coverage"}}

	tests := []struct {
		name    string
		report  runner.Report
		enforce bool
		wantErr string
	}{
		{"clean", runner.Report{Summary: clean}, true, ""},
		{"no fixtures", runner.Report{}, false, "no golden fixtures found"},
		{"failures", runner.Report{Summary: clean, Failures: []runner.Failure{{Kind: runner.FailureLoad, Err: errors.New("x")}}}, false, "1 fixture(s) failed"},
		{"miss not enforced", runner.Report{Summary: missed}, false, ""},
		{"miss enforced", runner.Report{Summary: missed}, true, "targets missed: endpoint_coverage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkReport(&tt.report, tt.enforce)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
