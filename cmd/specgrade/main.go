// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the specgrade CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/specgrade/internal/observability"
	"github.com/pdiddy/specgrade/internal/secrets"
	"github.com/pdiddy/specgrade/internal/store"
	"github.com/pdiddy/specgrade/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

var rootCmd = &cobra.Command{
	Use:   "specgrade",
	Short: "Score generated OpenAPI documents against a golden corpus",
	Long: `specgrade evaluates an OpenAPI generation pipeline. For every golden
fixture it asks a generator for a document describing the fixture's API,
scores the result on endpoint coverage, field accuracy, hallucination rate,
and schema validity, and records the generated document and the scores.

Use run to evaluate the corpus, report and export to inspect stored results,
serve to expose them over HTTP, and watch to rerun on fixture changes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s

		obs := types.ObservabilityConfig{
			LogLevel:  viper.GetString("observability.log_level"),
			LogFormat: viper.GetString("observability.log_format"),
		}
		slog.SetDefault(observability.NewLogger(obs.LogLevel, obs.LogFormat, os.Stderr))

		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults()

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./specgrade.yaml or ~/.config/specgrade/config.yaml)")
	rootCmd.PersistentFlags().String("generator", "", "generator variant: stub, claude, openai, or remote")
	rootCmd.PersistentFlags().String("golden-dir", "", "golden fixture directory (default data/golden_set)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")

	_ = viper.BindPFlag("generator.variant", rootCmd.PersistentFlags().Lookup("generator"))
	_ = viper.BindPFlag("corpus.golden_dir", rootCmd.PersistentFlags().Lookup("golden-dir"))
	_ = viper.BindPFlag("observability.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("observability.log_format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func setDefaults() {
	viper.SetDefault("corpus.golden_dir", "data/golden_set")
	viper.SetDefault("corpus.apis", []string{"jsonplaceholder", "openweather", "github"})

	viper.SetDefault("generator.variant", string(types.GeneratorStub))
	viper.SetDefault("generator.timeout", "2m")
	viper.SetDefault("generator.user_agent", "specgrade/"+version)

	viper.SetDefault("store.driver", string(types.StoreFiles))
	viper.SetDefault("store.generated_dir", store.DefaultGeneratedDir)
	viper.SetDefault("store.results_dir", store.DefaultResultsDir)

	viper.SetDefault("weights.endpoint_coverage", types.DefaultWeights.EndpointCoverage)
	viper.SetDefault("weights.field_accuracy", types.DefaultWeights.FieldAccuracy)
	viper.SetDefault("weights.hallucination", types.DefaultWeights.Hallucination)
	viper.SetDefault("weights.schema_validity", types.DefaultWeights.SchemaValidity)

	viper.SetDefault("targets.endpoint_coverage", types.DefaultTargets.EndpointCoverage)
	viper.SetDefault("targets.field_accuracy", types.DefaultTargets.FieldAccuracy)
	viper.SetDefault("targets.hallucination_rate", types.DefaultTargets.HallucinationRate)
	viper.SetDefault("targets.schema_validity", types.DefaultTargets.SchemaValidity)

	viper.SetDefault("observability.log_level", "info")
	viper.SetDefault("observability.log_format", "text")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("specgrade")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "specgrade"))
		}
	}

	viper.SetEnvPrefix("SPECGRADE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged configuration, fills credentials from
// .secrets/, and checks the weights.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("%w: decoding config: %v", types.ErrConfiguration, err)
	}
	secrets.Apply(&cfg, loadedSecrets)
	if err := cfg.Weights.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
