package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ShayCichocki/finval/internal/artifact"
	"github.com/ShayCichocki/finval/internal/config"
	"github.com/ShayCichocki/finval/internal/orchestrator"
	"github.com/ShayCichocki/finval/internal/report"
	"github.com/ShayCichocki/finval/internal/state"
	"github.com/ShayCichocki/finval/internal/validation"
)

// debugEnabled reports whether FINVAL_DEBUG is set.
func debugEnabled() bool {
	return os.Getenv("FINVAL_DEBUG") != ""
}

// openDebugLogger opens the file named by logging.debug_log. With no path
// configured, FINVAL_DEBUG selects the default location under the data dir.
func openDebugLogger(cfg *config.Config) *orchestrator.DebugLogger {
	if cfg.Logging.DebugLog != "" {
		logger, err := orchestrator.NewDebugLogger(cfg.Logging.DebugLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: debug log disabled: %v\n", err)
			return orchestrator.NopLogger()
		}
		return logger
	}
	if debugEnabled() {
		return orchestrator.NewDebugLoggerInDir(config.DataDir())
	}
	return orchestrator.NopLogger()
}

// runnerOptions maps configuration onto orchestrator options.
func runnerOptions(cfg *config.Config, logger *orchestrator.DebugLogger) []orchestrator.Option {
	return []orchestrator.Option{
		orchestrator.WithConcurrency(cfg.Validation.Concurrency),
		orchestrator.WithLogger(logger),
		orchestrator.WithAgentOptions(
			validation.WithTemperature(cfg.LLM.Temperature),
			validation.WithMetaSystemPrompt(cfg.Validation.MetaSystemPrompt),
		),
	}
}

// openStore opens the run history backend. It returns nil when storage is
// disabled.
func openStore(ctx context.Context, cfg *config.Config) (state.RunStore, error) {
	switch cfg.Storage.Driver {
	case "none":
		return nil, nil
	case "postgres":
		store, err := state.OpenPostgresStore(ctx, cfg.Storage.DSN, cfg.Storage.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		store, err := state.OpenStore(cfg.StoragePath(), cfg.Storage.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		return store, nil
	}
}

// openArtifacts returns the report upload target, or nil when uploads are
// disabled.
func openArtifacts(cfg *config.Config) (artifact.Store, error) {
	if !cfg.Artifact.Enabled {
		return nil, nil
	}
	store, err := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		Prefix:    cfg.Artifact.Prefix,
		UseSSL:    cfg.Artifact.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	return store, nil
}

// reportFormat resolves the export format, letting flag override config.
func reportFormat(cfg *config.Config, flag string) (report.Format, error) {
	if flag != "" {
		return report.ParseFormat(flag)
	}
	return report.ParseFormat(cfg.Report.Format)
}
