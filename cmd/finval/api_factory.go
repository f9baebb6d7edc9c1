package main

import (
	"context"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/finval/internal/api"
	"github.com/ShayCichocki/finval/internal/config"
)

// createCompleter builds the configured completion client and wraps it with
// logging, rate limiting and retries.
func createCompleter(ctx context.Context, cfg *config.Config, logger *log.Logger) (api.Completer, error) {
	var base api.Completer

	switch cfg.LLM.Provider {
	case "gemini":
		key, err := config.GetGeminiAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		client, err := api.NewGeminiClient(ctx, key, cfg.LLM.Model, int32(cfg.LLM.MaxTokens))
		if err != nil {
			return nil, fmt.Errorf("create Gemini client: %w", err)
		}
		base = client
	default:
		var key string
		if !cfg.Anthropic.Bedrock.Enabled {
			k, err := config.GetAPIKey(cfg)
			if err != nil {
				return nil, err
			}
			key = k
		}
		client, err := api.NewClient(api.ClientConfig{
			Model:         anthropic.Model(cfg.LLM.Model),
			APIKey:        key,
			MaxTokens:     int64(cfg.LLM.MaxTokens),
			BaseURL:       cfg.Anthropic.BaseURL,
			UseAWSBedrock: cfg.Anthropic.Bedrock.Enabled,
			AWSRegion:     cfg.Anthropic.Bedrock.Region,
			AWSProfile:    cfg.Anthropic.Bedrock.Profile,
		})
		if err != nil {
			return nil, fmt.Errorf("create API client: %w", err)
		}
		base = client
	}

	return api.Wrap(base,
		api.WithLogging(logger),
		api.Retry(cfg.LLM.Retry.MaxAttempts, cfg.LLM.Retry.BaseDelay),
		api.RateLimit(cfg.LLM.RateLimit.RPS, cfg.LLM.RateLimit.Burst),
	), nil
}
