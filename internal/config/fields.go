package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Keys lists the scalar keys understood by Get and Set, in display order.
func Keys() []string {
	return []string{
		"llm.provider",
		"llm.model",
		"llm.temperature",
		"llm.max_tokens",
		"llm.timeout",
		"llm.retry.max_attempts",
		"llm.retry.base_delay",
		"llm.rate_limit.rps",
		"llm.rate_limit.burst",
		"anthropic.api_key",
		"anthropic.base_url",
		"anthropic.bedrock.enabled",
		"anthropic.bedrock.region",
		"anthropic.bedrock.profile",
		"gemini.api_key",
		"validation.concurrency",
		"validation.meta_system_prompt",
		"report.output_dir",
		"report.format",
		"storage.driver",
		"storage.path",
		"storage.dsn",
		"storage.cache_size",
		"artifact.enabled",
		"artifact.endpoint",
		"artifact.bucket",
		"artifact.prefix",
		"artifact.access_key",
		"artifact.secret_key",
		"artifact.use_ssl",
		"server.addr",
		"server.jwt_secret",
		"server.max_upload_mb",
		"logging.debug_log",
	}
}

// IsSecret reports whether the key holds a credential that should be masked.
func IsSecret(key string) bool {
	switch key {
	case "anthropic.api_key", "gemini.api_key", "server.jwt_secret", "artifact.secret_key", "storage.dsn":
		return true
	default:
		return false
	}
}

// Get returns the value of key. The second result is false for unknown keys.
// validation.agents is returned as a comma-separated list.
func (c *Config) Get(key string) (any, bool) {
	switch key {
	case "llm.provider":
		return c.LLM.Provider, true
	case "llm.model":
		return c.LLM.Model, true
	case "llm.temperature":
		return c.LLM.Temperature, true
	case "llm.max_tokens":
		return c.LLM.MaxTokens, true
	case "llm.timeout":
		return c.LLM.Timeout.String(), true
	case "llm.retry.max_attempts":
		return c.LLM.Retry.MaxAttempts, true
	case "llm.retry.base_delay":
		return c.LLM.Retry.BaseDelay.String(), true
	case "llm.rate_limit.rps":
		return c.LLM.RateLimit.RPS, true
	case "llm.rate_limit.burst":
		return c.LLM.RateLimit.Burst, true
	case "anthropic.api_key":
		return c.Anthropic.APIKey, true
	case "anthropic.base_url":
		return c.Anthropic.BaseURL, true
	case "anthropic.bedrock.enabled":
		return c.Anthropic.Bedrock.Enabled, true
	case "anthropic.bedrock.region":
		return c.Anthropic.Bedrock.Region, true
	case "anthropic.bedrock.profile":
		return c.Anthropic.Bedrock.Profile, true
	case "gemini.api_key":
		return c.Gemini.APIKey, true
	case "validation.agents":
		return strings.Join(c.Validation.Agents, ","), true
	case "validation.concurrency":
		return c.Validation.Concurrency, true
	case "validation.meta_system_prompt":
		return c.Validation.MetaSystemPrompt, true
	case "report.output_dir":
		return c.Report.OutputDir, true
	case "report.format":
		return c.Report.Format, true
	case "storage.driver":
		return c.Storage.Driver, true
	case "storage.path":
		return c.Storage.Path, true
	case "storage.dsn":
		return c.Storage.DSN, true
	case "storage.cache_size":
		return c.Storage.CacheSize, true
	case "artifact.enabled":
		return c.Artifact.Enabled, true
	case "artifact.endpoint":
		return c.Artifact.Endpoint, true
	case "artifact.bucket":
		return c.Artifact.Bucket, true
	case "artifact.prefix":
		return c.Artifact.Prefix, true
	case "artifact.access_key":
		return c.Artifact.AccessKey, true
	case "artifact.secret_key":
		return c.Artifact.SecretKey, true
	case "artifact.use_ssl":
		return c.Artifact.UseSSL, true
	case "server.addr":
		return c.Server.Addr, true
	case "server.jwt_secret":
		return c.Server.JWTSecret, true
	case "server.max_upload_mb":
		return c.Server.MaxUploadMB, true
	case "logging.debug_log":
		return c.Logging.DebugLog, true
	default:
		return nil, false
	}
}

// Set parses value and assigns it to key.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "llm.provider":
		c.LLM.Provider = value
	case "llm.model":
		c.LLM.Model = value
	case "llm.temperature":
		c.LLM.Temperature, err = strconv.ParseFloat(value, 64)
	case "llm.max_tokens":
		c.LLM.MaxTokens, err = strconv.Atoi(value)
	case "llm.timeout":
		c.LLM.Timeout, err = time.ParseDuration(value)
	case "llm.retry.max_attempts":
		c.LLM.Retry.MaxAttempts, err = strconv.Atoi(value)
	case "llm.retry.base_delay":
		c.LLM.Retry.BaseDelay, err = time.ParseDuration(value)
	case "llm.rate_limit.rps":
		c.LLM.RateLimit.RPS, err = strconv.ParseFloat(value, 64)
	case "llm.rate_limit.burst":
		c.LLM.RateLimit.Burst, err = strconv.Atoi(value)
	case "anthropic.api_key":
		c.Anthropic.APIKey = value
	case "anthropic.base_url":
		c.Anthropic.BaseURL = value
	case "anthropic.bedrock.enabled":
		c.Anthropic.Bedrock.Enabled, err = strconv.ParseBool(value)
	case "anthropic.bedrock.region":
		c.Anthropic.Bedrock.Region = value
	case "anthropic.bedrock.profile":
		c.Anthropic.Bedrock.Profile = value
	case "gemini.api_key":
		c.Gemini.APIKey = value
	case "validation.agents":
		c.Validation.Agents = splitList(value)
	case "validation.concurrency":
		c.Validation.Concurrency, err = strconv.Atoi(value)
	case "validation.meta_system_prompt":
		c.Validation.MetaSystemPrompt, err = strconv.ParseBool(value)
	case "report.output_dir":
		c.Report.OutputDir = value
	case "report.format":
		c.Report.Format = value
	case "storage.driver":
		c.Storage.Driver = value
	case "storage.path":
		c.Storage.Path = value
	case "storage.dsn":
		c.Storage.DSN = value
	case "storage.cache_size":
		c.Storage.CacheSize, err = strconv.Atoi(value)
	case "artifact.enabled":
		c.Artifact.Enabled, err = strconv.ParseBool(value)
	case "artifact.endpoint":
		c.Artifact.Endpoint = value
	case "artifact.bucket":
		c.Artifact.Bucket = value
	case "artifact.prefix":
		c.Artifact.Prefix = value
	case "artifact.access_key":
		c.Artifact.AccessKey = value
	case "artifact.secret_key":
		c.Artifact.SecretKey = value
	case "artifact.use_ssl":
		c.Artifact.UseSSL, err = strconv.ParseBool(value)
	case "server.addr":
		c.Server.Addr = value
	case "server.jwt_secret":
		c.Server.JWTSecret = value
	case "server.max_upload_mb":
		c.Server.MaxUploadMB, err = strconv.ParseInt(value, 10, 64)
	case "logging.debug_log":
		c.Logging.DebugLog = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
