package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/finval/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("FINVAL_DEBUG", "")
	cfg := config.Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "finval.db")
	return cfg
}

func TestCreateCompleter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Anthropic.BaseURL = "http://127.0.0.1:1"

	client, err := createCompleter(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("createCompleter: %v", err)
	}
	if client == nil {
		t.Fatal("nil completer")
	}
}

func TestCreateCompleter_MissingKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.Anthropic.APIKey = ""
	if _, err := createCompleter(context.Background(), cfg, nil); err == nil {
		t.Error("expected error without an Anthropic key")
	}

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	cfg.LLM.Provider = "gemini"
	if _, err := createCompleter(context.Background(), cfg, nil); err == nil {
		t.Error("expected error without a Gemini key")
	}
}

func TestOpenStore(t *testing.T) {
	cfg := testConfig(t)

	cfg.Storage.Driver = "none"
	store, err := openStore(context.Background(), cfg)
	if err != nil || store != nil {
		t.Errorf("driver none = %v, %v; want nil, nil", store, err)
	}

	cfg.Storage.Driver = "sqlite"
	store, err = openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore sqlite: %v", err)
	}
	store.Close()
}

func TestOpenArtifacts(t *testing.T) {
	cfg := testConfig(t)
	if s, err := openArtifacts(cfg); err != nil || s != nil {
		t.Errorf("disabled = %v, %v; want nil, nil", s, err)
	}

	cfg.Artifact.Enabled = true
	cfg.Artifact.Endpoint = "localhost:9000"
	if _, err := openArtifacts(cfg); err == nil {
		t.Error("expected error without credentials")
	}

	cfg.Artifact.AccessKey = "minio"
	cfg.Artifact.SecretKey = "minio123"
	if s, err := openArtifacts(cfg); err != nil || s == nil {
		t.Errorf("enabled = %v, %v", s, err)
	}
}

func TestBuildServer_Health(t *testing.T) {
	cfg := testConfig(t)

	handler, cleanup, err := buildServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}
	defer cleanup()

	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Status  string `json:"status"`
		Storage bool   `json:"storage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || !body.Storage {
		t.Errorf("health = %+v", body)
	}
}

func TestBuildServer_InvalidAgents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Validation.Agents = []string{"equity"}
	if _, _, err := buildServer(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown agent")
	}
}
