package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFileDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "dev" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LLMProvider != ProviderGateway || cfg.ScanPolicy != "fracture-only" {
		t.Fatalf("unexpected provider/policy: %q %q", cfg.LLMProvider, cfg.ScanPolicy)
	}
	if cfg.MaxImageBytes != 10<<20 {
		t.Fatalf("MaxImageBytes = %d", cfg.MaxImageBytes)
	}
	if cfg.LLMTimeout() != 120*time.Second {
		t.Fatalf("LLMTimeout = %s", cfg.LLMTimeout())
	}
	if len(cfg.CORSAllowOrigin) != 1 || cfg.CORSAllowOrigin[0] != "http://localhost:5173" {
		t.Fatalf("CORS origins = %v", cfg.CORSAllowOrigin)
	}
}

func TestLoadFileReadsDotenvAndEnvWins(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	body := "PORT=9090\nSCAN_POLICY=General\nCORS_ALLOW_ORIGINS=https://a.example, https://b.example ,\nMAX_IMAGE_BYTES=2048\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("ENV", "prod")
	t.Setenv("LLM_API_KEY", "secret")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("environment should override file, got port %q", cfg.Port)
	}
	if cfg.ScanPolicy != "general" {
		t.Fatalf("ScanPolicy = %q", cfg.ScanPolicy)
	}
	if cfg.MaxImageBytes != 2048 {
		t.Fatalf("MaxImageBytes = %d", cfg.MaxImageBytes)
	}
	if !cfg.IsProduction() {
		t.Fatalf("prod should normalize to production, got %q", cfg.Env)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("CORS origins = %v", cfg.CORSAllowOrigin)
	}
}

func TestLoadFileRejectsBadSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown_provider":   {"LLM_PROVIDER": "bard"},
		"zero_image_limit":   {"MAX_IMAGE_BYTES": "0"},
		"zero_timeout":       {"LLM_TIMEOUT_SECONDS": "0"},
		"prod_without_key":   {"ENV": "production"},
		"negative_rate_rule": {"RATE_LIMIT_BURST": "-1"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestPlaceholderProviderNeedsNoKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("LLM_PROVIDER", "Placeholder")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LLMProvider != ProviderPlaceholder {
		t.Fatalf("LLMProvider = %q", cfg.LLMProvider)
	}
}

func TestNormalizeEnv(t *testing.T) {
	cases := map[string]string{
		"":            "dev",
		"Development": "dev",
		"PROD":        "production",
		"staging":     "staging",
		"local":       "local",
		"weird":       "dev",
	}
	for in, want := range cases {
		if got := normalizeEnv(in); got != want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
