package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv isola o teste de variáveis do ambiente de quem roda.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "LISTEN_ADDR", "CLIENT_IP_HEADER", "CORS_ALLOWED_ORIGINS", "TRIGGER_TOKEN",
		"KV_BACKEND", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_KEY_PREFIX", "SQLITE_PATH",
		"EMAIL_PROVIDER", "EMAIL_FROM", "EMAIL_TO", "AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_SSL",
		"CLOUDFLARE_API_TOKEN", "CLOUDFLARE_ZONE_ID", "ANALYTICS_ENDPOINT", "ANALYTICS_WINDOW",
		"ANALYTICS_QUERY_LIMIT", "ANALYTICS_TIMEOUT", "CONTENT_PREFIX", "EXCLUDED_SEGMENT",
		"REFRESH_INTERVAL", "REFRESH_ON_START", "REFRESH_ACQUIRE_TIMEOUT",
		"THROTTLE_ENABLED", "THROTTLE_RPS", "THROTTLE_BURST", "CONCURRENCY_MAX", "CONCURRENCY_TIMEOUT", "GATE_STATS_BACKEND",
		"TRACING_ENABLED", "TRACING_ENDPOINT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.ClientIPHeader != "CF-Connecting-IP" {
		t.Fatalf("unexpected http defaults: %+v", cfg)
	}
	if cfg.KV.Backend != "memory" {
		t.Fatalf("kv backend=%q", cfg.KV.Backend)
	}
	if cfg.Ranking.ContentPrefix != "/blog/" || cfg.Ranking.ExcludedSegment != "/tag/" {
		t.Fatalf("unexpected ranking filter defaults")
	}
	if cfg.Ranking.AnalyticsWindow != 7*24*time.Hour || cfg.Ranking.AnalyticsQueryLimit != 100 {
		t.Fatalf("unexpected analytics defaults")
	}
	if cfg.Ranking.Enabled() {
		t.Fatalf("ranking must be disabled without credentials")
	}
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "worker.yaml")
	yml := `
listen_addr: ":9090"
kv:
  backend: sqlite
  sqlite_path: /tmp/kv.db
ranking:
  content_prefix: /posts/
  refresh_interval: 6h
throttle:
  enabled: true
  rps: 5
  burst: 10
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("LISTEN_ADDR", ":7070")
	t.Setenv("THROTTLE_BURST", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Fatalf("env must override file, got %q", cfg.ListenAddr)
	}
	if cfg.KV.Backend != "sqlite" || cfg.KV.SQLitePath != "/tmp/kv.db" {
		t.Fatalf("unexpected kv %+v", cfg.KV)
	}
	if cfg.Ranking.ContentPrefix != "/posts/" || cfg.Ranking.RefreshInterval != 6*time.Hour {
		t.Fatalf("unexpected ranking %+v", cfg.Ranking)
	}
	if cfg.Ranking.ExcludedSegment != "/tag/" {
		t.Fatalf("defaults must survive a partial file")
	}
	if cfg.Throttle.RPS != 5 || cfg.Throttle.Burst != 3 {
		t.Fatalf("unexpected throttle %+v", cfg.Throttle)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown kv backend", map[string]string{"KV_BACKEND": "etcd"}},
		{"redis without addr", map[string]string{"KV_BACKEND": "redis"}},
		{"zone missing", map[string]string{"CLOUDFLARE_API_TOKEN": "tok"}},
		{"tracing without endpoint", map[string]string{"TRACING_ENABLED": "true"}},
		{"redis stats without addr", map[string]string{"GATE_STATS_BACKEND": "redis"}},
		{"bad prefix", map[string]string{"CONTENT_PREFIX": "blog"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.ValidateEmail(); err == nil {
		t.Fatalf("expected error without from/to")
	}

	cfg.Email.From = "noreply@example.com"
	cfg.Email.To = "owner@example.com"
	cfg.Email.AWSRegion = "us-east-1"
	if err := cfg.ValidateEmail(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	cfg.Email.Provider = "smtp"
	if err := cfg.ValidateEmail(); err == nil {
		t.Fatalf("expected error for smtp without host")
	}
	cfg.Email.SMTPHost = "smtp.example.com"
	if err := cfg.ValidateEmail(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestConfig_LogValueRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.TriggerToken = "trigger-secret"
	cfg.KV.RedisPassword = "redis-secret"
	cfg.Email.AWSSecretAccessKey = "aws-secret"
	cfg.Email.SMTPPass = "smtp-secret"
	cfg.Ranking.CloudflareAPIToken = "cf-secret"

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("config loaded", "config", cfg)

	out := buf.String()
	for _, secret := range []string{"trigger-secret", "redis-secret", "aws-secret", "smtp-secret", "cf-secret"} {
		if strings.Contains(out, secret) {
			t.Fatalf("log output leaks %q: %s", secret, out)
		}
	}
	if !strings.Contains(out, "trigger_enabled=true") {
		t.Fatalf("expected trigger_enabled flag in %s", out)
	}
}
