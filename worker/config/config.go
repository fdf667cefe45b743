// Package config carrega a configuração do edge worker.
//
// Ordem de precedência (a última vence):
//
//  1. valores padrão
//  2. arquivo YAML opcional (-config ou CONFIG_FILE)
//  3. variáveis de ambiente (um .env no diretório atual é carregado antes, se existir)
//
// # Variáveis de Ambiente
//
// ## HTTP
//   - LISTEN_ADDR: endereço do servidor (default: :8080)
//   - CLIENT_IP_HEADER: header com o IP do visitante (default: CF-Connecting-IP)
//   - CORS_ALLOWED_ORIGINS: origens separadas por vírgula (default: *)
//   - TRIGGER_TOKEN: habilita POST /trigger-update com Bearer token
//
// ## KV
//   - KV_BACKEND: memory | redis | sqlite (default: memory)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_KEY_PREFIX
//   - SQLITE_PATH (default: ./edge-worker.db)
//
// ## Email
//   - EMAIL_PROVIDER: ses | smtp (default: ses)
//   - EMAIL_FROM, EMAIL_TO
//   - AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
//   - SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS, SMTP_SSL
//
// ## Ranking
//   - CLOUDFLARE_API_TOKEN, CLOUDFLARE_ZONE_ID
//   - ANALYTICS_ENDPOINT, ANALYTICS_WINDOW (168h), ANALYTICS_QUERY_LIMIT (100), ANALYTICS_TIMEOUT (15s)
//   - CONTENT_PREFIX (/blog/), EXCLUDED_SEGMENT (/tag/)
//   - REFRESH_INTERVAL (24h, 0 desliga), REFRESH_ON_START, REFRESH_ACQUIRE_TIMEOUT (5s)
//
// ## Proteção e observabilidade
//   - THROTTLE_ENABLED, THROTTLE_RPS, THROTTLE_BURST
//   - CONCURRENCY_MAX (64, 0 desliga), CONCURRENCY_TIMEOUT (2s)
//   - GATE_STATS_BACKEND: none | memory | redis (default: memory)
//   - TRACING_ENABLED, TRACING_ENDPOINT
//   - LOG_LEVEL, LOG_FORMAT
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr         string   `yaml:"listen_addr" validate:"required"`
	ClientIPHeader     string   `yaml:"client_ip_header" validate:"required"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	TriggerToken       string   `yaml:"trigger_token"`

	KV      KV      `yaml:"kv"`
	Email   Email   `yaml:"email" validate:"-"`
	Ranking Ranking `yaml:"ranking"`

	Throttle Throttle `yaml:"throttle"`

	ConcurrencyMax     int           `yaml:"concurrency_max" validate:"min=0"`
	ConcurrencyTimeout time.Duration `yaml:"concurrency_timeout" validate:"min=0"`

	GateStatsBackend string `yaml:"gate_stats_backend" validate:"oneof=none memory redis"`

	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingEndpoint string `yaml:"tracing_endpoint" validate:"required_if=TracingEnabled true"`

	LogLevel  string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=json text"`
}

type KV struct {
	Backend        string `yaml:"backend" validate:"oneof=memory redis sqlite"`
	RedisAddr      string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db" validate:"min=0"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
	SQLitePath     string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
}

type Email struct {
	Provider string `yaml:"provider" validate:"oneof=ses smtp"`
	From     string `yaml:"from" validate:"required,email"`
	To       string `yaml:"to" validate:"required,email"`

	AWSRegion          string `yaml:"aws_region" validate:"required_if=Provider ses"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key" validate:"required_with=AWSAccessKeyID"`

	SMTPHost string `yaml:"smtp_host" validate:"required_if=Provider smtp"`
	SMTPPort int    `yaml:"smtp_port" validate:"min=0,max=65535"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
	SMTPSSL  bool   `yaml:"smtp_ssl"`
}

type Ranking struct {
	CloudflareAPIToken string `yaml:"cloudflare_api_token"`
	CloudflareZoneID   string `yaml:"cloudflare_zone_id" validate:"required_with=CloudflareAPIToken"`

	AnalyticsEndpoint   string        `yaml:"analytics_endpoint" validate:"omitempty,url"`
	AnalyticsWindow     time.Duration `yaml:"analytics_window" validate:"min=0"`
	AnalyticsQueryLimit int           `yaml:"analytics_query_limit" validate:"min=1"`
	AnalyticsTimeout    time.Duration `yaml:"analytics_timeout" validate:"min=0"`

	ContentPrefix   string `yaml:"content_prefix" validate:"required,startswith=/"`
	ExcludedSegment string `yaml:"excluded_segment"`

	RefreshInterval       time.Duration `yaml:"refresh_interval" validate:"min=0"`
	RefreshOnStart        bool          `yaml:"refresh_on_start"`
	RefreshAcquireTimeout time.Duration `yaml:"refresh_acquire_timeout" validate:"min=0"`
}

// Enabled informa se há credenciais para consultar a Cloudflare.
func (r Ranking) Enabled() bool {
	return r.CloudflareAPIToken != "" && r.CloudflareZoneID != ""
}

type Throttle struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps" validate:"required_if=Enabled true,gte=0"`
	Burst   int     `yaml:"burst" validate:"required_if=Enabled true,gte=0"`
}

// Default devolve a configuração padrão (sem credenciais).
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		ClientIPHeader:     "CF-Connecting-IP",
		CORSAllowedOrigins: []string{"*"},
		KV: KV{
			Backend:    "memory",
			SQLitePath: "./edge-worker.db",
		},
		Email: Email{
			Provider: "ses",
			SMTPPort: 587,
		},
		Ranking: Ranking{
			AnalyticsQueryLimit:   100,
			AnalyticsWindow:       7 * 24 * time.Hour,
			AnalyticsTimeout:      15 * time.Second,
			ContentPrefix:         "/blog/",
			ExcludedSegment:       "/tag/",
			RefreshInterval:       24 * time.Hour,
			RefreshAcquireTimeout: 5 * time.Second,
		},
		Throttle: Throttle{
			Enabled: true,
			RPS:     2,
			Burst:   20,
		},
		ConcurrencyMax:     64,
		ConcurrencyTimeout: 2 * time.Second,
		GateStatsBackend:   "memory",
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Load aplica defaults, o YAML em path (se não vazio) e o ambiente, e valida.
func Load(path string) (Config, error) {
	// .env é opcional
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getenvDefault("LISTEN_ADDR", c.ListenAddr)
	c.ClientIPHeader = getenvDefault("CLIENT_IP_HEADER", c.ClientIPHeader)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
	c.TriggerToken = getenvDefault("TRIGGER_TOKEN", c.TriggerToken)

	c.KV.Backend = strings.ToLower(getenvDefault("KV_BACKEND", c.KV.Backend))
	c.KV.RedisAddr = getenvDefault("REDIS_ADDR", c.KV.RedisAddr)
	c.KV.RedisPassword = getenvDefault("REDIS_PASSWORD", c.KV.RedisPassword)
	c.KV.RedisDB = getenvIntDefault("REDIS_DB", c.KV.RedisDB)
	c.KV.RedisKeyPrefix = getenvDefault("REDIS_KEY_PREFIX", c.KV.RedisKeyPrefix)
	c.KV.SQLitePath = getenvDefault("SQLITE_PATH", c.KV.SQLitePath)

	c.Email.Provider = strings.ToLower(getenvDefault("EMAIL_PROVIDER", c.Email.Provider))
	c.Email.From = getenvDefault("EMAIL_FROM", c.Email.From)
	c.Email.To = getenvDefault("EMAIL_TO", c.Email.To)
	c.Email.AWSRegion = getenvDefault("AWS_REGION", c.Email.AWSRegion)
	c.Email.AWSAccessKeyID = getenvDefault("AWS_ACCESS_KEY_ID", c.Email.AWSAccessKeyID)
	c.Email.AWSSecretAccessKey = getenvDefault("AWS_SECRET_ACCESS_KEY", c.Email.AWSSecretAccessKey)
	c.Email.SMTPHost = getenvDefault("SMTP_HOST", c.Email.SMTPHost)
	c.Email.SMTPPort = getenvIntDefault("SMTP_PORT", c.Email.SMTPPort)
	c.Email.SMTPUser = getenvDefault("SMTP_USER", c.Email.SMTPUser)
	c.Email.SMTPPass = getenvDefault("SMTP_PASS", c.Email.SMTPPass)
	c.Email.SMTPSSL = getenvBoolDefault("SMTP_SSL", c.Email.SMTPSSL)

	c.Ranking.CloudflareAPIToken = getenvDefault("CLOUDFLARE_API_TOKEN", c.Ranking.CloudflareAPIToken)
	c.Ranking.CloudflareZoneID = getenvDefault("CLOUDFLARE_ZONE_ID", c.Ranking.CloudflareZoneID)
	c.Ranking.AnalyticsEndpoint = getenvDefault("ANALYTICS_ENDPOINT", c.Ranking.AnalyticsEndpoint)
	c.Ranking.AnalyticsWindow = getenvDurationDefault("ANALYTICS_WINDOW", c.Ranking.AnalyticsWindow)
	c.Ranking.AnalyticsQueryLimit = getenvIntDefault("ANALYTICS_QUERY_LIMIT", c.Ranking.AnalyticsQueryLimit)
	c.Ranking.AnalyticsTimeout = getenvDurationDefault("ANALYTICS_TIMEOUT", c.Ranking.AnalyticsTimeout)
	c.Ranking.ContentPrefix = getenvDefault("CONTENT_PREFIX", c.Ranking.ContentPrefix)
	c.Ranking.ExcludedSegment = getenvDefault("EXCLUDED_SEGMENT", c.Ranking.ExcludedSegment)
	c.Ranking.RefreshInterval = getenvDurationDefault("REFRESH_INTERVAL", c.Ranking.RefreshInterval)
	c.Ranking.RefreshOnStart = getenvBoolDefault("REFRESH_ON_START", c.Ranking.RefreshOnStart)
	c.Ranking.RefreshAcquireTimeout = getenvDurationDefault("REFRESH_ACQUIRE_TIMEOUT", c.Ranking.RefreshAcquireTimeout)

	c.Throttle.Enabled = getenvBoolDefault("THROTTLE_ENABLED", c.Throttle.Enabled)
	c.Throttle.RPS = getenvFloatDefault("THROTTLE_RPS", c.Throttle.RPS)
	c.Throttle.Burst = getenvIntDefault("THROTTLE_BURST", c.Throttle.Burst)

	c.ConcurrencyMax = getenvIntDefault("CONCURRENCY_MAX", c.ConcurrencyMax)
	c.ConcurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", c.ConcurrencyTimeout)

	c.GateStatsBackend = strings.ToLower(getenvDefault("GATE_STATS_BACKEND", c.GateStatsBackend))

	c.TracingEnabled = getenvBoolDefault("TRACING_ENABLED", c.TracingEnabled)
	c.TracingEndpoint = getenvDefault("TRACING_ENDPOINT", c.TracingEndpoint)

	c.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", c.LogFormat))
}

var validate = validator.New()

// Validate roda as regras das tags e as que cruzam seções.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.GateStatsBackend == "redis" && c.KV.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when GATE_STATS_BACKEND=redis")
	}
	return nil
}

// ValidateEmail valida a seção de email. Só o servidor precisa dela; o
// binário de refresh roda sem credenciais de envio.
func (c Config) ValidateEmail() error {
	if err := validate.Struct(c.Email); err != nil {
		return fmt.Errorf("validate email config: %w", err)
	}
	return nil
}

// LogValue omite segredos quando a config vai para o log.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("listen_addr", c.ListenAddr),
		slog.String("client_ip_header", c.ClientIPHeader),
		slog.Any("cors_allowed_origins", c.CORSAllowedOrigins),
		slog.Bool("trigger_enabled", c.TriggerToken != ""),
		slog.String("kv_backend", c.KV.Backend),
		slog.String("redis_addr", c.KV.RedisAddr),
		slog.String("sqlite_path", c.KV.SQLitePath),
		slog.String("email_provider", c.Email.Provider),
		slog.String("email_to", c.Email.To),
		slog.Bool("ranking_enabled", c.Ranking.Enabled()),
		slog.Duration("refresh_interval", c.Ranking.RefreshInterval),
		slog.Bool("throttle_enabled", c.Throttle.Enabled),
		slog.Float64("throttle_rps", c.Throttle.RPS),
		slog.Int("throttle_burst", c.Throttle.Burst),
		slog.Int("concurrency_max", c.ConcurrencyMax),
		slog.String("gate_stats_backend", c.GateStatsBackend),
		slog.Bool("tracing_enabled", c.TracingEnabled),
	)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
