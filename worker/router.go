package worker

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"edge-worker/worker/application"
	"edge-worker/worker/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RouterOptions reúne as dependências das rotas. Campos nil desligam a rota
// correspondente com 503 (exceto TriggerToken vazio, que vira 404).
type RouterOptions struct {
	Gate      *application.Gate
	Ranking   *application.RankingReader
	Refresher application.RankingRefresher

	// TriggerToken habilita POST /trigger-update (Authorization: Bearer <token>).
	TriggerToken string

	ClientID       ClientIDFunc
	AllowedOrigins []string

	// Stats alimenta o /health quando o store expõe contadores.
	Stats domain.StatsStore
	// Store é checado no /health quando implementa Ping.
	Store domain.KVStore

	// Concurrency limita requests simultâneos; Max <= 0 desliga.
	Concurrency ConcurrencyOptions
	// Throttle aplica o token bucket por cliente; nil desliga.
	Throttle Throttler
	// ThrottleHeaders expõe X-RateLimit-RPS e X-RateLimit-Burst.
	ThrottleHeaders bool

	Logger *slog.Logger
}

// NewRouter monta o engine gin com tracing, logging por request, recovery e
// CORS, seguidos dos limites de concorrência e de taxa.
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.ClientID == nil {
		opts.ClientID = HeaderClientID("")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(
		requestTracing(),
		RequestLogger(opts.Logger, opts.ClientID),
		gin.Recovery(),
		corsMiddleware(opts.AllowedOrigins),
		ConcurrencyMiddleware(opts.Concurrency),
		ThrottleMiddleware(ThrottleOptions{
			Store:               opts.Throttle,
			ClientID:            opts.ClientID,
			AddRateLimitHeaders: opts.ThrottleHeaders,
		}),
	)

	h := &handlers{opts: opts}

	r.POST("/contact", h.contact)
	r.GET("/popular-posts", h.popularPosts)
	r.POST("/trigger-update", h.triggerUpdate)
	r.GET("/health", h.health)

	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	})

	return r
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		set[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := set[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestTracing abre um span por request e anota status e duração.
func requestTracing() gin.HandlerFunc {
	tracer := otel.Tracer("edge-worker/http")
	return func(c *gin.Context) {
		start := time.Now()

		ctx, span := tracer.Start(c.Request.Context(), "http.request")
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.target", c.Request.URL.Path),
			attribute.String("http.user_agent", c.Request.UserAgent()),
		)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(
			attribute.String("http.route", c.FullPath()),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.duration_ms", time.Since(start).Milliseconds()),
		)
		if status >= 500 {
			span.SetStatus(codes.Error, "HTTP request failed")
		}
	}
}
