package worker

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Throttler decide por cliente. infra.ThrottleStore satisfaz.
type Throttler interface {
	Allow(clientID string) (bool, time.Duration)
}

type ThrottleOptions struct {
	Store               Throttler
	ClientID            ClientIDFunc
	RejectStatus        int
	AddRateLimitHeaders bool
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// ThrottleMiddleware aplica um token bucket por cliente antes de qualquer rota.
// É independente da janela de uma hora do formulário de contato.
// Registrado depois do CORS, então recusas também levam os headers de origem.
func ThrottleMiddleware(opts ThrottleOptions) gin.HandlerFunc {
	if opts.Store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.ClientID == nil {
		opts.ClientID = HeaderClientID("")
	}

	return func(c *gin.Context) {
		// preflight não consome token
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		client := opts.ClientID(c.Request)

		if opts.AddRateLimitHeaders {
			if ri, ok := opts.Store.(rateInfo); ok {
				c.Header("X-RateLimit-RPS", formatFloat(ri.RPS()))
				c.Header("X-RateLimit-Burst", formatInt(ri.Burst()))
			}
		}

		allowed, wait := opts.Store.Allow(client)
		if !allowed {
			LoggerFromContext(c.Request.Context()).Debug("request throttled", "client", client, "retry_after", wait)
			c.Header("Retry-After", retryAfterSeconds(wait))
			c.AbortWithStatusJSON(opts.RejectStatus, gin.H{"error": msgTooManyRequests})
			return
		}

		c.Next()
	}
}
