package worker

import (
	"net/http"
	"time"

	"edge-worker/worker/application"
	"edge-worker/worker/infra"

	"github.com/gin-gonic/gin"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita requests em andamento no processo.
// Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) gin.HandlerFunc {
	if opts.Max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	guard := application.SlotGuard{
		Pool:           infra.NewSlotPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(c *gin.Context) {
		release, ok := guard.Acquire(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(opts.RejectStatus, gin.H{"error": msgUnavailable})
			return
		}
		defer release()

		c.Next()
	}
}
