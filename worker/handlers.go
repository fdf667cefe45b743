package worker

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"edge-worker/worker/application"
	"edge-worker/worker/domain"

	"github.com/gin-gonic/gin"
)

// MaxContactBody limita o corpo de POST /contact.
const MaxContactBody = 64 << 10

const (
	msgSpamDetected    = "Spam detected"
	msgMissingFields   = "Missing required fields"
	msgInvalidEmail    = "Invalid email address"
	msgTooManyRequests = "Too many requests. Please try again later."
	msgDispatchFailed  = "Failed to send email"
	msgInvalidBody     = "Invalid request body"
	msgInternal        = "Internal server error"
	msgNotFound        = "Not found"
	msgUnauthorized    = "Unauthorized"
	msgRefreshBusy     = "Refresh already in progress"
	msgUnavailable     = "Service unavailable"
)

type rejection struct {
	status  int
	message string
}

var rejections = map[domain.RejectReason]rejection{
	domain.ReasonSpamDetected:   {http.StatusBadRequest, msgSpamDetected},
	domain.ReasonMissingFields:  {http.StatusBadRequest, msgMissingFields},
	domain.ReasonInvalidEmail:   {http.StatusBadRequest, msgInvalidEmail},
	domain.ReasonRateLimited:    {http.StatusTooManyRequests, msgTooManyRequests},
	domain.ReasonDispatchFailed: {http.StatusInternalServerError, msgDispatchFailed},
}

// outcomeCounters é o que o /health consegue mostrar de um StatsStore em memória.
type outcomeCounters interface {
	ByOutcome() map[string]int64
}

// outcomeTotals cobre stores remotos, cuja leitura pode falhar.
type outcomeTotals interface {
	Totals(ctx context.Context) (map[string]int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	opts RouterOptions
}

func (h *handlers) contact(c *gin.Context) {
	if h.opts.Gate == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgUnavailable})
		return
	}
	ctx := c.Request.Context()
	logger := LoggerFromContext(ctx)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxContactBody)

	var sub domain.Submission
	if err := c.ShouldBind(&sub); err != nil {
		logger.Warn("contact body rejected", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	res, err := h.opts.Gate.Submit(ctx, h.opts.ClientID(c.Request), sub)
	if err != nil {
		logger.Error("contact rate limit store failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	if res.Accepted() {
		logger.Info("contact submission accepted")
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	rej, ok := rejections[res.Reason]
	if !ok {
		rej = rejection{http.StatusInternalServerError, msgInternal}
	}
	switch res.Reason {
	case domain.ReasonRateLimited:
		// A entrada do limiter não expõe o TTL restante; a janela inteira é o teto.
		c.Header("Retry-After", retryAfterSeconds(h.opts.Gate.Limiter.WindowOrDefault()))
	case domain.ReasonDispatchFailed:
		logger.Error("contact email dispatch failed", "err", res.Err)
	}
	c.JSON(rej.status, gin.H{"error": rej.message})
}

func (h *handlers) popularPosts(c *gin.Context) {
	if h.opts.Ranking == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgUnavailable})
		return
	}

	entries, err := h.opts.Ranking.GetTop(c.Request.Context())
	if err != nil {
		LoggerFromContext(c.Request.Context()).Error("read popular posts failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, entries)
}

func (h *handlers) triggerUpdate(c *gin.Context) {
	if h.opts.TriggerToken == "" || h.opts.Refresher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	if !validBearer(c.GetHeader("Authorization"), h.opts.TriggerToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgUnauthorized})
		return
	}

	ctx := c.Request.Context()
	logger := LoggerFromContext(ctx)

	start := time.Now()
	entries, err := h.opts.Refresher.Refresh(ctx)
	switch {
	case errors.Is(err, application.ErrRefreshInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": msgRefreshBusy})
		return
	case err != nil:
		logger.Error("manual ranking refresh failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	logger.Info("updated popular posts",
		"count", len(entries),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(entries)})
}

func (h *handlers) health(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	}
	status := http.StatusOK

	if p, ok := h.opts.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			LoggerFromContext(ctx).Warn("kv store ping failed", "err", err)
			body["status"] = "degraded"
			body["store"] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			body["store"] = "ok"
		}
	}
	switch st := h.opts.Stats.(type) {
	case outcomeCounters:
		body["gate"] = st.ByOutcome()
	case outcomeTotals:
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		totals, err := st.Totals(ctx)
		if err != nil {
			LoggerFromContext(ctx).Warn("gate stats read failed", "err", err)
			break
		}
		body["gate"] = totals
	}

	c.JSON(status, body)
}

func validBearer(header, token string) bool {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return false
	}
	got := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
