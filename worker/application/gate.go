package application

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"edge-worker/worker/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var emailShape = regexp.MustCompile(`^[^\s\p{Z}\x{FEFF}@]+@[^\s\p{Z}\x{FEFF}@]+\.[^\s\p{Z}\x{FEFF}@]+$`)

// submissionCheck é uma regra nomeada do gate. A primeira que falha decide o motivo.
type submissionCheck struct {
	name   string
	reason domain.RejectReason
	fails  func(domain.Submission) bool
}

// A ordem importa: honeypot vence qualquer outro problema do envio.
var submissionChecks = []submissionCheck{
	{
		name:   "honeypot",
		reason: domain.ReasonSpamDetected,
		fails:  func(s domain.Submission) bool { return s.Website != "" },
	},
	{
		name:   "required-fields",
		reason: domain.ReasonMissingFields,
		fails:  func(s domain.Submission) bool { return s.Name == "" || s.Email == "" || s.Message == "" },
	},
	{
		name:   "email-shape",
		reason: domain.ReasonInvalidEmail,
		fails:  func(s domain.Submission) bool { return !ValidEmail(s.Email) },
	},
}

// ValidEmail verifica só o formato local@dominio.tld.
func ValidEmail(addr string) bool { return emailShape.MatchString(addr) }

// Validate roda as regras de conteúdo em ordem. Retorna "" quando todas passam.
func Validate(s domain.Submission) domain.RejectReason {
	for _, c := range submissionChecks {
		if c.fails(s) {
			return c.reason
		}
	}
	return ""
}

// Gate orquestra validação, rate limit e envio de um formulário de contato.
//
// Um envio que passa pelas regras de conteúdo grava exatamente uma entrada de
// rate limit, mesmo que o envio do email falhe depois (a janela não é devolvida).
type Gate struct {
	Limiter    RateLimiter
	Dispatcher domain.Dispatcher
	Stats      domain.StatsStore

	From string
	To   string

	Now func() time.Time
}

// Submit retorna o resultado marcado. error só é não-nil para falha de
// infraestrutura do rate limit (store indisponível).
func (g Gate) Submit(ctx context.Context, clientID string, s domain.Submission) (domain.Result, error) {
	ctx, span := tracer.Start(ctx, "gate.submit")
	defer span.End()

	res, err := g.submit(ctx, clientID, s)

	outcome := res.Outcome()
	if err != nil {
		outcome = "store_unavailable"
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limit store unavailable")
	}
	span.SetAttributes(attribute.String("gate.outcome", outcome))

	if g.Stats != nil {
		_ = g.Stats.Record(ctx, domain.StatsEvent{
			ClientID: clientID,
			Outcome:  outcome,
			At:       g.now(),
		})
	}
	return res, err
}

func (g Gate) submit(ctx context.Context, clientID string, s domain.Submission) (domain.Result, error) {
	if reason := Validate(s); reason != "" {
		return domain.Result{Reason: reason}, nil
	}

	allowed, err := g.Limiter.Allow(ctx, clientID)
	if err != nil {
		return domain.Result{}, err
	}
	if !allowed {
		return domain.Result{Reason: domain.ReasonRateLimited}, nil
	}

	if err := g.Limiter.RecordSubmission(ctx, clientID); err != nil {
		return domain.Result{}, err
	}

	if g.Dispatcher == nil {
		return domain.Result{
			Reason: domain.ReasonDispatchFailed,
			Err:    fmt.Errorf("%w: no dispatcher configured", domain.ErrDispatchFailed),
		}, nil
	}
	if err := g.Dispatcher.Send(ctx, BuildContactEmail(g.From, g.To, s)); err != nil {
		return domain.Result{Reason: domain.ReasonDispatchFailed, Err: err}, nil
	}
	return domain.Result{}, nil
}

func (g Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
