package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"edge-worker/worker/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultTrailingWindow  = 7 * 24 * time.Hour
	DefaultQueryLimit      = 100
	DefaultContentPrefix   = "/blog/"
	DefaultExcludedSegment = "/tag/"

	// MaxRankingEntries é o tamanho máximo do ranking em cache.
	MaxRankingEntries = 5

	// RankingKey é a chave do ranking no KVStore. Não expira.
	RankingKey = "popular-posts"
)

var ErrRefreshInProgress = errors.New("ranking refresh already in progress")

// RefreshError embrulha a falha de uma etapa do refresh. O cache não é tocado
// quando Stage é "query".
type RefreshError struct {
	Stage string
	Err   error
}

func (e *RefreshError) Error() string { return "ranking refresh (" + e.Stage + "): " + e.Err.Error() }
func (e *RefreshError) Unwrap() error { return e.Err }

// RefreshOptions parametriza a consulta e o filtro do ranking. Zero values
// assumem os Default*.
type RefreshOptions struct {
	Window          time.Duration
	Limit           int
	ContentPrefix   string
	ExcludedSegment string
}

func (o RefreshOptions) withDefaults() RefreshOptions {
	if o.Window <= 0 {
		o.Window = DefaultTrailingWindow
	}
	if o.Limit <= 0 {
		o.Limit = DefaultQueryLimit
	}
	if o.ContentPrefix == "" {
		o.ContentPrefix = DefaultContentPrefix
	}
	if o.ExcludedSegment == "" {
		o.ExcludedSegment = DefaultExcludedSegment
	}
	return o
}

// Refresher recalcula o ranking a partir da fonte de analytics e substitui o
// valor em cache de uma vez só.
//
// Slots (opcional) impede dois refreshes simultâneos no mesmo processo.
// AcquireTimeout segue a regra do semáforo: <= 0 espera até o ctx encerrar.
type Refresher struct {
	Source  domain.AnalyticsSource
	Store   domain.KVStore
	Options RefreshOptions

	Slots          domain.SlotPool
	AcquireTimeout time.Duration

	Now func() time.Time
}

// Refresh executa consulta -> filtro -> truncamento -> escrita única.
// Zero entradas qualificadas substituem o cache por uma lista vazia.
func (r Refresher) Refresh(ctx context.Context) ([]domain.ContentEntry, error) {
	ctx, span := tracer.Start(ctx, "ranking.refresh")
	defer span.End()

	release, ok := r.acquire(ctx)
	if !ok {
		// contexto do chamador encerrado não é slot ocupado
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		span.SetStatus(codes.Error, ErrRefreshInProgress.Error())
		return nil, ErrRefreshInProgress
	}
	defer release()

	entries, err := r.refresh(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking refresh failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("ranking.entries", len(entries)))
	return entries, nil
}

func (r Refresher) refresh(ctx context.Context) ([]domain.ContentEntry, error) {
	opts := r.Options.withDefaults()
	now := r.now()

	records, err := r.Source.TopPaths(ctx, domain.TopPathsQuery{
		Since: now.Add(-opts.Window),
		Until: now,
		Limit: opts.Limit,
	})
	if err != nil {
		return nil, &RefreshError{Stage: "query", Err: err}
	}

	entries := Rank(records, opts)

	payload, err := json.Marshal(entries)
	if err != nil {
		return nil, &RefreshError{Stage: "encode", Err: err}
	}
	if err := r.Store.Put(ctx, RankingKey, string(payload), 0); err != nil {
		return nil, &RefreshError{Stage: "store", Err: err}
	}
	return entries, nil
}

// Rank filtra os registros (já ordenados pela fonte) e devolve no máximo
// MaxRankingEntries entradas, sem reordenar.
func Rank(records []domain.PathCount, opts RefreshOptions) []domain.ContentEntry {
	opts = opts.withDefaults()

	entries := make([]domain.ContentEntry, 0, MaxRankingEntries)
	for _, rec := range records {
		if len(entries) == MaxRankingEntries {
			break
		}
		if !opts.Qualifies(rec.Path) {
			continue
		}
		views := rec.Requests
		if views < 0 {
			views = 0
		}
		entries = append(entries, domain.ContentEntry{
			Path:      rec.Path,
			ViewCount: views,
			Title:     DeriveTitle(rec.Path, opts.ContentPrefix),
		})
	}
	return entries
}

func (r Refresher) acquire(ctx context.Context) (func(), bool) {
	return SlotGuard{Pool: r.Slots, AcquireTimeout: r.AcquireTimeout}.Acquire(ctx)
}

func (r Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
