// Package obs carries the ambient logging/tracing stack used throughout a
// build: a per-build zerolog child logger plus otel trace/metric helpers,
// grounded on the teacher's internal/observability package.
package obs

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ForBuild returns a zerolog logger tagged with buildID, used for
// entry/exit/count logging at Debug and degraded-path logging at Warn.
func ForBuild(buildID string) *zerolog.Logger {
	l := log.Logger.With().Str("build_id", buildID).Logger()
	return &l
}

// StartStage starts an otel span for one pipeline stage.
func StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("tavernkit").Start(ctx, stage)
	span.SetAttributes(attribute.String("tavernkit.stage", stage))
	return ctx, span
}

var (
	instrumentsOnce  sync.Once
	blocksEmitted    otelmetric.Int64Counter
	blocksEvicted    otelmetric.Int64Counter
	tokensEstimated  otelmetric.Int64Counter
)

// ensureInstruments lazily initializes otel instruments, no-op-safe when no
// real MeterProvider has been installed by the host (mirrors the teacher's
// ensureTokenInstruments guard in internal/llm/observability.go).
func ensureInstruments() {
	instrumentsOnce.Do(func() {
		m := otel.Meter("tavernkit")
		blocksEmitted, _ = m.Int64Counter("tavernkit.blocks_emitted", otelmetric.WithDescription("Blocks emitted per build, by stage"))
		blocksEvicted, _ = m.Int64Counter("tavernkit.blocks_evicted", otelmetric.WithDescription("Blocks evicted by the trimmer, by reason"))
		tokensEstimated, _ = m.Int64Counter("tavernkit.tokens_estimated", otelmetric.WithDescription("Tokens estimated across all stages"))
	})
}

// RecordBlocksEmitted increments the per-stage emitted-block counter.
func RecordBlocksEmitted(ctx context.Context, stage string, n int) {
	if n <= 0 {
		return
	}
	ensureInstruments()
	if blocksEmitted != nil {
		blocksEmitted.Add(ctx, int64(n), otelmetric.WithAttributes(attribute.String("stage", stage)))
	}
}

// RecordBlocksEvicted increments the eviction-reason counter.
func RecordBlocksEvicted(ctx context.Context, reason string, n int) {
	if n <= 0 {
		return
	}
	ensureInstruments()
	if blocksEvicted != nil {
		blocksEvicted.Add(ctx, int64(n), otelmetric.WithAttributes(attribute.String("reason", reason)))
	}
}

// RecordTokensEstimated adds to the cumulative tokens-estimated counter.
func RecordTokensEstimated(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	ensureInstruments()
	if tokensEstimated != nil {
		tokensEstimated.Add(ctx, int64(n))
	}
}
