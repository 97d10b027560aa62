package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/projectamerika/mayflower/internal/metrics"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Hook implements bun.QueryHook, logging every query and recording its latency.
type Hook struct {
	logger *zap.Logger
}

// NewHook creates a new Hook with zap logger.
func NewHook(logger *zap.Logger) *Hook {
	return &Hook{logger: logger.Named("query")}
}

// BeforeQuery implements bun.QueryHook.
func (h *Hook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

// AfterQuery implements bun.QueryHook. Empty results are not failures.
func (h *Hook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)
	operation := event.Operation()

	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		metrics.QueryLatency.WithLabelValues(operation, metrics.ResultError).Observe(duration.Seconds())
		h.logger.Error("Query failed",
			zap.String("operation", operation),
			zap.String("query", event.Query),
			zap.Duration("duration", duration),
			zap.Error(event.Err))

		return
	}

	metrics.QueryLatency.WithLabelValues(operation, metrics.ResultOK).Observe(duration.Seconds())
	h.logger.Debug("Query executed",
		zap.String("operation", operation),
		zap.Duration("duration", duration))
}
