package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/retailcore/backoffice/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// gormCallbacks lists the processors every statement goes through
var gormCallbacks = []string{"create", "query", "update", "delete", "row", "raw"}

// RegisterDBTracing installs otelgorm on db plus callbacks that annotate
// each statement span with rows affected, errors and a slow-query marker.
// Conditional stock and invoice updates that match no row show up as
// db.rows_affected=0 on their span.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.Enabled || !cfg.DBTraceEnabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName("postgresql")}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	annotate := spanAnnotator(cfg.DBSlowQueryThresh)
	for _, op := range gormCallbacks {
		if err := hook(db, op, true).Register("otel_timing:before_"+op, markStart); err != nil {
			return err
		}
		if err := hook(db, op, false).Register("otel_timing:after_"+op, annotate); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.DBLogFullSQL),
		zap.Duration("slow_query_threshold", cfg.DBSlowQueryThresh),
	)
	return nil
}

// registrar is the registration half of gorm's callback builder
type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// hook positions a callback before gorm's processor for op, or after it but
// ahead of otelgorm's own after-callback, while the statement span is still open.
func hook(db *gorm.DB, op string, before bool) registrar {
	target := "gorm:" + op
	spanEnd := "otel:after:" + op
	if op == "query" {
		spanEnd = "otel:after:select"
	}
	pick := func(b, a registrar) registrar {
		if before {
			return b
		}
		return a
	}

	cb := db.Callback()
	switch op {
	case "create":
		return pick(cb.Create().Before(target), cb.Create().After(target).Before(spanEnd))
	case "query":
		return pick(cb.Query().Before(target), cb.Query().After(target).Before(spanEnd))
	case "update":
		return pick(cb.Update().Before(target), cb.Update().After(target).Before(spanEnd))
	case "delete":
		return pick(cb.Delete().Before(target), cb.Delete().After(target).Before(spanEnd))
	case "row":
		return pick(cb.Row().Before(target), cb.Row().After(target).Before(spanEnd))
	default:
		return pick(cb.Raw().Before(target), cb.Raw().After(target).Before(spanEnd))
	}
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func spanAnnotator(slowThreshold time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}

		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}

		if start, ok := ctx.Value(queryStartTimeKey).(time.Time); ok && slowThreshold > 0 {
			if elapsed := time.Since(start); elapsed > slowThreshold {
				span.SetAttributes(
					attribute.Bool("db.slow_query", true),
					attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
				)
			}
		}
	}
}
