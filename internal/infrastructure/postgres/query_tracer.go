package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementAttr = 512

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	op  string
	sql string
}

// queryTracer abre un span por consulta y registra las que superan el umbral.
// Los argumentos nunca se adjuntan: pueden contener NIT, DUI o datos del comprador.
type queryTracer struct {
	tracer trace.Tracer
	log    zerolog.Logger
	slow   time.Duration
}

var _ pgx.QueryTracer = (*queryTracer)(nil)

func newQueryTracer(log zerolog.Logger, slow time.Duration) *queryTracer {
	return &queryTracer{
		tracer: otel.Tracer("dte-sv/postgres"),
		log:    log,
		slow:   slow,
	}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := sqlOperation(data.SQL)
	ctx, _ = t.tracer.Start(ctx, "db."+strings.ToLower(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", truncateSQL(data.SQL)),
		),
	)
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), op: op, sql: data.SQL})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	start, _ := ctx.Value(queryStartKey{}).(queryStart)
	elapsed := time.Since(start.at)
	span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))

	// Sin filas es un resultado esperado (GetByID devuelve nil).
	if data.Err != nil && !errors.Is(data.Err, pgx.ErrNoRows) {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}

	if t.slow > 0 && !start.at.IsZero() && elapsed > t.slow {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		t.log.Warn().
			Str("op", start.op).
			Str("sql", truncateSQL(start.sql)).
			Dur("elapsed", elapsed).
			Msg("consulta lenta")
	}
}

// sqlOperation devuelve la primera palabra de la sentencia en mayúsculas (SELECT, INSERT, ...).
func sqlOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

func truncateSQL(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > maxStatementAttr {
		return sql[:maxStatementAttr] + "..."
	}
	return sql
}
