package postgres

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSQLOperation(t *testing.T) {
	for _, tc := range []struct{ sql, want string }{
		{"SELECT id FROM companies WHERE id = $1", "SELECT"},
		{"\n\t\tinsert into dte_sequences (a) values ($1)", "INSERT"},
		{"   ", "UNKNOWN"},
	} {
		assert.Equal(t, tc.want, sqlOperation(tc.sql))
	}
}

func TestTruncateSQL_ColapsaEspaciosYCorta(t *testing.T) {
	assert.Equal(t, "SELECT 1 FROM x", truncateSQL("SELECT  1\n\tFROM x"))

	long := "SELECT " + strings.Repeat("a", 600)
	got := truncateSQL(long)
	assert.Len(t, got, maxStatementAttr+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestQueryTracer_RegistraConsultaLenta(t *testing.T) {
	var buf bytes.Buffer
	tr := newQueryTracer(zerolog.New(&buf), time.Nanosecond)

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL:  "UPDATE dte_sequences SET last_value = last_value + 1",
		Args: []any{"0614-010190-101-3"},
	})
	time.Sleep(time.Millisecond)
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("UPDATE 1")})

	out := buf.String()
	assert.Contains(t, out, "consulta lenta")
	assert.Contains(t, out, `"op":"UPDATE"`)
	assert.NotContains(t, out, "0614-010190-101-3", "los argumentos no se registran")
}

func TestQueryTracer_SinUmbralNoRegistra(t *testing.T) {
	var buf bytes.Buffer
	tr := newQueryTracer(zerolog.New(&buf), 0)

	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})

	assert.Empty(t, buf.String())
}
