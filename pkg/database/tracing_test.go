package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func inMemoryTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return exporter
}

func slowQueryLog(t *testing.T, threshold time.Duration) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetSlowQueryLogging(threshold, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })
	return &buf
}

func TestTraceQuery_Success(t *testing.T) {
	exporter := inMemoryTracer(t)

	_, end := TraceQuery(context.Background(), "GetCoachRating", "SELECT avg_rating FROM coaches WHERE id = $1")
	end(nil)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)

	span := spans[0]
	assert.Equal(t, "db.GetCoachRating", span.Name)

	attrs := make(map[string]string)
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetCoachRating", attrs["db.operation"])
	assert.Equal(t, "SELECT avg_rating FROM coaches WHERE id = $1", attrs["db.statement"])

	// codes.Unset on success.
	assert.EqualValues(t, 0, span.Status.Code)
}

func TestTraceQuery_Error(t *testing.T) {
	exporter := inMemoryTracer(t)

	_, end := TraceQuery(context.Background(), "UpdateSessionRating", "UPDATE sessions SET rating = $1 WHERE id = $2")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)

	span := spans[0]
	// codes.Error on failure.
	assert.EqualValues(t, 1, span.Status.Code)
	assert.NotEmpty(t, span.Events, "error should be recorded as a span event")
}

func TestTraceQuery_ChildOfActiveSpan(t *testing.T) {
	exporter := inMemoryTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "apply-review")

	ctx, end := TraceQuery(ctx, "ListCoachSessions", "SELECT * FROM sessions WHERE coach_id = $1")
	end(nil)
	parent.End()

	require.NotNil(t, ctx)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

func TestSlowQueryLogging_AboveThreshold(t *testing.T) {
	inMemoryTracer(t)

	// 1ns threshold: even an instant query counts as slow.
	buf := slowQueryLog(t, time.Nanosecond)

	_, end := TraceQuery(context.Background(), "AggregateRatings", "SELECT AVG(rating) FROM sessions WHERE coach_id = $1")
	end(nil)

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "AggregateRatings")
	assert.Contains(t, out, "SELECT AVG(rating) FROM sessions WHERE coach_id = $1")
}

func TestSlowQueryLogging_BelowThreshold(t *testing.T) {
	inMemoryTracer(t)

	buf := slowQueryLog(t, time.Hour)

	_, end := TraceQuery(context.Background(), "FastSelect", "SELECT 1")
	end(nil)

	assert.NotContains(t, buf.String(), "slow query detected")
}

func TestSlowQueryLogging_Disabled(t *testing.T) {
	inMemoryTracer(t)

	SetSlowQueryLogging(0, nil)

	// Must not panic with a nil logger and zero threshold.
	_, end := TraceQuery(context.Background(), "AnyOp", "SELECT 1")
	end(nil)
}

func TestSlowQueryLogging_IncludesError(t *testing.T) {
	inMemoryTracer(t)

	buf := slowQueryLog(t, time.Nanosecond)

	_, end := TraceQuery(context.Background(), "RecordStrike", "UPDATE coaches SET strikes = strikes + 1 WHERE id = $1")
	end(errors.New("unique constraint violation"))

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "unique constraint violation")
}

func TestSetSlowQueryLogging_Concurrent(t *testing.T) {
	inMemoryTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()

	for i := 0; i < 100; i++ {
		slowQuerySettings()
	}

	<-done
}
