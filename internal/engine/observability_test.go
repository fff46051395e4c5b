package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	fixtures "github.com/roach88/discrete/internal/testutil"
	"github.com/roach88/discrete/internal/trace"
)

func TestMetricsCountReplays(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	paths, err := Collect(New(quiet(), WithMetrics(m)).
		IterDiscreteTraces(context.Background(), trace.GraphFlat, fixtures.ConditionalTree(0.5, 0.5)))
	require.NoError(t, err)
	require.Len(t, paths, 3)

	// empty prefix escapes at first; first=A escapes at second
	assert.Equal(t, 5.0, testutil.ToFloat64(m.Replays))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Escapes))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Paths))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Worklist))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Branching))
}

func TestMetricsCountErrorsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	_, err := Collect(New(quiet(), WithMetrics(m), WithMaxPaths(1)).
		IterDiscreteTraces(context.Background(), trace.GraphFlat, fixtures.TwoCoins(0.5, 0.5)))
	require.Error(t, err)
	_, err = Collect(New(quiet(), WithMetrics(m)).
		IterDiscreteTraces(context.Background(), trace.GraphFlat, fixtures.Failing()))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("QUOTA_EXCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("MODEL_ERROR")))
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.replay(1)
		m.escape(2)
		m.path()
		m.failure(nil)
	})
}

func TestEnumerationSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, err := Collect(New(quiet(), WithTracer(tp.Tracer("test"))).
		IterDiscreteTraces(context.Background(), trace.GraphDense, fixtures.TwoCoins(0.5, 0.5)))
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "discrete.enumerate", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Len(t, span.Events(), 3, "one event per escape")

	attrs := make(map[string]any)
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "dense", attrs["discrete.graph_type"])
	assert.Equal(t, int64(4), attrs["discrete.paths"])
}

func TestEnumerationSpanRecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, err := Collect(New(quiet(), WithTracer(tp.Tracer("test"))).
		IterDiscreteTraces(context.Background(), trace.GraphFlat, fixtures.Failing()))
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestCloseBeforeNextOpensNoSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	it := New(quiet(), WithTracer(tp.Tracer("test"))).
		IterDiscreteTraces(context.Background(), trace.GraphFlat, fixtures.TwoCoins(0.5, 0.5))
	it.Close()

	assert.Empty(t, rec.Started())
	assert.False(t, it.Next())
}
