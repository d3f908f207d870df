package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracerDisabled(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{ServiceName: "test", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tracer)

	ctx, span := tracer.StartSpan(context.Background(), "op")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracerEnabledNoEndpoint(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{
		ServiceName:  "test",
		Enabled:      true,
		SamplingRate: 1.0,
	})
	require.NoError(t, err)

	ctx, span := tracer.StartSpan(context.Background(), "op")
	ctx = AddTraceContext(ctx, span)
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestCreateSampler(t *testing.T) {
	assert.NotNil(t, createSampler(1.0))
	assert.NotNil(t, createSampler(0))
	assert.NotNil(t, createSampler(0.5))
}

func TestInjectTraceContext(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{
		ServiceName:  "test",
		Enabled:      true,
		SamplingRate: 1.0,
	})
	require.NoError(t, err)
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	ctx, span := tracer.StartSpan(context.Background(), "client")
	defer span.End()

	req := httptest.NewRequest("GET", "http://upstream/user", nil)
	InjectTraceContext(ctx, req)
	assert.NotEmpty(t, req.Header.Get("Traceparent"))

	extracted := ExtractTraceContext(context.Background(), req)
	assert.Equal(t,
		span.SpanContext().TraceID(),
		SpanFromContext(extracted).SpanContext().TraceID(),
	)
}
