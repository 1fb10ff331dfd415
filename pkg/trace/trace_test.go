package trace

import (
	"context"
	"errors"
	"testing"

	"golang-options/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpan_Disabled(t *testing.T) {
	require.NoError(t, Init(config.Tracing{Enabled: false}))

	ctx := context.Background()
	got, span := StartSpan(ctx, "exit", attribute.Int64("position_id", 1))
	assert.Equal(t, ctx, got)
	assert.False(t, span.SpanContext().IsValid())
	End(span, errors.New("ignored"))

	_, _, ok := GetTraceFields(got)
	assert.False(t, ok)
}

func TestStartSpan_Enabled(t *testing.T) {
	require.NoError(t, Init(config.Tracing{Enabled: true, ServiceName: "golang-options-test"}))
	defer func() {
		require.NoError(t, Shutdown(context.Background()))
		enabled = false
		tracer = nil
		tracerProvider = nil
	}()

	ctx, span := StartSpan(context.Background(), "exit")
	traceID, spanID, ok := GetTraceFields(ctx)
	assert.True(t, ok)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)
	End(span, nil)
}
