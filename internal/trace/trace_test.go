package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enableForTest(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(Config{Enabled: true, Command: "report", Writer: &buf}))
	t.Cleanup(func() { _ = Shutdown(context.Background()) })
	return &buf
}

func TestDisabledByDefault(t *testing.T) {
	require.NoError(t, InitWithConfig(Config{}))
	assert.False(t, Enabled())
	assert.Empty(t, InstanceID())

	ctx, span := StartSpan(context.Background(), "noop")
	AnnotateRun(ctx, "run-1", 2024, "")
	span.End()
	_, _, ok := GetTraceFields(ctx)
	assert.False(t, ok)
}

func TestAnnotateRun_ExportsRunAndInstance(t *testing.T) {
	buf := enableForTest(t)
	require.True(t, Enabled())
	id := InstanceID()
	require.NotEmpty(t, id)

	ctx, span := StartSpan(context.Background(), "runner.Run")
	AnnotateRun(ctx, "run-42", 2024, "growth")
	traceID, spanID, ok := GetTraceFields(ctx)
	require.True(t, ok)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
	span.End()

	out := buf.String()
	assert.Contains(t, out, "runner.Run")
	assert.Contains(t, out, string(RunIDKey))
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "growth")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "eps.command")
}

func TestInitWithConfig_NewInstancePerProvider(t *testing.T) {
	enableForTest(t)
	first := InstanceID()
	enableForTest(t)
	assert.NotEqual(t, first, InstanceID())
}
