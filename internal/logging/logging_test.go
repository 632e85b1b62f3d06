package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWithSubjectTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	ctx = WithSubject(ctx, "elcin")

	subject, ok := SubjectFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "elcin", subject)

	FromContext(ctx).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "elcin", entry["subject"])
}

func TestSubjectMissing(t *testing.T) {
	_, ok := SubjectFromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, context.Background(), WithSubject(context.Background(), ""))
}

func TestStartSpanReusesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-1")

	ctx, parent := StartSpan(ctx, "parent")
	parentID := SpanIDFromContext(ctx)
	_, child := StartSpan(ctx, "child")
	child.RecordError(errors.New("boom"))
	child.End()
	parent.End()

	assert.Equal(t, "req-1", TraceIDFromContext(ctx))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var childEntry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &childEntry))
	assert.Equal(t, "span failed", childEntry["msg"])
	assert.Equal(t, "boom", childEntry["error"])
	assert.Equal(t, parentID, childEntry["parent_span_id"])
	assert.Equal(t, "req-1", childEntry["trace_id"])
}
