package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	buf := &bytes.Buffer{}
	prev := SetOutput(buf)
	t.Cleanup(func() {
		SetOutput(prev)
		color.NoColor = noColor
	})
	return buf
}

func TestLevels(t *testing.T) {
	buf := captureOutput(t)

	Info("started on %s", ":8080")
	Warn("retrying %d", 2)
	Error("failed: %v", "boom")

	out := buf.String()
	assert.Contains(t, out, "[INFO]  started on :8080\n")
	assert.Contains(t, out, "[WARN]  retrying 2\n")
	assert.Contains(t, out, "[Error] failed: boom\n")
}

func TestWithContextIncludesRequestID(t *testing.T) {
	buf := captureOutput(t)
	ctx := WithRequestID(context.Background(), "req-123")

	WarnWithContext(ctx, "conflict on %s", "post:1")
	ErrorWithContext(context.Background(), "no id")

	out := buf.String()
	assert.Contains(t, out, "[req_id=req-123] conflict on post:1")
	assert.Contains(t, out, "[Error] no id\n")
	assert.Equal(t, "req-123", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestInfoStructWritesDump(t *testing.T) {
	buf := captureOutput(t)

	InfoStruct(struct{ Backend string }{Backend: "redis"})

	assert.Contains(t, buf.String(), `Backend: (string) (len=5) "redis"`)
}
