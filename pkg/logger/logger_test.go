package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestContextFieldsFollowTheCallChain(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.DebugLevel, Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-1")
	ctx = log.WithSellerID(ctx, "seller-9")
	ctx = log.WithFields(ctx, map[string]any{"order_id": "o-1"})
	log.Error(ctx, "checkout failed", errors.New("declined"))

	line := decodeLine(t, buf)
	assert.Equal(t, "api", line["service"])
	assert.Equal(t, "req-1", line[FieldRequestID])
	assert.Equal(t, "seller-9", line[FieldSellerID])
	assert.Equal(t, "o-1", line["order_id"])
	assert.Equal(t, "declined", line["error"])
	assert.Contains(t, line, "stack")
}

func TestFieldsDoNotLeakIntoParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithUserID(context.Background(), "u-1")
	_ = log.WithActorRole(parent, "admin")
	log.Info(parent, "hello")

	line := decodeLine(t, buf)
	assert.Equal(t, "u-1", line[FieldUserID])
	assert.NotContains(t, line, FieldRole)
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Output: buf, WarnStack: true}).Warn(context.Background(), "slow")
	assert.Contains(t, decodeLine(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "api", Output: buf}).Warn(context.Background(), "slow")
	assert.NotContains(t, decodeLine(t, buf), "stack")
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Level: zerolog.WarnLevel, Output: buf})
	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "api", Format: FormatConsole, Output: buf}).Info(context.Background(), "ready")
	assert.Contains(t, buf.String(), "ready")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nope"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}
