// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("nil logger uses default", func(t *testing.T) {
		ctx := New(context.Background(), nil)
		assert.Same(t, DefaultLogger, Logger(ctx))
	})

	t.Run("custom logger is returned", func(t *testing.T) {
		l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		ctx := New(context.Background(), l)
		assert.Same(t, l, Logger(ctx))
	})
}

func TestLogger_NoValue(t *testing.T) {
	assert.Same(t, DefaultLogger, Logger(context.Background()))
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := New(context.Background(), slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx = With(ctx, "runID", "abc")

	Info(ctx, "hello")
	assert.Contains(t, buf.String(), "runID=abc")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestLoggingFunctions(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := New(context.Background(), slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	Debug(ctx, "d")
	Info(ctx, "i")
	Warn(ctx, "w")
	Error(ctx, "e")

	out := buf.String()
	for _, want := range []string{"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR"} {
		assert.Contains(t, out, want)
	}
}

func TestNewForTUI(t *testing.T) {
	orig := LevelVar.Level()
	defer LevelVar.Set(orig)

	LevelVar.Set(slog.LevelInfo)

	buf := &bytes.Buffer{}
	ctx := NewForTUI(context.Background(), buf)
	Info(ctx, "buffered", "run", 3)

	require.Contains(t, buf.String(), "buffered")
	assert.NotContains(t, buf.String(), "\033[", "expected no colour codes in buffered output")
}

func TestLogLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelWarn},
		{"bogus", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(levelEnvName(), tt.value)
			assert.Equal(t, tt.want, logLevelFromEnv())
		})
	}
}

func TestLevelEnvName(t *testing.T) {
	name := levelEnvName()
	assert.Regexp(t, `^[A-Z0-9_]+_LOG_LEVEL$`, name)
}
