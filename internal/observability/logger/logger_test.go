package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestFrom_FallsBackToSingleton(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	l := zap.New(core)
	restore := Replace(l)
	defer restore()

	assert.Same(t, l, From(context.Background()))
	assert.Same(t, l, From(nil)) //nolint:staticcheck
}

func TestWith_ScopesContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := Replace(zap.New(core))
	defer restore()

	ctx, _ := With(context.Background(), KeyID("k1"))
	From(ctx).Info("resolved", Source("remote"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "k1", fields["kid"])
		assert.Equal(t, "remote", fields["key_source"])
	}
}
