// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerRedactsCredentials(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromCore(core)

	log.Info("calling provider", "api_key", "sk-live-123", "model", "gpt-image-1")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "gpt-image-1", fields["model"])
}

func TestLoggerWith(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromCore(core).With("stage", "imagegen")

	log.Warn("retrying", "attempt", 2)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "retrying", entries[0].Message)
	assert.Equal(t, "imagegen", entries[0].ContextMap()["stage"])
	assert.EqualValues(t, 2, entries[0].ContextMap()["attempt"])
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"prod", "debug", ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		assert.NotNil(t, l.SugaredLogger)
	}
	Nop().Info("discarded")
}
