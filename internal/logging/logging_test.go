// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/citysim/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  zapcore.Level
	}{
		{"debug", "debug", zapcore.DebugLevel},
		{"uppercase WARN", "WARN", zapcore.WarnLevel},
		{"warning alias", "warning", zapcore.WarnLevel},
		{"error", "error", zapcore.ErrorLevel},
		{"padded", " info ", zapcore.InfoLevel},
		{"empty defaults to info", "", zapcore.InfoLevel},
		{"unknown defaults to info", "verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	for _, enc := range []string{"console", "json", ""} {
		logger, err := New(types.LogConfig{Level: "debug", Encoding: enc})
		require.NoError(t, err, enc)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}

	_, err := New(types.LogConfig{Level: "info", Encoding: "xml"})
	assert.Error(t, err)
}
