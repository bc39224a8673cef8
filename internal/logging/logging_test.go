package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewLevel(t *testing.T) {
	assert.True(t, New("debug", "test").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("warn", "test").Core().Enabled(zapcore.InfoLevel))
	// unknown levels fall back to info
	l := New("verbose", "test")
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
