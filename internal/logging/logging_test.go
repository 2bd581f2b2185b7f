package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, production := range []bool{false, true} {
		logger, err := New("warn", production)
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.ErrorContains(t, err, `"loud"`)
}

func TestOrNop(t *testing.T) {
	assert.True(t, OrNop("debug", false).Core().Enabled(zapcore.DebugLevel))
	assert.False(t, OrNop("loud", false).Core().Enabled(zapcore.ErrorLevel))
}
