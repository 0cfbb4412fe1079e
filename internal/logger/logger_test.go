package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitProduction(t *testing.T) {
	require.NoError(t, Init("production"))
	Info("info message", zap.String("key", "value"))
	Warn("warning message")
	Error("error message", zap.Error(nil))
	assert.NoError(t, Sync())
}

func TestInitDevelopment(t *testing.T) {
	require.NoError(t, Init("development"))
	Debug("debug message", zap.Int("number", 42))
	assert.NoError(t, Sync())
}

func TestInitIsCaseInsensitive(t *testing.T) {
	require.NoError(t, Init("Development"))
	require.NoError(t, Init("PRODUCTION"))
}

func TestNamedReturnsChildLogger(t *testing.T) {
	require.NoError(t, Init("production"))
	child := Named("fetcher")
	assert.NotNil(t, child)
}

func TestCheckLoggerPanicsBeforeInit(t *testing.T) {
	saved := log
	log = nil
	defer func() { log = saved }()

	assert.Panics(t, func() { Info("should panic") })
}
