package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/slot-sim/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"unknown": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level=%q", in)
	}
}

func TestNewFileOutput(t *testing.T) {
	dir := t.TempDir()
	log, err := New(&config.LogConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File: config.LogFileConfig{
			Path:     dir,
			Filename: "slotsim.log",
			MaxSize:  1,
		},
	})
	require.NoError(t, err)

	log.Info("spin", zap.Float64("payout", 1.5))
	log.Error("ledger write failed")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "slotsim.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"spin"`)
	assert.Contains(t, string(data), `"level":"info"`)

	errData, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errData), "ledger write failed")
	assert.NotContains(t, string(errData), `"msg":"spin"`)
}

func TestGetModuleLoggerFallback(t *testing.T) {
	log := GetModuleLogger("engine")
	require.NotNil(t, log)
	log.Info("不会输出")
}
