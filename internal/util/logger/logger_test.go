package logger

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetOutput_ExistingLogger(t *testing.T) {
	// 先创建 logger，再切换输出
	log := Logger("test-output")

	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	log.Info("after switch", "room", "r-1")

	output := buf.String()
	assert.Contains(t, output, "after switch")
	assert.Contains(t, output, "room=r-1")
	assert.Contains(t, output, "subsystem=test-output")
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	log := Logger("test-level")
	SetLevel("test-level", slog.LevelWarn)

	log.Info("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	log.With("k", "v").Warn("shown")
	assert.Contains(t, buf.String(), "shown")

	// 派生 logger 共享级别
	SetLevel("test-level", slog.LevelError)
	log.With("k", "v").Warn("hidden-too")
	assert.NotContains(t, buf.String(), "hidden-too")
}

func TestParseConfig(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:     "transport=debug, directory=warn,error",
		EnvLogFormat:    "JSON",
		EnvLogAddSource: "true",
	}
	cfg := parseConfig(func(k string) string { return env[k] })

	assert.Equal(t, slog.LevelError, cfg.DefaultLevel)
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("transport"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("directory"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("notify"))
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.AddSource)
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg := parseConfig(func(string) string { return "" })

	assert.Equal(t, slog.LevelInfo, cfg.DefaultLevel)
	assert.Equal(t, FormatText, cfg.Format)
	assert.False(t, cfg.AddSource)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", TruncateID("abc", 8))
	assert.Equal(t, "abcdefgh", TruncateID("abcdefghijk", 8))
}
