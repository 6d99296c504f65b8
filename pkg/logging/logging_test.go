package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogBackendRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogBackend(LogConfig{DebugLevel: "verbose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")
}

func TestLoggerLevelAndCaching(t *testing.T) {
	b, err := NewLogBackend(LogConfig{DebugLevel: "debug"})
	require.NoError(t, err)
	defer b.Close()

	l := b.Logger("TEST")
	assert.Equal(t, slog.LevelDebug, l.Level())

	// Same subsystem tag must reuse the same logger.
	assert.Equal(t, l, b.Logger("TEST"))
}

func TestLogBackendWritesRotatedFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	b, err := NewLogBackend(LogConfig{
		LogFile:     logFile,
		DebugLevel:  "info",
		MaxLogFiles: 2,
	})
	require.NoError(t, err)

	b.Logger("TEST").Infof("hello from the rotator")
	require.NoError(t, b.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the rotator")
	assert.Contains(t, string(data), "[INF] TEST")
}

func TestLastLogLines(t *testing.T) {
	b, err := NewLogBackend(LogConfig{DebugLevel: "info", MaxBufferLines: 3})
	require.NoError(t, err)
	defer b.Close()

	log := b.Logger("TEST")
	for _, word := range []string{"one", "two", "three", "four"} {
		log.Infof("line %s", word)
	}

	lines := b.LastLogLines(10)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "line two"))
	assert.True(t, strings.HasSuffix(lines[2], "line four"))

	// Below-level records must not reach the buffer.
	log.Debugf("line five")
	assert.Len(t, b.LastLogLines(10), 3)
}

func TestLastLogLinesDisabled(t *testing.T) {
	b, err := NewLogBackend(LogConfig{DebugLevel: "info"})
	require.NoError(t, err)
	defer b.Close()

	b.Logger("TEST").Infof("not buffered")
	assert.Nil(t, b.LastLogLines(5))
}
