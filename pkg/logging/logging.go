package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig holds the knobs for a LogBackend.
type LogConfig struct {
	// LogFile is the path of the rotated log file. Empty means log to
	// stdout only.
	LogFile string

	// DebugLevel is the level every subsystem logger starts at. It accepts
	// the slog level names (trace, debug, info, warn, error, critical,
	// off). Empty means info.
	DebugLevel string

	// MaxLogFiles is how many rotated files to keep around.
	MaxLogFiles int

	// MaxBufferLines is how many recent log lines to keep in memory for
	// LastLogLines. Zero disables the buffer.
	MaxBufferLines int
}

// LogBackend fans log writes out to stdout, an optional rotated file and an
// optional in-memory tail, and hands out leveled subsystem loggers backed by
// the same sink.
type LogBackend struct {
	mtx sync.Mutex

	bknd     *slog.Backend
	rotator  *rotator.Rotator
	level    slog.Level
	loggers  map[string]slog.Logger
	lastLine *lineBuffer
}

// NewLogBackend builds a backend from cfg. The directory of cfg.LogFile is
// created if needed.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	level := slog.LevelInfo
	if cfg.DebugLevel != "" {
		var ok bool
		level, ok = slog.LevelFromString(cfg.DebugLevel)
		if !ok {
			return nil, fmt.Errorf("unknown log level %q", cfg.DebugLevel)
		}
	}

	b := &LogBackend{
		level:   level,
		loggers: make(map[string]slog.Logger),
	}
	if cfg.MaxBufferLines > 0 {
		b.lastLine = &lineBuffer{max: cfg.MaxBufferLines}
	}
	if cfg.LogFile != "" {
		logDir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %v", logDir, err)
		}
		maxRolls := cfg.MaxLogFiles
		if maxRolls <= 0 {
			maxRolls = 3
		}
		r, err := rotator.New(cfg.LogFile, 32*1024, false, maxRolls)
		if err != nil {
			return nil, fmt.Errorf("failed to create log rotator: %v", err)
		}
		b.rotator = r
	}
	b.bknd = slog.NewBackend(&logWriter{b: b})
	return b, nil
}

// Logger returns the logger for the given subsystem tag, creating it on
// first use. Loggers share the backend's sink and start at its debug level.
func (b *LogBackend) Logger(subsystem string) slog.Logger {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if l, ok := b.loggers[subsystem]; ok {
		return l
	}
	l := b.bknd.Logger(subsystem)
	l.SetLevel(b.level)
	b.loggers[subsystem] = l
	return l
}

// LastLogLines returns up to n of the most recent log lines, oldest first.
// It returns nil when the backend was built without a line buffer.
func (b *LogBackend) LastLogLines(n int) []string {
	if b.lastLine == nil {
		return nil
	}
	return b.lastLine.last(n)
}

// Close flushes and closes the rotated log file, if any.
func (b *LogBackend) Close() error {
	if b.rotator != nil {
		return b.rotator.Close()
	}
	return nil
}

// logWriter tees every write to stdout, the rotator and the tail buffer.
type logWriter struct {
	b *LogBackend
}

func (w *logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if w.b.lastLine != nil {
		w.b.lastLine.append(p)
	}
	if w.b.rotator != nil {
		return w.b.rotator.Write(p)
	}
	return len(p), nil
}

// lineBuffer keeps the tail of the log stream for UIs and tests.
type lineBuffer struct {
	mtx   sync.Mutex
	max   int
	lines []string
}

func (lb *lineBuffer) append(p []byte) {
	lb.mtx.Lock()
	defer lb.mtx.Unlock()
	for _, line := range strings.Split(string(p), "\n") {
		if line == "" {
			continue
		}
		lb.lines = append(lb.lines, line)
	}
	if over := len(lb.lines) - lb.max; over > 0 {
		lb.lines = append([]string(nil), lb.lines[over:]...)
	}
}

func (lb *lineBuffer) last(n int) []string {
	lb.mtx.Lock()
	defer lb.mtx.Unlock()
	if n > len(lb.lines) {
		n = len(lb.lines)
	}
	out := make([]string, n)
	copy(out, lb.lines[len(lb.lines)-n:])
	return out
}
