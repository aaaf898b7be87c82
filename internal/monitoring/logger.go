// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Levels above slog.LevelError for the CRITICAL/FATAL names.
const (
	LevelCritical = slog.Level(12)
	levelNotSet   = slog.Level(-8)
)

var (
	level  = new(slog.LevelVar)
	logger atomic.Pointer[slog.Logger]
)

func init() {
	SetOutput(os.Stderr)
}

// Logf is the package-level diagnostic logger at INFO. It may be replaced by
// SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = levelf(slog.LevelInfo)

// Debugf logs at DEBUG.
var Debugf func(format string, v ...interface{}) = levelf(slog.LevelDebug)

// Warnf logs at WARN.
var Warnf func(format string, v ...interface{}) = levelf(slog.LevelWarn)

// Errorf logs at ERROR.
var Errorf func(format string, v ...interface{}) = levelf(slog.LevelError)

func levelf(l slog.Level) func(string, ...interface{}) {
	return func(format string, v ...interface{}) {
		lg := logger.Load()
		ctx := context.Background()
		if !lg.Enabled(ctx, l) {
			return
		}
		lg.Log(ctx, l, fmt.Sprintf(format, v...))
	}
}

// SetLogger replaces Logf. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput sends log records to w as text.
func SetOutput(w io.Writer) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l >= LevelCritical {
					return slog.String(slog.LevelKey, "CRITICAL")
				}
			}
			return a
		},
	})
	logger.Store(slog.New(h))
}

// Logger returns the underlying structured logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// ParseLevel maps a level name (CRITICAL, FATAL, ERROR, WARN, WARNING, INFO,
// DEBUG, NOTSET) to a slog level. Names are case-insensitive.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "CRITICAL", "FATAL":
		return LevelCritical, nil
	case "ERROR":
		return slog.LevelError, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "NOTSET":
		return levelNotSet, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// SetLevel sets the minimum level that is emitted.
func SetLevel(name string) error {
	l, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(l)
	return nil
}
