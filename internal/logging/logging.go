package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level is the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a textual level ("debug", "info", "warn", "error").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is the only logging capability the processing pipeline needs.
// Implementations must not influence control flow.
type Logger interface {
	Log(level Level, msg string)
}

// Logf formats and forwards a message to l.
func Logf(l Logger, level Level, format string, args ...any) {
	l.Log(level, fmt.Sprintf(format, args...))
}

type nopLogger struct{}

func (nopLogger) Log(Level, string) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

// ZerologLogger adapts a zerolog.Logger to Logger.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerolog wraps zl.
func NewZerolog(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

// Log implements Logger.
func (z *ZerologLogger) Log(level Level, msg string) {
	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = z.zl.Debug()
	case LevelWarn:
		ev = z.zl.Warn()
	case LevelError:
		ev = z.zl.Error()
	default:
		ev = z.zl.Info()
	}
	ev.Msg(msg)
}

// Zerolog exposes the underlying logger for callers that want structured fields.
func (z *ZerologLogger) Zerolog() zerolog.Logger {
	return z.zl
}

// NewConsole builds the human-readable zerolog logger used by the command line tools.
func NewConsole(w io.Writer, level Level, runID string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	zl := zerolog.New(out).Level(toZerolog(level)).With().Timestamp().Logger()
	if runID != "" {
		zl = zl.With().Str("run_id", runID).Logger()
	}
	return zl
}

func toZerolog(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
