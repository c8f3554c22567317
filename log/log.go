// Package log is a small leveled logger used across blockfall. It keeps a
// printf-style API and writes JSON lines through zap.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

func init() {
	// stdout is reserved for protocol traffic (MCP over stdio).
	defaultLogger = New(os.Stderr, LogLevelInfo)
}

type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// zapTrace sits one step below zap's debug level.
const zapTrace = zapcore.DebugLevel - 1

func (level LogLevel) String() string {
	switch level {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

func (level LogLevel) zapLevel() zapcore.Level {
	switch level {
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelDebug:
		return zapcore.DebugLevel
	default:
		return zapTrace
	}
}

// ParseLogLevel parses a log level string into a LogLevel.
// Valid log levels are: error, warn, info, debug, trace.
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "trace":
		return LogLevelTrace, nil
	default:
		return LogLevelError, fmt.Errorf("unknown log level: %s", level)
	}
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l < zapcore.DebugLevel {
		enc.AppendString("trace")
		return
	}
	enc.AppendString(l.String())
}

type Logger struct {
	base  *zap.Logger
	level zap.AtomicLevel
	lvl   LogLevel
	lmu   *sync.RWMutex
}

// New creates a logger writing JSON lines to out.
func New(out io.Writer, level LogLevel) *Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = encodeLevel

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(out), atom)
	return &Logger{base: zap.New(core), level: atom, lvl: level, lmu: &sync.RWMutex{}}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{base: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel), lvl: LogLevelError, lmu: &sync.RWMutex{}}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.lmu.Lock()
	l.lvl = level
	l.lmu.Unlock()
	l.level.SetLevel(level.zapLevel())
}

func (l *Logger) Level() LogLevel {
	l.lmu.RLock()
	defer l.lmu.RUnlock()
	return l.lvl
}

// With returns a child logger that adds key=value to every entry. The
// child shares its parent's level.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{base: l.base.With(zap.Any(key, value)), level: l.level, lvl: l.lvl, lmu: l.lmu}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}

func (l *Logger) logf(level zapcore.Level, format string, args ...interface{}) {
	if !l.level.Enabled(level) {
		return
	}
	if ce := l.base.Check(level, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logf(zapcore.ErrorLevel, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logf(zapcore.WarnLevel, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logf(zapcore.InfoLevel, format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logf(zapcore.DebugLevel, format, args...)
}

func (l *Logger) Trace(format string, args ...interface{}) {
	l.logf(zapTrace, format, args...)
}

// Default returns the process-wide logger.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func SetLevel(level LogLevel) {
	Default().SetLevel(level)
	Default().Debug("Log level set to %s", level)
}

func Info(format string, args ...interface{}) {
	Default().Info(format, args...)
}

func Error(format string, args ...interface{}) {
	Default().Error(format, args...)
}

func Warn(format string, args ...interface{}) {
	Default().Warn(format, args...)
}

func Debug(format string, args ...interface{}) {
	Default().Debug(format, args...)
}

func Trace(format string, args ...interface{}) {
	Default().Trace(format, args...)
}
