// Package logging provides the leveled, structured logger shared by the diff
// cache components. Messages carry a field map that is rendered in key order
// through a log/slog text handler, and warnings and errors are tallied so
// callers can report degraded batches after the fact.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration value such as "warn" to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", name)
	}
}

// Logger handles structured logging
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	output io.Writer
	quiet  bool
	stats  *ErrorStats
	file   *os.File
	logger *slog.Logger
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	mu            sync.Mutex
	TotalErrors   int
	TotalWarnings int
	ByType        map[string]int
	LastError     string
	LastErrorTime time.Time
}

// New creates a logger writing to w.
func New(level LogLevel, w io.Writer) *Logger {
	logger := &Logger{
		level:  level,
		output: w,
		stats:  &ErrorStats{ByType: make(map[string]int)},
	}
	logger.rebuildSlogLoggerLocked()
	return logger
}

// Discard returns a logger that drops every message but still counts
// warnings and errors.
func Discard() *Logger {
	return New(DEBUG, io.Discard)
}

// NewLogger creates a logger that appends to logFilePath. An empty path logs
// to stderr. If the file cannot be opened the logger falls back to stderr and
// the open error is returned alongside it.
func NewLogger(level LogLevel, logFilePath string) (*Logger, error) {
	logger := New(level, os.Stderr)
	if logFilePath == "" {
		return logger, nil
	}

	file, err := openLogFile(logFilePath)
	if err != nil {
		return logger, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	logger.output = file
	logger.file = file
	logger.rebuildSlogLoggerLocked()
	return logger, nil
}

func openLogFile(path string) (*os.File, error) {
	const logFilePermission = 0o644
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
}

func (l *Logger) rebuildSlogLoggerLocked() {
	l.logger = slog.New(slog.NewTextHandler(l.output, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// SetOutput sets the output destination for log messages
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	l.rebuildSlogLoggerLocked()
}

// SetQuiet enables or disables quiet mode (only errors)
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quiet = quiet
}

// GetStats returns a copy of the error statistics
func (l *Logger) GetStats() ErrorStats {
	l.stats.mu.Lock()
	defer l.stats.mu.Unlock()

	return ErrorStats{
		TotalErrors:   l.stats.TotalErrors,
		TotalWarnings: l.stats.TotalWarnings,
		ByType:        copyMap(l.stats.ByType),
		LastError:     l.stats.LastError,
		LastErrorTime: l.stats.LastErrorTime,
	}
}

func (l *Logger) log(level LogLevel, msg string, err error, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Statistics are kept even for suppressed levels so that batch callers
	// can tell a degraded result from a clean one.
	l.updateStats(level, msg, err)

	if !l.shouldLog(level) {
		return
	}

	args := make([]any, 0, 2*len(fields)+2)
	if err != nil {
		args = append(args, "error", err)
	}
	for _, key := range sortedFieldKeys(fields) {
		args = append(args, key, fields[key])
	}

	l.logger.Log(context.Background(), toSlogLevel(level), msg, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log(DEBUG, msg, nil, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields map[string]any) {
	l.log(INFO, msg, nil, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields map[string]any) {
	l.log(WARN, msg, nil, fields)
}

// WarnErr logs a warning message together with the error that caused it.
func (l *Logger) WarnErr(msg string, err error, fields map[string]any) {
	l.log(WARN, msg, err, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, err error, fields map[string]any) {
	l.log(ERROR, msg, err, fields)
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if level < l.level {
		return false
	}
	if l.quiet && level < ERROR {
		return false
	}
	return true
}

func (l *Logger) updateStats(level LogLevel, msg string, err error) {
	l.stats.mu.Lock()
	defer l.stats.mu.Unlock()

	if level >= ERROR {
		l.stats.TotalErrors++
		if err != nil {
			errType := fmt.Sprintf("%T", err)
			l.stats.ByType[errType]++
		}
		l.stats.LastError = msg
		if err != nil {
			l.stats.LastError += ": " + err.Error()
		}
		l.stats.LastErrorTime = time.Now()
		return
	}

	if level == WARN {
		l.stats.TotalWarnings++
	}
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		return slog.LevelInfo
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HasErrors returns true if any errors have been logged
func (l *Logger) HasErrors() bool {
	l.stats.mu.Lock()
	defer l.stats.mu.Unlock()
	return l.stats.TotalErrors > 0
}

// GetWarningCount returns the total number of warnings logged
func (l *Logger) GetWarningCount() int {
	l.stats.mu.Lock()
	defer l.stats.mu.Unlock()
	return l.stats.TotalWarnings
}

// Reset clears all statistics
func (l *Logger) Reset() {
	l.stats.mu.Lock()
	defer l.stats.mu.Unlock()
	l.stats.TotalErrors = 0
	l.stats.TotalWarnings = 0
	l.stats.ByType = make(map[string]int)
	l.stats.LastError = ""
	l.stats.LastErrorTime = time.Time{}
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func copyMap(m map[string]int) map[string]int {
	result := make(map[string]int, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

func sortedFieldKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
