// Package logging provides file-based logging for dorae.
// It outputs logs to a global log file (<dir>/dorae.log) and to per-subject
// files such as <dir>/timer-<job id>.log, optionally mirroring to a console.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dorae/dorae/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger wraps slog levels with file-based output support.
// Fields are ordered to minimize memory padding.
type Logger struct {
	now          func() time.Time
	console      *slog.Logger
	globalFile   *os.File
	subjectFiles map[string]*os.File
	logDir       string
	mu           sync.Mutex
	level        slog.Level
}

// Option configures a Logger.
type Option func(*Logger)

// WithConsole mirrors every entry at or above the level to w as slog text.
func WithConsole(w io.Writer) Option {
	return func(l *Logger) {
		l.console = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l.level}))
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// New creates a new Logger that writes to logDir.
// If logDir is empty, file logging is disabled.
func New(logDir string, level slog.Level, opts ...Option) *Logger {
	l := &Logger{
		now:          time.Now,
		logDir:       logDir,
		level:        level,
		subjectFiles: make(map[string]*os.File),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) ensureLogsDir() error {
	return os.MkdirAll(l.logDir, 0o750)
}

// ensureGlobalFile opens or returns the global log file.
func (l *Logger) ensureGlobalFile() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.globalFile != nil {
		return l.globalFile, nil
	}

	if err := l.ensureLogsDir(); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	path := domain.GlobalLogPath(l.logDir)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open global log file: %w", err)
	}
	l.globalFile = f
	return f, nil
}

// ensureSubjectFile opens or returns the log file of one subject.
func (l *Logger) ensureSubjectFile(subject string) (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.subjectFiles[subject]; ok {
		return f, nil
	}

	if err := l.ensureLogsDir(); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	path := domain.SubjectLogPath(l.logDir, fileSafe(subject))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open subject log file: %w", err)
	}
	l.subjectFiles[subject] = f
	return f, nil
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for subject, f := range l.subjectFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.subjectFiles, subject)
	}
	return lastErr
}

// formatLog formats a log entry.
// Format: [2025-12-30 09:32:51] [INFO] [timer-j1] [oracle] message
func formatLog(t time.Time, level slog.Level, subject, category, msg string) string {
	if subject == "" {
		subject = "global"
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		subject,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// fileSafe keeps subjects from escaping the log directory.
func fileSafe(subject string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(subject)
}

// log writes a log entry to the global file and, when subject is set, to the subject file.
func (l *Logger) log(level slog.Level, subject, category, msg string) {
	if level < l.level {
		return
	}

	if l.console != nil {
		attrs := []slog.Attr{slog.String("category", category)}
		if subject != "" {
			attrs = append(attrs, slog.String("subject", subject))
		}
		l.console.LogAttrs(context.Background(), level, msg, attrs...)
	}

	if l.logDir == "" {
		return
	}

	entry := formatLog(l.now(), level, subject, category, msg)

	if gf, err := l.ensureGlobalFile(); err == nil {
		_, _ = io.WriteString(gf, entry)
	}
	if subject != "" {
		if sf, err := l.ensureSubjectFile(subject); err == nil {
			_, _ = io.WriteString(sf, entry)
		}
	}
}

// Info logs an info message.
func (l *Logger) Info(subject, category, msg string) {
	l.log(slog.LevelInfo, subject, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(subject, category, msg string) {
	l.log(slog.LevelDebug, subject, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(subject, category, msg string) {
	l.log(slog.LevelWarn, subject, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(subject, category, msg string) {
	l.log(slog.LevelError, subject, category, msg)
}
