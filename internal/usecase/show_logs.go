package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dorae/dorae/internal/domain"
)

// ShowLogsInput contains the parameters for showing logs.
type ShowLogsInput struct {
	Subject string // Log subject, e.g. "timer-<job id>" (empty = global log)
	Lines   int    // Number of lines to display from the end (0 = all)
}

// ShowLogsOutput contains the result of showing logs.
type ShowLogsOutput struct {
	LogPath string // Path to the log file
	Content string // Log file content
}

// ShowLogs is the use case for viewing the global or a per-subject log.
type ShowLogs struct {
	logDir string
}

// NewShowLogs creates a new ShowLogs use case.
func NewShowLogs(logDir string) *ShowLogs {
	return &ShowLogs{logDir: logDir}
}

// Execute reads and returns the log content.
func (uc *ShowLogs) Execute(_ context.Context, in ShowLogsInput) (*ShowLogsOutput, error) {
	if uc.logDir == "" {
		return nil, fmt.Errorf("file logging is disabled: %w", domain.ErrNotFound)
	}
	if strings.ContainsAny(in.Subject, `/\`) || strings.Contains(in.Subject, "..") {
		return nil, fmt.Errorf("log subject %q: %w", in.Subject, domain.ErrInvalidInput)
	}

	logPath := domain.GlobalLogPath(uc.logDir)
	if in.Subject != "" {
		logPath = domain.SubjectLogPath(uc.logDir, in.Subject)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no log file at %s: %w", logPath, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read log file: %w", err)
	}

	// If lines is specified, get only the last N lines
	result := strings.TrimRight(string(content), "\n")
	if in.Lines > 0 {
		lines := strings.Split(result, "\n")
		if len(lines) > in.Lines {
			lines = lines[len(lines)-in.Lines:]
		}
		result = strings.Join(lines, "\n")
	}

	return &ShowLogsOutput{
		LogPath: logPath,
		Content: result,
	}, nil
}
