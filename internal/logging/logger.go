package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Printer is the logging surface the game components depend on.
type Printer interface {
	Printf(format string, args ...any)
}

// Discard drops every line.
var Discard Printer = discard{}

type discard struct{}

func (discard) Printf(string, ...any) {}

// Logger appends timestamped lines to <dir>/game.log so a run can be
// inspected after the terminal is gone.
type Logger struct {
	file *os.File
	now  func() time.Time
}

// New creates (or reuses) the log file in dir.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(dir, "game.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f, now: time.Now}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single timestamped line to the log file.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	timestamp := l.now().Format(time.RFC3339)
	fmt.Fprintf(l.file, "[%s] %s\n", timestamp, line)
}

// OrDiscard returns p, or Discard when p is nil.
func OrDiscard(p Printer) Printer {
	if p == nil {
		return Discard
	}
	return p
}
