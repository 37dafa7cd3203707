// Package querylog collects the per-query log stream returned alongside
// results. Entries are data for the caller; nothing branches on them.
package querylog

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Level string

const (
	LevelDebug   Level = "DEBUG"
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Entry mirrors the TRAPI LogEntry shape.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Code      string    `json:"code,omitempty"`
	Message   string    `json:"message"`
}

// Sink receives log entries for one query.
type Sink interface {
	Add(level Level, format string, args ...any)
	AddCode(level Level, code, format string, args ...any)
}

// CodeBrokenChain marks the entry logged when an edge is left without records.
const CodeBrokenChain = "BrokenChain"

// Log is a Sink owned by a single query. It is not safe for concurrent use.
type Log struct {
	entries []Entry
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a Log that also mirrors entries to logger, when non-nil.
func New(logger *slog.Logger) *Log {
	return &Log{logger: logger, now: time.Now}
}

func (l *Log) Add(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.entries = append(l.entries, Entry{
		Timestamp: l.now().UTC(),
		Level:     level,
		Message:   msg,
	})
	if l.logger != nil {
		l.logger.Log(context.Background(), slogLevel(level), msg)
	}
}

// AddCode appends an entry carrying a machine-readable code.
func (l *Log) AddCode(level Level, code, format string, args ...any) {
	l.Add(level, format, args...)
	l.entries[len(l.entries)-1].Code = code
}

func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

func slogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Add(Level, string, ...any) {}

func (Discard) AddCode(Level, string, string, ...any) {}
