// Package logging provides leveled logging and decision auditing for geotree.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A DecisionLogger for structured JSONL edit audits (~/.geotree/decisions.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/geotree/internal/constants"
)

// LevelTrace is a custom slog level below Debug. The resolution pipeline
// logs every applied edit at this level.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a supported level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "info", "debug", "trace":
		return true
	}
	return false
}

// NewLogger creates a leveled text slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, handlerOptions(level)))
}

// NewJSONLogger is NewLogger with one JSON object per record, for callers
// whose stderr is consumed by a machine (the MCP server).
func NewJSONLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, handlerOptions(level)))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
}

// DecisionLogger appends structured decision events to a JSONL file.
// It is safe for concurrent use. A nil DecisionLogger is safe to use;
// all methods are no-ops on nil receiver.
type DecisionLogger struct {
	sink   *decisionSink
	fields map[string]any
}

// decisionSink is the file shared by a logger and everything derived from it with With.
type decisionSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewDecisionLogger creates a decision logger writing to dir/decisions.jsonl.
// At "info" level (the default), returns nil and no file is created.
// At "debug" or "trace" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, constants.DecisionLogFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &DecisionLogger{sink: &decisionSink{file: f}}
}

// With returns a logger sharing the same file that adds fields to every
// event. Event keys win over fields of the same name.
func (dl *DecisionLogger) With(fields map[string]any) *DecisionLogger {
	if dl == nil {
		return nil
	}
	merged := make(map[string]any, len(dl.fields)+len(fields))
	maps.Copy(merged, dl.fields)
	maps.Copy(merged, fields)
	return &DecisionLogger{sink: dl.sink, fields: merged}
}

// Log writes a decision event as a single JSONL line.
// A "time" field is added automatically. The caller's map is not mutated.
// Safe to call on nil receiver.
func (dl *DecisionLogger) Log(event map[string]any) {
	if dl == nil || dl.sink == nil {
		return
	}

	entry := make(map[string]any, len(dl.fields)+len(event)+1)
	maps.Copy(entry, dl.fields)
	maps.Copy(entry, event)
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	dl.sink.mu.Lock()
	defer dl.sink.mu.Unlock()
	if dl.sink.file == nil {
		return
	}
	_, _ = dl.sink.file.Write(data)
}

// Close closes the underlying file. Loggers derived with With stop
// writing too. Safe to call on nil receiver.
func (dl *DecisionLogger) Close() {
	if dl == nil || dl.sink == nil {
		return
	}

	dl.sink.mu.Lock()
	defer dl.sink.mu.Unlock()

	if dl.sink.file != nil {
		dl.sink.file.Close()
		dl.sink.file = nil
	}
}
