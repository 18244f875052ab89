package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/geotree/internal/pathutil"
)

// AuditEntry is one MCP tool invocation. It records metadata about the
// call, never the hint document itself.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends audit entries to <dir>/audit.jsonl. It is safe for
// concurrent use, and a nil AuditLogger is a no-op.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens the audit log in dir. If the file cannot be created a
// warning is printed to stderr and nil is returned.
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", pathutil.RedactPath(dir), err)
		return nil
	}

	path := filepath.Join(dir, "audit.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", pathutil.RedactPath(path), err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log appends entry as a single JSON line.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	_, _ = a.file.Write(data)
}

// Close closes the audit file.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// sanitizeToolParams keeps the parameters that are safe to log. Options are
// logged with their values; documents and run ids only as "(set)"; anything
// else is dropped. "_param_count" is always present.
func sanitizeToolParams(params map[string]interface{}) map[string]string {
	if params == nil {
		return nil
	}

	safeValueParams := map[string]bool{
		"mode":                      true,
		"format":                    true,
		"save":                      true,
		"reconcile_sibling_parents": true,
		"zero_floor":                true,
	}
	presenceOnlyParams := map[string]bool{
		"hints":  true,
		"run_id": true,
	}

	result := make(map[string]string)
	set := 0
	for key, val := range params {
		if isZero(val) {
			continue
		}
		set++
		if safeValueParams[key] {
			result[key] = fmt.Sprintf("%v", val)
		} else if presenceOnlyParams[key] {
			result[key] = "(set)"
		}
	}
	result["_param_count"] = fmt.Sprintf("%d", set)
	return result
}

func isZero(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	}
	return false
}

// auditTool logs a tool invocation that started at start and ended with err.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]interface{}) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     sanitizeToolParams(params),
	})
}
