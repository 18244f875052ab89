package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func readAuditEntries(t *testing.T, dir string) []AuditEntry {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("parsing audit entry %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	return entries
}

func TestAuditLogger_NilSafety(t *testing.T) {
	t.Run("nil logger Log is no-op", func(t *testing.T) {
		var logger *AuditLogger
		logger.Log(AuditEntry{Tool: "test"})
	})

	t.Run("nil logger Close is no-op", func(t *testing.T) {
		var logger *AuditLogger
		if err := logger.Close(); err != nil {
			t.Errorf("Close() on nil logger returned error: %v", err)
		}
	})
}

func TestAuditLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	defer logger.Close()

	logger.Log(AuditEntry{
		Timestamp:  time.Now(),
		Tool:       "geotree_build",
		DurationMs: 42,
		Status:     "success",
		Params:     map[string]string{"mode": "loose"},
	})
	logger.Log(AuditEntry{Tool: "geotree_list", Status: "error", Error: "boom"})

	entries := readAuditEntries(t, dir)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if e := entries[0]; e.Tool != "geotree_build" || e.DurationMs != 42 || e.Params["mode"] != "loose" {
		t.Errorf("entries[0] = %+v", e)
	}
	if e := entries[1]; e.Status != "error" || e.Error != "boom" {
		t.Errorf("entries[1] = %+v, want error entry", e)
	}
}

func TestAuditLogger_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	logger.Close()

	info, err := os.Stat(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("stat audit log: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 600", perm)
	}
}

func TestAuditLogger_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				logger.Log(AuditEntry{Tool: "geotree_build", Status: "success"})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(readAuditEntries(t, dir)); got != writers*perWriter {
		t.Errorf("got %d entries, want %d", got, writers*perWriter)
	}
}

func TestAuditLogger_NonFatalOnBadPath(t *testing.T) {
	// A regular file where the directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	if logger := NewAuditLogger(filepath.Join(blocker, "audit")); logger != nil {
		logger.Close()
		t.Error("expected nil logger for unusable directory")
	}
}

func TestSanitizeToolParams(t *testing.T) {
	t.Run("safe values are included", func(t *testing.T) {
		result := sanitizeToolParams(map[string]interface{}{
			"mode":       "loose",
			"format":     "dot",
			"save":       true,
			"zero_floor": true,
		})
		want := map[string]string{
			"mode": "loose", "format": "dot", "save": "true", "zero_floor": "true", "_param_count": "4",
		}
		for k, v := range want {
			if result[k] != v {
				t.Errorf("%s = %q, want %q", k, result[k], v)
			}
		}
	})

	t.Run("documents are redacted", func(t *testing.T) {
		result := sanitizeToolParams(map[string]interface{}{
			"hints":  "correlations: [{a: 1, b: 2, relation: parent, score: 1}]",
			"run_id": "abc123",
		})
		if result["hints"] != "(set)" {
			t.Errorf("hints = %q, want (set)", result["hints"])
		}
		if result["run_id"] != "(set)" {
			t.Errorf("run_id = %q, want (set)", result["run_id"])
		}
	})

	t.Run("unknown params are excluded", func(t *testing.T) {
		result := sanitizeToolParams(map[string]interface{}{"malicious_param": "x"})
		if _, ok := result["malicious_param"]; ok {
			t.Error("unknown param should not be included")
		}
		if result["_param_count"] != "1" {
			t.Errorf("_param_count = %q, want 1", result["_param_count"])
		}
	})

	t.Run("zero values are skipped", func(t *testing.T) {
		result := sanitizeToolParams(map[string]interface{}{"mode": "", "save": false, "hints": nil})
		if len(result) != 1 || result["_param_count"] != "0" {
			t.Errorf("result = %v, want only _param_count 0", result)
		}
	})

	t.Run("nil params returns nil", func(t *testing.T) {
		if result := sanitizeToolParams(nil); result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})
}

func TestAuditTool_Integration(t *testing.T) {
	server, auditDir := setupTestServer(t)
	if server.auditLogger == nil {
		t.Fatal("expected auditLogger to be initialized")
	}

	ctx := context.Background()
	if _, _, err := server.handleBuild(ctx, nil, BuildInput{Hints: sampleHints, Mode: "strict"}); err != nil {
		t.Fatalf("handleBuild failed: %v", err)
	}
	server.handleSnapshot(ctx, nil, SnapshotInput{RunID: "missing"})
	server.auditTool("geotree_custom", time.Now(), errors.New("custom failure"), nil)
	server.Close()

	entries := readAuditEntries(t, auditDir)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	build := entries[0]
	if build.Tool != "geotree_build" || build.Status != "success" {
		t.Errorf("build entry = %+v", build)
	}
	if build.Params["hints"] != "(set)" || build.Params["mode"] != "strict" {
		t.Errorf("build params = %v, want hints redacted and mode kept", build.Params)
	}

	snap := entries[1]
	if snap.Tool != "geotree_snapshot" || snap.Status != "error" || snap.Error == "" {
		t.Errorf("snapshot entry = %+v, want error status", snap)
	}

	if entries[2].Error != "custom failure" || entries[2].Params != nil {
		t.Errorf("custom entry = %+v", entries[2])
	}
}
