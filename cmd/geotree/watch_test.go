package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/geotree/internal/logging"
)

func TestFileWatcher_RebuildsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hints.yaml")
	if err := os.WriteFile(path, []byte(sampleHints), 0600); err != nil {
		t.Fatal(err)
	}

	fw, err := newFileWatcher(path, logging.Discard())
	if err != nil {
		t.Fatalf("newFileWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- fw.Run(ctx, func() error {
			changed <- struct{}{}
			return nil
		})
	}()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(sampleHints+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild within 5 seconds of writing the hints file")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	_, err := newFileWatcher(filepath.Join(t.TempDir(), "missing", "hints.yaml"), logging.Discard())
	if err == nil {
		t.Error("expected error watching a missing directory")
	}
}
