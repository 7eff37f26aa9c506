package watch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFile_FiresAfterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte("initial\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 1)
	stop := errors.New("stop")
	done := make(chan error, 1)
	go func() {
		done <- File(path, 20*time.Millisecond, func() error {
			fired <- struct{}{}
			return stop
		})
	}()

	// Give the watcher a moment to register, then touch the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("initial\nmore\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("callback did not fire after write")
	}

	select {
	case err := <-done:
		if !errors.Is(err, stop) {
			t.Errorf("File returned %v, want callback error", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("File did not return after callback error")
	}
}

func TestFile_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	if err := os.WriteFile(path, []byte("initial\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 1)
	go func() {
		File(path, 20*time.Millisecond, func() error {
			fired <- struct{}{}
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.log"), []byte("noise\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
		t.Error("callback fired for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFile_MissingDir(t *testing.T) {
	err := File(filepath.Join(t.TempDir(), "nodir", "app.log"), time.Millisecond, func() error { return nil })
	if err == nil {
		t.Error("File should fail when the parent directory does not exist")
	}
}
