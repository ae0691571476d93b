package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsVideo(t *testing.T) {
	cases := map[string]bool{
		"clip.mp4":      true,
		"clip.MOV":      true,
		"clip.webm":     true,
		"notes.txt":     false,
		"archive.tar":   false,
		"noextension":   false,
		"dir/movie.mkv": true,
	}
	for path, want := range cases {
		if got := isVideo(path); got != want {
			t.Errorf("isVideo(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcherDispatchesNewVideos(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var handled []string
	handler := func(ctx context.Context, path string) error {
		mu.Lock()
		handled = append(handled, filepath.Base(path))
		mu.Unlock()
		return nil
	}

	w, err := New(dir, handler, 2, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	if err := os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatalf("write text: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(handled)
		mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("handler was not invoked for new video")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 || handled[0] != "clip.mp4" {
		t.Fatalf("handled = %v, want [clip.mp4]", handled)
	}
}
