// Package watcher provides the watch-folder processing mode: videos dropped
// into an input directory are handed to the pipeline as they appear.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler processes one newly arrived video file.
type Handler func(ctx context.Context, videoPath string) error

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
}

// settleDelay gives the OS time to finish writing a file after the create
// event fires.
const settleDelay = 500 * time.Millisecond

type Watcher struct {
	inputDir string
	handler  Handler
	fs       *fsnotify.Watcher
	sem      chan struct{}
	wg       sync.WaitGroup
	logger   *slog.Logger
}

func New(inputDir string, handler Handler, maxConcurrent int, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fs.Add(inputDir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", inputDir, err)
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Watcher{
		inputDir: inputDir,
		handler:  handler,
		fs:       fs,
		sem:      make(chan struct{}, maxConcurrent),
		logger:   logger,
	}, nil
}

// Start blocks, dispatching each new video to the handler, until ctx is
// cancelled. In-flight handlers are waited for before returning.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("watching for videos", "dir", w.inputDir)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("waiting for in-flight processing")
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) || !isVideo(event.Name) {
				continue
			}

			w.logger.Info("new video detected", "path", event.Name)
			time.Sleep(settleDelay)

			select {
			case w.sem <- struct{}{}:
				w.wg.Add(1)
				go func(path string) {
					defer w.wg.Done()
					defer func() { <-w.sem }()
					if err := w.handler(ctx, path); err != nil {
						w.logger.Error("failed to process video", "path", path, "error", err)
					}
				}(event.Name)
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) Stop() error {
	return w.fs.Close()
}

func isVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}
