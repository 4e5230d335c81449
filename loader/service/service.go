package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumechat/types"
)

// Reloader is the part of the loader the watch service drives.
type Reloader interface {
	Reload(ctx context.Context) *types.DocumentCache
}

// Service watches the artifact file and reloads the document when it is
// created, rewritten, replaced or removed. Bursts of events within the settle time
// produce a single reload.
type Service struct {
	logger   *slog.Logger
	loader   Reloader
	path     string
	settle   time.Duration
	reloaded chan struct{}
}

func New(l Reloader, path string, settle time.Duration) *Service {
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	return &Service{
		logger:   slog.Default(),
		loader:   l,
		path:     filepath.Clean(path),
		settle:   settle,
		reloaded: make(chan struct{}, 1),
	}
}

// Reloaded receives a value after each reload triggered by the watcher.
func (s *Service) Reloaded() <-chan struct{} {
	return s.reloaded
}

// Run blocks until ctx is cancelled. The parent directory is watched so that
// editors replacing the file by rename are still noticed.
func (s *Service) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.logger.Info("watching document artifact", "path", s.path)

	var (
		mu    sync.Mutex
		timer *time.Timer
		wg    sync.WaitGroup
	)
	defer func() {
		mu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		mu.Unlock()
		wg.Wait()
		s.logger.Info("document watcher stopped")
	}()

	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		wg.Add(1)
		timer = time.AfterFunc(s.settle, func() {
			defer wg.Done()
			s.logger.Info("document artifact changed, reloading", "path", s.path)
			s.loader.Reload(ctx)
			select {
			case s.reloaded <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			schedule()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("document watcher error", "error", err)
		}
	}
}
