package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 300 * time.Millisecond

// watcher monitors the token file so a login or logout performed by another
// process (the auth flow runs outside this client) is picked up live.
type watcher struct {
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
}

// StartWatcher begins watching the token file. The parent directory is
// watched because the file itself may not exist yet.
func (s *Store) StartWatcher(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return fmt.Errorf("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	wctx, cancel := context.WithCancel(ctx)
	s.watcher = &watcher{fsw: fsw, cancel: cancel}

	go s.processEvents(wctx, fsw)
	return nil
}

func (s *Store) processEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				if s.reload() {
					s.notify()
				}
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			s.logger.Warn("token watcher error", zap.Error(err))
		}
	}
}

// StopWatcher stops the watcher if it is running.
func (s *Store) StopWatcher() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		return nil
	}
	s.watcher.cancel()
	err := s.watcher.fsw.Close()
	s.watcher = nil
	return err
}
