package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Store keeps the bearer token of the current session in a single file,
// the durable-storage analog of the browser's localStorage entry.
// While the file is absent every task operation stays disabled.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	token string

	events  chan struct{}
	watcher *watcher
}

func NewStore(path string, logger *zap.Logger) *Store {
	s := &Store{
		path:   path,
		logger: logger,
		events: make(chan struct{}, 1),
	}
	s.reload()
	return s
}

// Token returns the current bearer token. The second value reports
// whether a session exists at all.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Store) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return err
	}

	s.mu.Lock()
	changed := s.token != token
	s.token = token
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// Clear удаляет токен - происходит при logout
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	s.mu.Lock()
	changed := s.token != ""
	s.token = ""
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// Events signals token changes, including ones made by another process
// while the watcher is running. Capacity one; a pending signal is enough.
func (s *Store) Events() <-chan struct{} {
	return s.events
}

// reload reads the token file and reports whether the value changed.
func (s *Store) reload() bool {
	var token string
	data, err := os.ReadFile(s.path)
	if err == nil {
		token = strings.TrimSpace(string(data))
	} else if !os.IsNotExist(err) {
		s.logger.Warn("failed to read token file", zap.String("path", s.path), zap.Error(err))
	}

	s.mu.Lock()
	changed := s.token != token
	s.token = token
	s.mu.Unlock()
	return changed
}

func (s *Store) notify() {
	select {
	case s.events <- struct{}{}:
	default:
		// Уведомление уже ожидает обработки
	}
}
