package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval is the quiet period after a file event before reloading.
// Editors often emit several events per save.
const debounceInterval = 100 * time.Millisecond

// Store holds the active lexicon and swaps it atomically on reload, so
// readers never see a partially loaded lexicon.
type Store struct {
	current atomic.Pointer[Lexicon]
	path    string
	logger  *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewStore creates a store for the lexicon at path. An empty path uses the
// built-in defaults and disables watching.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:   path,
		logger: slog.Default().With("component", "lexicon"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if path == "" {
		s.current.Store(Default())
		close(s.doneCh)
		return s, nil
	}

	lex, err := Load(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(lex)
	return s, nil
}

// Current returns the active lexicon.
func (s *Store) Current() *Lexicon {
	return s.current.Load()
}

// Watch starts hot reloading the lexicon file. It blocks until the context
// is cancelled or Close is called. A failed reload keeps the previous
// lexicon active.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating lexicon watcher: %w", err)
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watching lexicon file: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	defer close(s.doneCh)
	defer watcher.Close()

	s.logger.Info("lexicon watcher started", "path", s.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-s.stopCh:
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("lexicon watcher events channel closed")
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			s.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("lexicon watcher errors channel closed")
			}
			s.logger.Error("lexicon watcher error", "error", err)
		}
	}
}

// scheduleReload debounces rapid file events into a single reload.
func (s *Store) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(debounceInterval, s.reload)
}

// reload swaps in the lexicon from disk, keeping the old one on error.
func (s *Store) reload() {
	lex, err := Load(s.path)
	if err != nil {
		s.logger.Error("lexicon reload failed", "path", s.path, "error", err)
		return
	}

	s.current.Store(lex)
	s.logger.Info("lexicon reloaded",
		"path", s.path,
		"conversational", len(lex.Conversational),
		"technical", len(lex.Technical),
		"emergency", len(lex.Emergency),
	)
}

// Close stops the watcher and waits for Watch to return. Safe to call when
// Watch was never started.
func (s *Store) Close() {
	s.mu.Lock()
	select {
	case <-s.stopCh:
		s.mu.Unlock()
		return
	default:
	}
	close(s.stopCh)
	if s.timer != nil {
		s.timer.Stop()
	}
	started := s.watcher != nil
	s.mu.Unlock()

	if started {
		<-s.doneCh
	}
}
