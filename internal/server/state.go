package server

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/backlight/internal/color"
	"github.com/muurk/backlight/internal/daemon"
	"github.com/muurk/backlight/internal/logging"
)

const stateVersion = 1

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// stateFile is the on-disk form of the board list.
type stateFile struct {
	Version int          `yaml:"version"`
	Boards  []boardState `yaml:"boards"`
}

type boardState struct {
	Label string    `yaml:"label,omitempty"`
	Color color.RGB `yaml:"color"`
}

// StateStore persists boards to a YAML file.
type StateStore struct {
	path string

	mu          sync.Mutex
	lastWritten []byte
}

// NewStateStore returns a store for path. Nothing is read until Load.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the state file. ok is false when the file does not exist.
func (s *StateStore) Load() (boards []daemon.Board, ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read state file: %w", err)
	}
	boards, err = decodeState(data)
	if err != nil {
		return nil, false, err
	}
	return boards, true, nil
}

func decodeState(data []byte) ([]daemon.Board, error) {
	var state stateFile
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if state.Version != stateVersion {
		return nil, fmt.Errorf("unsupported state version: %d (expected %d)", state.Version, stateVersion)
	}
	if len(state.Boards) == 0 {
		return nil, fmt.Errorf("state file lists no boards")
	}

	boards := make([]daemon.Board, len(state.Boards))
	for i, b := range state.Boards {
		boards[i] = daemon.Board{Index: i, Label: b.Label, Color: b.Color}
	}
	return boards, nil
}

// Save writes boards atomically.
func (s *StateStore) Save(boards []daemon.Board) error {
	state := stateFile{Version: stateVersion, Boards: make([]boardState, len(boards))}
	for i, b := range boards {
		state.Boards[i] = boardState{Label: b.Label, Color: b.Color}
	}

	data, err := yaml.Marshal(&state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save state file: %w", err)
	}

	s.lastWritten = data
	return nil
}

// ownWrite reports whether data is exactly what this store last saved.
func (s *StateStore) ownWrite(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWritten != nil && bytes.Equal(data, s.lastWritten)
}

// StateWatcher reloads the state file when another process edits it.
type StateWatcher struct {
	store    *StateStore
	watcher  *fsnotify.Watcher
	onReload func([]daemon.Board)

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	stopCh  chan struct{}
}

// WatchState starts watching the store's file. onReload receives the parsed
// boards after every external change; the server's own saves are skipped.
func WatchState(store *StateStore, onReload func([]daemon.Board)) (*StateWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory: atomic saves replace the file's inode.
	dir := filepath.Dir(store.Path())
	if err := os.MkdirAll(dir, 0700); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &StateWatcher{
		store:    store,
		watcher:  watcher,
		onReload: onReload,
		stopCh:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *StateWatcher) run() {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("State file watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *StateWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *StateWatcher) reload() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	data, err := os.ReadFile(w.store.Path())
	if err != nil {
		// Removed or mid-rename; the next event retries.
		logging.Debug("State file not readable", zap.Error(err))
		return
	}
	if w.store.ownWrite(data) {
		return
	}

	boards, err := decodeState(data)
	if err != nil {
		logging.Warn("Ignoring invalid state file edit", zap.String("path", w.store.Path()), zap.Error(err))
		return
	}

	logging.Info("State file changed on disk, reloading", zap.String("path", w.store.Path()), zap.Int("boards", len(boards)))
	w.onReload(boards)
}

// Stop stops watching. It is safe to call more than once.
func (w *StateWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	return w.watcher.Close()
}
