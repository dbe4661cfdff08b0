package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadedEvent reports one watcher-triggered reload.
type ReloadedEvent struct {
	Timestamp  time.Time
	RoleCount  int
	GroupCount int
	Error      error
}

// FileWatcher monitors a snapshot directory and replaces the store's
// snapshot when dump files change. Bursts of file events are debounced into
// one reload.
type FileWatcher struct {
	watcher         *fsnotify.Watcher
	path            string
	loader          *Loader
	store           *Store
	logger          *zap.Logger
	debounceTimeout time.Duration
	debounceTimer   *time.Timer
	eventChan       chan ReloadedEvent
	stopChan        chan struct{}
	mu              sync.Mutex
	isWatching      bool
}

// NewFileWatcher creates a watcher for a snapshot directory.
func NewFileWatcher(path string, store *Store, loader *Loader, logger *zap.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:         watcher,
		path:            path,
		loader:          loader,
		store:           store,
		logger:          logger,
		debounceTimeout: 500 * time.Millisecond,
		eventChan:       make(chan ReloadedEvent, 10),
		stopChan:        make(chan struct{}),
	}, nil
}

// Watch starts watching the snapshot directory.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.mu.Lock()
	if fw.isWatching {
		fw.mu.Unlock()
		return fmt.Errorf("watcher is already running")
	}
	fw.isWatching = true
	fw.mu.Unlock()

	if err := fw.watcher.Add(fw.path); err != nil {
		fw.mu.Lock()
		fw.isWatching = false
		fw.mu.Unlock()
		return fmt.Errorf("failed to add path to watcher: %w", err)
	}

	fw.logger.Info("Starting snapshot watcher",
		zap.String("path", fw.path),
		zap.Duration("debounce", fw.debounceTimeout),
	)

	go fw.watchLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if !fw.isWatching {
		return nil
	}
	close(fw.stopChan)
	return fw.watcher.Close()
}

// EventChan delivers reload events to interested callers.
func (fw *FileWatcher) EventChan() <-chan ReloadedEvent {
	return fw.eventChan
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	defer func() {
		fw.mu.Lock()
		fw.isWatching = false
		fw.mu.Unlock()
		fw.logger.Info("Snapshot watcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopChan:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if fw.shouldProcessEvent(event) {
				fw.handleEvent(event)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

// shouldProcessEvent limits reloads to snapshot dump files.
func (fw *FileWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	ext := filepath.Ext(event.Name)
	return ext == ".yaml" || ext == ".yml" || ext == ".json"
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.logger.Debug("Snapshot file change detected",
		zap.String("file", event.Name),
		zap.String("op", event.Op.String()),
	)

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceTimeout, fw.performReload)
}

func (fw *FileWatcher) performReload() {
	fw.logger.Info("Reloading snapshot from disk", zap.String("path", fw.path))

	snap, err := fw.loader.LoadFromDirectory(fw.path)
	if err != nil {
		fw.logger.Error("Failed to reload snapshot",
			zap.String("path", fw.path),
			zap.Error(err),
		)
		fw.emit(ReloadedEvent{Timestamp: time.Now(), Error: err})
		return
	}

	fw.store.Replace(snap)
	fw.logger.Info("Snapshot reloaded",
		zap.Int("roles", len(snap.Roles)),
		zap.Int("groups", len(snap.Groups)),
	)
	fw.emit(ReloadedEvent{
		Timestamp:  time.Now(),
		RoleCount:  len(snap.Roles),
		GroupCount: len(snap.Groups),
	})
}

func (fw *FileWatcher) emit(event ReloadedEvent) {
	select {
	case fw.eventChan <- event:
	default:
	}
}
