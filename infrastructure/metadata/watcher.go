package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses editor save bursts into one refresh
const DefaultDebounce = 500 * time.Millisecond

// Refresher is the part of the graph service the watcher drives
type Refresher interface {
	CurrentVault() string
	RefreshCache(ctx context.Context) error
	InvalidateVault(ctx context.Context, vaultID string) (int, error)
}

// Watcher invalidates cached graphs when export files in the metadata
// directory change. Changes to the current vault trigger RefreshCache;
// other vaults are only invalidated.
type Watcher struct {
	dir       string
	refresher Refresher
	debounce  time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}
}

// NewWatcher creates a watcher over dir. Call Start to begin watching.
func NewWatcher(dir string, refresher Refresher, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:       dir,
		refresher: refresher,
		debounce:  DefaultDebounce,
		logger:    logger,
		pending:   make(map[string]*time.Timer),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start begins watching the metadata directory
func (w *Watcher) Start() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(w.dir); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to watch metadata directory %s: %w", w.dir, err)
	}
	w.watcher = fsWatcher

	go w.watchLoop()

	w.logger.Info("Watching metadata directory", zap.String("dir", w.dir))
	return nil
}

// Stop ends watching and cancels pending refreshes
func (w *Watcher) Stop() {
	if w.watcher == nil {
		return
	}
	select {
	case <-w.stopCh:
		return
	default:
		close(w.stopCh)
	}
	<-w.done

	w.mu.Lock()
	for vault, timer := range w.pending {
		timer.Stop()
		delete(w.pending, vault)
	}
	w.mu.Unlock()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			vaultID, ok := VaultIDFromFile(event.Name)
			if !ok {
				continue
			}
			w.logger.Debug("Metadata export changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			w.schedule(vaultID)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			w.logger.Info("Stopping metadata watcher")
			return
		}
	}
}

// schedule debounces invalidation per vault
func (w *Watcher) schedule(vaultID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[vaultID]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() { w.fire(vaultID, timer) })
	w.pending[vaultID] = timer
}

// fire runs when timer elapses. A newer timer scheduled for the same vault
// in the meantime keeps its pending entry so Stop can still cancel it.
func (w *Watcher) fire(vaultID string, timer *time.Timer) {
	w.mu.Lock()
	if w.pending[vaultID] == timer {
		delete(w.pending, vaultID)
	}
	w.mu.Unlock()
	w.invalidate(vaultID)
}

func (w *Watcher) invalidate(vaultID string) {
	ctx := context.Background()

	if vaultID == w.refresher.CurrentVault() {
		if err := w.refresher.RefreshCache(ctx); err != nil {
			w.logger.Error("Failed to refresh graph after metadata change",
				zap.String("vault", vaultID),
				zap.Error(err),
			)
			return
		}
		w.logger.Info("Refreshed graph after metadata change", zap.String("vault", vaultID))
		return
	}

	removed, err := w.refresher.InvalidateVault(ctx, vaultID)
	if err != nil {
		w.logger.Error("Failed to invalidate cached graphs",
			zap.String("vault", vaultID),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("Invalidated cached graphs after metadata change",
		zap.String("vault", vaultID),
		zap.Int("removed", removed),
	)
}
