// Package watcher auto-ingests form files dropped into an inbox directory.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultDebounce delays ingestion after the last write event so files still
// being copied in are picked up whole.
const defaultDebounce = 400 * time.Millisecond

// Inbox watches a single directory and invokes onIngest for each file that
// appears or changes. Files are matched by extension.
type Inbox struct {
	dir        string
	extensions []string
	onIngest   func(path string)
	debounce   time.Duration
	logger     *zap.Logger

	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	started     bool
	done        chan struct{}
	stopOnce    sync.Once
}

// NewInbox creates an inbox watcher. extensions filter which files trigger
// onIngest (empty matches all); logger may be nil.
func NewInbox(dir string, extensions []string, onIngest func(path string), logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{
		dir:         dir,
		extensions:  extensions,
		onIngest:    onIngest,
		debounce:    defaultDebounce,
		logger:      logger,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
}

// Start begins watching. It returns once the watch is registered; events are
// handled on a background goroutine until ctx is cancelled or Stop is called.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.started {
		in.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		in.mu.Unlock()
		return err
	}
	if err := watcher.Add(in.dir); err != nil {
		_ = watcher.Close()
		in.mu.Unlock()
		return err
	}
	in.watcher = watcher
	in.started = true
	in.mu.Unlock()

	in.logger.Info("inbox watching", zap.String("dir", in.dir), zap.Strings("extensions", in.extensions))
	go in.run(ctx, watcher)
	return nil
}

// SyncExisting ingests files already present in the inbox directory.
func (in *Inbox) SyncExisting() {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.logger.Warn("inbox sync failed", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(in.dir, entry.Name())
		if in.matchExtension(path) {
			in.onIngest(path)
		}
	}
}

// Stop stops watching and cancels pending debounced ingests.
func (in *Inbox) Stop() {
	in.stopOnce.Do(func() {
		close(in.done)
		in.mu.Lock()
		defer in.mu.Unlock()
		for path, timer := range in.debounceMap {
			timer.Stop()
			delete(in.debounceMap, path)
		}
		if in.watcher != nil {
			_ = in.watcher.Close()
			in.watcher = nil
		}
		in.started = false
	})
}

func (in *Inbox) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			in.Stop()
			return
		case <-in.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			in.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				in.logger.Debug("inbox watcher error", zap.Error(err))
			}
		}
	}
}

func (in *Inbox) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	path := ev.Name
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	if !in.matchExtension(path) {
		return
	}
	in.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))
	in.debounceIngest(path)
}

func (in *Inbox) debounceIngest(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if timer, ok := in.debounceMap[path]; ok {
		timer.Stop()
	}
	in.debounceMap[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.debounceMap, path)
		in.mu.Unlock()
		in.onIngest(path)
	})
}

func (in *Inbox) matchExtension(path string) bool {
	if len(in.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range in.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
