package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docverify/internal/logfields"
)

// FileWatcher monitors input directories and calls onChange once per burst
// of file system events.
type FileWatcher struct {
	dirs         []string
	ignore       []string
	onChange     func()
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	changeChan   chan struct{}
	debounceTime time.Duration
	stopped      bool
}

// NewFileWatcher creates a watcher for dirs. Missing directories are skipped
// and nothing below an ignored directory is watched.
func NewFileWatcher(dirs, ignore []string, debounce time.Duration, onChange func()) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &FileWatcher{
		dirs:         dirs,
		ignore:       ignore,
		onChange:     onChange,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		changeChan:   make(chan struct{}, 1),
		debounceTime: debounce,
	}, nil
}

// Start adds the directory trees and begins monitoring.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	watched := 0
	for _, dir := range fw.dirs {
		n, err := fw.addTree(dir)
		if err != nil {
			return err
		}
		watched += n
	}
	slog.Info("Starting file watcher", slog.Int("directories", watched), logfields.Duration(fw.debounceTime))

	go fw.watchLoop(ctx)
	go fw.debounceLoop(ctx)
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.stopped {
		return nil
	}
	fw.stopped = true
	close(fw.stopChan)
	return fw.watcher.Close()
}

// addTree watches dir and every directory below it.
func (fw *FileWatcher) addTree(dir string) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		slog.Warn("Watch directory does not exist", logfields.Dir(dir))
		return 0, nil
	}
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if fw.ignored(path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		n++
		return nil
	})
	return n, err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
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
			if event.Op == fsnotify.Chmod || fw.ignored(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if _, err := fw.addTree(event.Name); err != nil {
						slog.Warn("Failed to watch new directory", logfields.Dir(event.Name), logfields.Error(err))
					}
				}
			}
			slog.Debug("Input change detected", logfields.File(event.Name), slog.String("op", event.Op.String()))
			fw.notify()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// debounceLoop fires onChange once events have been quiet for debounceTime.
func (fw *FileWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-fw.stopChan:
			stop()
			return
		case <-fw.changeChan:
			stop()
			timer = time.AfterFunc(fw.debounceTime, fw.onChange)
		}
	}
}

func (fw *FileWatcher) ignored(path string) bool {
	for _, dir := range fw.ignore {
		if within(dir, path) {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) notify() {
	select {
	case fw.changeChan <- struct{}{}:
	default:
	}
}
