package ignore

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/temirov/fileprompt/internal/utils"
)

const (
	watcherAddFailedMessage   = "watcher add failed"
	watcherErrorMessage       = "watcher error"
	patternFileChangedMessage = "pattern file changed"
	directoryMovedMessage     = "watched directory changed"
	configFileChangedMessage  = "configuration file changed"
)

// Invalidator drops cached filters for a workspace root.
type Invalidator interface {
	Invalidate(root string)
}

// Watcher invalidates a workspace's cached filter whenever a pattern file is
// created, written, removed or renamed anywhere below the workspace root.
// It also reports changes to registered configuration files.
type Watcher struct {
	root           string
	invalidator    Invalidator
	logger         *zap.Logger
	configPaths    map[string]struct{}
	onConfigChange func(path string)

	mutex     sync.Mutex
	started   bool
	fsWatcher *fsnotify.Watcher
	paths     map[string]struct{}
	events    chan struct{}
	done      chan struct{}
	finished  chan struct{}
}

// NewWatcher returns a stopped watcher for root.
func NewWatcher(root string, invalidator Invalidator, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		root:        filepath.Clean(root),
		invalidator: invalidator,
		logger:      logger,
		configPaths: make(map[string]struct{}),
	}
}

// WatchConfiguration registers configuration files whose changes are passed to onChange.
// It must be called before Start.
func (watcher *Watcher) WatchConfiguration(paths []string, onChange func(path string)) {
	for _, configPath := range paths {
		if configPath == "" {
			continue
		}
		watcher.configPaths[filepath.Clean(configPath)] = struct{}{}
	}
	watcher.onConfigChange = onChange
}

// Start registers every directory under root and begins processing events.
func (watcher *Watcher) Start() error {
	watcher.mutex.Lock()
	if watcher.started {
		watcher.mutex.Unlock()
		return nil
	}
	fsWatcher, createError := fsnotify.NewWatcher()
	if createError != nil {
		watcher.mutex.Unlock()
		return createError
	}
	watcher.started = true
	watcher.fsWatcher = fsWatcher
	watcher.paths = make(map[string]struct{})
	watcher.events = make(chan struct{}, 1)
	watcher.done = make(chan struct{})
	watcher.finished = make(chan struct{})
	watcher.mutex.Unlock()

	watcher.addWatchTree(watcher.root)
	for configPath := range watcher.configPaths {
		watcher.addWatchDir(filepath.Dir(configPath))
	}

	go watcher.run()
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (watcher *Watcher) Stop() {
	watcher.mutex.Lock()
	if !watcher.started {
		watcher.mutex.Unlock()
		return
	}
	watcher.started = false
	close(watcher.done)
	fsWatcher := watcher.fsWatcher
	finished := watcher.finished
	watcher.mutex.Unlock()

	_ = fsWatcher.Close()
	<-finished
}

// Events is signalled after every handled pattern or configuration change.
func (watcher *Watcher) Events() <-chan struct{} {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.events
}

func (watcher *Watcher) run() {
	defer close(watcher.finished)
	for {
		select {
		case <-watcher.done:
			return
		case event, ok := <-watcher.fsWatcher.Events:
			if !ok {
				return
			}
			watcher.handle(event)
		case watchError, ok := <-watcher.fsWatcher.Errors:
			if !ok {
				return
			}
			watcher.logger.Debug(watcherErrorMessage, zap.Error(watchError))
		}
	}
}

func (watcher *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	eventPath := filepath.Clean(event.Name)
	if event.Op&fsnotify.Create != 0 && watcher.maybeWatchNewDir(eventPath) {
		watcher.invalidateForDirectory(eventPath, event.Op)
		return
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && watcher.forgetWatchedTree(eventPath) {
		watcher.invalidateForDirectory(eventPath, event.Op)
		return
	}
	if _, isConfig := watcher.configPaths[eventPath]; isConfig {
		watcher.logger.Debug(configFileChangedMessage, zap.String("path", eventPath))
		if watcher.onConfigChange != nil {
			watcher.onConfigChange(eventPath)
		}
		watcher.signal()
		return
	}
	if !utils.IsPatternFileName(filepath.Base(eventPath)) {
		return
	}
	watcher.logger.Debug(patternFileChangedMessage, zap.String("path", eventPath), zap.String("op", event.Op.String()))
	watcher.invalidator.Invalidate(watcher.root)
	watcher.signal()
}

func (watcher *Watcher) invalidateForDirectory(directoryPath string, op fsnotify.Op) {
	watcher.logger.Debug(directoryMovedMessage, zap.String("path", directoryPath), zap.String("op", op.String()))
	watcher.invalidator.Invalidate(watcher.root)
	watcher.signal()
}

func (watcher *Watcher) signal() {
	select {
	case <-watcher.done:
		return
	default:
	}
	select {
	case watcher.events <- struct{}{}:
	default:
	}
}

// maybeWatchNewDir watches a directory created or moved below the root and
// reports whether its tree holds a pattern file.
func (watcher *Watcher) maybeWatchNewDir(candidatePath string) bool {
	if !isUnderRoot(candidatePath, watcher.root) {
		return false
	}
	info, statError := os.Lstat(candidatePath)
	if statError != nil || !info.IsDir() {
		return false
	}
	return watcher.addWatchTree(candidatePath)
}

// forgetWatchedTree drops directoryPath and every watched directory below it,
// reporting whether any was watched.
func (watcher *Watcher) forgetWatchedTree(directoryPath string) bool {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()

	forgotten := false
	for watchedPath := range watcher.paths {
		if watchedPath != directoryPath && !isUnderRoot(watchedPath, directoryPath) {
			continue
		}
		_ = watcher.fsWatcher.Remove(watchedPath)
		delete(watcher.paths, watchedPath)
		forgotten = true
	}
	return forgotten
}

func (watcher *Watcher) addWatchDir(directoryPath string) {
	info, statError := os.Stat(directoryPath)
	if statError != nil || !info.IsDir() {
		return
	}

	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()

	if _, watched := watcher.paths[directoryPath]; watched {
		return
	}
	if addError := watcher.fsWatcher.Add(directoryPath); addError != nil {
		watcher.logger.Debug(watcherAddFailedMessage, zap.String("path", directoryPath), zap.Error(addError))
		return
	}
	watcher.paths[directoryPath] = struct{}{}
}

// addWatchTree watches every directory below root and reports whether a
// pattern file was seen.
func (watcher *Watcher) addWatchTree(root string) bool {
	patternFileFound := false
	_ = filepath.WalkDir(root, func(currentPath string, entry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return nil
		}
		if !entry.IsDir() {
			if utils.IsPatternFileName(entry.Name()) {
				patternFileFound = true
			}
			return nil
		}
		if entry.Name() == utils.GitDirectoryName {
			return filepath.SkipDir
		}
		watcher.addWatchDir(currentPath)
		return nil
	})
	return patternFileFound
}

func isUnderRoot(candidatePath string, root string) bool {
	_, inside := utils.WorkspaceRelativePath(candidatePath, root)
	return inside
}
