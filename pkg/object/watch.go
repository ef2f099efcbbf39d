package object

import (
	"github.com/fsnotify/fsnotify"
)

// ACRWatcher watches a filesystem-backed store's root directory for
// out-of-band changes to ACR/ACL files (an operator editing them directly
// on disk) and invokes onChange so the PRP's golang-lru cache can be
// invalidated. Only meaningful for FilesystemStore; S3-backed storages
// have no equivalent out-of-band-write notification mechanism.
type ACRWatcher struct {
	watcher  *fsnotify.Watcher
	onChange func(path string)
	done     chan struct{}
}

// NewACRWatcher creates a watcher rooted at dir. Call Start to begin
// watching; Close releases the underlying inotify/kqueue handle.
func NewACRWatcher(dir string, onChange func(path string)) (*ACRWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &ACRWatcher{watcher: w, onChange: onChange, done: make(chan struct{})}, nil
}

// Start runs the watch loop in the background until Close is called.
func (a *ACRWatcher) Start() {
	go func() {
		for {
			select {
			case ev, ok := <-a.watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 && a.onChange != nil {
					a.onChange(ev.Name)
				}
			case _, ok := <-a.watcher.Errors:
				if !ok {
					return
				}
			case <-a.done:
				return
			}
		}
	}()
}

// Close stops the watch loop and releases resources.
func (a *ACRWatcher) Close() error {
	close(a.done)
	return a.watcher.Close()
}
