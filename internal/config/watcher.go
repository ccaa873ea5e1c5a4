package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tavern/pkg/logger"
)

const debounceDelay = 100 * time.Millisecond

// Watcher reloads the configuration when the config file changes on disk
// and hands the fresh config to onChange. Used for live log-level changes
// during a running session.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)
	stopCh   chan struct{}
	stopOnce sync.Once
	debounce *time.Timer
	mu       sync.Mutex
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:  w,
		path:     expanded,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}, nil
}

// WatchFile creates a watcher for the config file at path and starts it.
// The returned watcher is live; callers only need to Stop it.
func WatchFile(path string, onChange func(*Config)) (*Watcher, error) {
	w, err := NewWatcher(path, onChange)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

// Start begins watching for file changes.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.path); err != nil {
		return err
	}

	go w.run()
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Editors rewrite via rename+create, so watch both.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.handleEvent()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("Config watcher error")
		}
	}
}

// handleEvent reloads after a short debounce; editors often emit several
// events per save.
func (w *Watcher) handleEvent() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}

	w.debounce = time.AfterFunc(debounceDelay, func() {
		cfg, err := Load(w.path)
		if err != nil {
			logger.Error().Err(err).Str("path", w.path).Msg("Config reload failed")
			return
		}
		logger.Debug().Str("path", w.path).Msg("Config reloaded")
		w.onChange(cfg)
	})
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)

		w.mu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()

		w.watcher.Close()
	})
}
