// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// Watcher reloads the configuration file when it changes on disk and
// publishes the new Settings snapshot.
type Watcher struct {
	path     string
	debounce time.Duration
	log      logrus.FieldLogger
	watcher  *fsnotify.Watcher
	changes  chan Settings

	mu    sync.Mutex
	timer *time.Timer

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatcher creates a watcher for the config file at path.
// Editors often replace files by rename, so the parent directory is watched
// and events are filtered by file name.
func NewWatcher(path string, debounce time.Duration, log logrus.FieldLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		log:      log.WithField("component", "config-watcher"),
		watcher:  fw,
		changes:  make(chan Settings, 1),
		done:     make(chan struct{}),
	}, nil
}

// Changes returns the channel that receives a snapshot after each successful reload.
// Only the newest snapshot is kept if the reader falls behind.
func (w *Watcher) Changes() <-chan Settings {
	return w.changes
}

// Watch starts watching until ctx is cancelled or Close is called.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents(ctx)
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

// processEvents processes file system events
func (w *Watcher) processEvents(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("panic", r).Error("config watcher stopped")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config watcher error")
		}
	}
}

// schedule debounces bursts of writes into a single reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}

	cfg, err := LoadFromPath(w.path)
	if err != nil {
		w.log.WithError(err).Warn("ignoring config change")
		return
	}
	w.log.Info("configuration reloaded")

	settings := cfg.Settings()
	// Drop a stale unread snapshot so the newest one wins.
	select {
	case <-w.changes:
	default:
	}
	select {
	case w.changes <- settings:
	default:
	}
}

// Shutdown is Close, for containers that stop services on exit.
func (w *Watcher) Shutdown() error {
	return w.Close()
}
