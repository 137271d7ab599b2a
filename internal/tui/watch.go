package tui

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// FileChangedMsg reports that the watched document was written.
type FileChangedMsg struct{ Path string }

// WatchErrorMsg reports a watcher failure.
type WatchErrorMsg struct{ Err error }

const watchDebounce = 300 * time.Millisecond

// Watch sends FileChangedMsg through send whenever path changes. Bursts of
// events within a short window are coalesced. The returned function stops
// the watcher.
func Watch(path string, send func(tea.Msg)) (stop func() error, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// editors often replace the file, so watch its directory
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	logger := slog.Default().With("component", "watch", "path", abs)

	var (
		mu    sync.Mutex
		timer *time.Timer
		done  = make(chan struct{})
	)
	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					logger.Debug("document changed")
					send(FileChangedMsg{Path: path})
				})
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", "err", err)
				send(WatchErrorMsg{Err: err})
			}
		}
	}()

	return func() error {
		err := w.Close()
		<-done
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		return err
	}, nil
}
