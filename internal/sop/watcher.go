package sop

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchDir invalidates cached SOP bodies whenever a file in the enhancer's
// directory is written, so edits take effect without a restart.
func WatchDir(e *Enhancer, log *zap.Logger) (*fsnotify.Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(e.dir); err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					e.Invalidate(filepath.Base(ev.Name))
					log.Info("sop file reloaded", zap.String("file", ev.Name))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("sop watcher error", zap.Error(err))
			}
		}
	}()

	return w, nil
}
