package config

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads a configuration file when it changes and hands each
// successfully loaded result to a callback. Reload failures are logged
// and the previous configuration stays in effect.
type Watcher struct {
	path     string
	log      zerolog.Logger
	onChange func(*Config)

	fw      *fsnotify.Watcher
	closeCh chan struct{}
	once    sync.Once
	done    sync.WaitGroup
}

// NewWatcher watches path and calls onChange with each reloaded
// configuration. The callback runs on the watcher's goroutine.
func NewWatcher(path string, log zerolog.Logger, onChange func(*Config)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("config: nil onChange callback")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory; editors often replace the file on save.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		log:      log,
		onChange: onChange,
		fw:       fw,
		closeCh:  make(chan struct{}),
	}
	w.done.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.done.Done()
	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn().Str("path", w.path).Err(err).Msg("config reload failed")
				continue
			}
			w.onChange(cfg)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Close stops the watcher and waits for the reload loop to finish. Safe
// to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.fw.Close()
		w.done.Wait()
	})
	return err
}
