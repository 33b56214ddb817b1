package provider

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultReloadDelay is how long Watch waits for a burst of writes to settle.
const DefaultReloadDelay = 100 * time.Millisecond

// Watch reloads the schema file at path whenever it changes, until ctx is
// done. The parent directory is watched so that editors that replace the
// file on save are seen too. onReload, if set, is called after each reload
// attempt with its error.
func (p *Provider) Watch(ctx context.Context, version, path string, delay time.Duration, onReload func(error)) error {
	if path == "" {
		return fmt.Errorf("watch: no schema file configured")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	p.logger.Info("watching schema file", "path", abs)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(delay, func() {
				if ctx.Err() != nil {
					return
				}
				p.logger.Debug("schema file changed, reloading", "path", abs, "op", event.Op.String())
				err := p.Reload(version, abs)
				if onReload != nil {
					onReload(err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Error("watcher error", "error", err)
		}
	}
}
