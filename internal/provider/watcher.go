package provider

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/guruthechosen/openclaw-harness/internal/rules"
)

// overlayDebounce coalesces editor write bursts into one reload.
const overlayDebounce = 250 * time.Millisecond

// WatchOverlay loads the local rules overlay and reloads it on change
// until ctx is done. A missing file is an empty overlay, not an error.
// A file that fails to parse is rejected whole and the last good overlay
// stays in force.
func (p *Provider) WatchOverlay(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	p.loadOverlay(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory, not the file: editors replace files by rename
	// and a file watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		target := filepath.Clean(path)

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(overlayDebounce, func() {
					p.loadOverlay(path)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("overlay watcher: %v", err)
			}
		}
	}()

	return nil
}

// loadOverlay reads and applies the overlay file. Parse failures leave
// the current overlay untouched.
func (p *Provider) loadOverlay(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			p.SetOverlay(nil)
			return
		}
		log.Warn("reading overlay %s: %v", path, err)
		return
	}

	overlay, err := rules.ParseOverlay(data)
	if err != nil {
		log.Warn("rejecting overlay %s: %v", path, err)
		return
	}
	p.SetOverlay(overlay)
}
