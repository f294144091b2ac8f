package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig configures continuous corpus ingestion.
type WatchConfig struct {
	Root     string        // corpus root (label dirs underneath)
	Debounce time.Duration // coalesce rapid write/rename bursts
}

// StartWatcher emits SourceEntry values for images created or written
// under the corpus root after startup. New label directories are picked
// up as they appear. The channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan SourceEntry, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		logger.Error("watcher start failed: no root provided")
		return nil, nil, errors.New("no root provided")
	}

	evCh := make(chan SourceEntry, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	// Watch the root and every label directory under it.
	addErr := filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if addErr != nil {
		logger.Error("failed to add corpus directories", "root", cfg.Root, "error", addErr)
		_ = w.Close()
		return nil, nil, addErr
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if cerr := w.Close(); cerr != nil {
				logger.Warn("watcher close failed", "error", cerr)
			}
		}()

		var timer *time.Timer

		// pending and evCh are owned by this goroutine alone. The
		// debounce timer only signals flushCh; it never touches the
		// map or sends entries itself.
		pending := map[string]struct{}{}
		flushCh := make(chan struct{}, 1)

		sendPending := func() {
			for p := range pending {
				delete(pending, p)
				entry, ok := EntryFor(p)
				if !ok {
					continue
				}
				// Deliver every image; block rather than drop when
				// the consumer lags behind a burst.
				select {
				case evCh <- entry:
				case <-ctx.Done():
					return
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-flushCh:
				sendPending()
			case e := <-w.Events:
				if e.Op&fsnotify.Create == fsnotify.Create {
					// A created directory may be a new label folder.
					if err := w.Add(e.Name); err != nil {
						// non-dirs fail here; that is expected
						logger.Debug("watch add skipped", "path", e.Name, "error", err)
					}
				}
				if (e.Op & (fsnotify.Create | fsnotify.Write | fsnotify.Rename)) != 0 {
					pending[e.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer != nil {
							timer.Stop()
						}
						timer = time.AfterFunc(cfg.Debounce, func() {
							select {
							case flushCh <- struct{}{}:
							default:
							}
						})
					} else {
						sendPending()
					}
				}
			case err := <-w.Errors:
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
