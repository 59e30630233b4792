// Package watch re-runs scan passes when Go files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"specgraph/internal/logging"
)

const defaultDebounce = 300 * time.Millisecond

// DefaultPatterns select the files whose changes trigger a batch.
var DefaultPatterns = []string{"**/*.go", "**/go.mod"}

type Config struct {
	Root     string
	Patterns []string // doublestar patterns, relative to Root
	Ignore   []string
	Debounce time.Duration

	// OnChange receives the sorted, deduplicated paths of one batch, relative to Root.
	OnChange func(ctx context.Context, changed []string) error
	Logger   *log.Logger
}

// Watcher coalesces file system events under Root into debounced batches.
type Watcher struct {
	cfg    Config
	root   string
	fsw    *fsnotify.Watcher
	logger *log.Logger
}

// New registers every directory under cfg.Root that is not ignored.
func New(cfg Config) (*Watcher, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultPatterns
	}
	for _, pat := range append(append([]string(nil), cfg.Patterns...), cfg.Ignore...) {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid pattern %q", pat)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{cfg: cfg, root: root, fsw: fsw, logger: logging.OrDiscard(cfg.Logger)}
	if err := w.addDirectories(); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled and a running OnChange has returned. Batches never
// overlap: events arriving while OnChange runs are delivered in the next batch.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		batches = make(chan []string, 1)
	)

	fire := func() {
		mu.Lock()
		defer mu.Unlock()
		if len(pending) == 0 {
			return
		}
		select {
		case batches <- sortedKeys(pending):
			clear(pending)
		default:
			// a batch is still queued; retry once it has been taken
			timer.Reset(w.cfg.Debounce)
		}
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		close(done)
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case changed := <-batches:
				if w.cfg.OnChange == nil {
					continue
				}
				if err := w.cfg.OnChange(ctx, changed); err != nil {
					w.logger.Error("batch failed", "files", len(changed), "err", err)
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, err := filepath.Rel(w.root, evt.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name, rel)
			}
			if w.isIgnored(rel) || !w.matches(rel) {
				continue
			}
			w.logger.Debug("file changed", "path", rel, "op", evt.Op.String())

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.cfg.Debounce, fire)
			} else {
				timer.Reset(w.cfg.Debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) addDirectories() error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		if rel != "." && w.isIgnored(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
}

// maybeAddDir extends the watch to directories created after startup.
func (w *Watcher) maybeAddDir(path, rel string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.isIgnored(rel) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "err", err)
	}
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.cfg.Ignore, rel)
}

func (w *Watcher) matches(rel string) bool {
	return matchAny(w.cfg.Patterns, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
