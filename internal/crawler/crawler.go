// Package crawler walks a Go module and extracts the source declarations of every file.
package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"

	"specgraph/internal/declaration"
	"specgraph/internal/extractor"
	"specgraph/internal/logging"
)

// ErrNoModule is returned when the crawled root has no go.mod with a module path.
var ErrNoModule = errors.New("no go.mod module path")

// DefaultIgnored are the doublestar patterns skipped when no patterns are configured.
var DefaultIgnored = []string{"**/.git", "**/vendor", "**/node_modules", "**/testdata"}

// FileEntry is the extraction result of one file, keyed by its content hash.
type FileEntry struct {
	Path  string              `json:"path"` // slash separated, relative to the root
	Hash  string              `json:"hash"`
	Types []*declaration.Type `json:"types"`
}

// Result is the outcome of one crawl.
type Result struct {
	Module string
	Files  []string // every crawled file, sorted
	Types  []*declaration.Type
	Parsed int // files extracted in this crawl
	Reused int // files served from the cache
	Failed int // files skipped because of read or parse errors
}

// Crawler scans a directory for source files.
type Crawler struct {
	extractor    *extractor.Extractor
	ignored      []string
	includeTests bool
	workers      int
	logger       *log.Logger

	mu    sync.Mutex
	cache map[string]*FileEntry
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithIgnored replaces the ignore patterns.
func WithIgnored(patterns []string) Option {
	return func(c *Crawler) { c.ignored = patterns }
}

// WithTests controls whether _test.go files are crawled. Specifications usually live there.
func WithTests(include bool) Option {
	return func(c *Crawler) { c.includeTests = include }
}

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Crawler) { c.logger = logging.OrDiscard(l) }
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor, opts ...Option) *Crawler {
	c := &Crawler{
		extractor:    ext,
		ignored:      DefaultIgnored,
		includeTests: true,
		workers:      runtime.GOMAXPROCS(0),
		logger:       logging.Discard(),
		cache:        make(map[string]*FileEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read implements declaration.SourceReader.
func (c *Crawler) Read(ctx context.Context, root string) ([]*declaration.Type, error) {
	res, err := c.ScanProject(ctx, root)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("crawl finished", "files", len(res.Files), "parsed", res.Parsed, "reused", res.Reused, "failed", res.Failed)
	return res.Types, nil
}

// ScanProject walks the root directory and extracts every Go file. Files whose content
// hash matches the cache are not parsed again.
func (c *Crawler) ScanProject(ctx context.Context, root string) (*Result, error) {
	module, err := ModulePath(root)
	if err != nil {
		return nil, err
	}

	files, err := c.collect(root)
	if err != nil {
		return nil, err
	}

	entries := make([]*FileEntry, len(files))
	reused := make([]bool, len(files))
	failed := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, hit, err := c.extract(root, module, rel)
			if err != nil {
				// the last good extraction stands in, so the file's declarations do not disappear
				entries[i] = c.cached(rel)
				failed[i] = true
				c.logger.Warn("skipping file", "file", rel, "cached", entries[i] != nil, "err", err)
				return nil
			}
			entries[i] = entry
			reused[i] = hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Module: module, Files: files}
	seen := make(map[string]bool, len(files))
	for i, entry := range entries {
		seen[files[i]] = true
		switch {
		case failed[i]:
			res.Failed++
		case reused[i]:
			res.Reused++
		default:
			res.Parsed++
		}
		if entry != nil {
			res.Types = append(res.Types, entry.Types...)
		}
	}

	c.mu.Lock()
	for p := range c.cache {
		if !seen[p] {
			delete(c.cache, p)
		}
	}
	c.mu.Unlock()

	return res, nil
}

func (c *Crawler) collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		// Skip ignored directories
		if c.isIgnored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			// nested modules are crawled on their own
			if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".go") {
			return nil
		}
		if !c.includeTests && strings.HasSuffix(d.Name(), "_test.go") {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}

func (c *Crawler) isIgnored(rel string) bool {
	for _, pattern := range c.ignored {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (c *Crawler) extract(root, module, rel string) (*FileEntry, bool, error) {
	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read file %s: %w", rel, err)
	}
	hash := HashContent(src)

	c.mu.Lock()
	cached, ok := c.cache[rel]
	c.mu.Unlock()
	if ok && cached.Hash == hash {
		return cached, true, nil
	}

	types, err := c.extractor.ExtractFromSource(rel, PackagePath(module, path.Dir(rel)), src)
	if err != nil {
		return nil, false, err
	}
	entry := &FileEntry{Path: rel, Hash: hash, Types: types}

	c.mu.Lock()
	c.cache[rel] = entry
	c.mu.Unlock()
	return entry, false, nil
}

func (c *Crawler) cached(rel string) *FileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache[rel]
}

// Cache returns the per-file cache, sorted by path.
func (c *Crawler) Cache() []*FileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*FileEntry, 0, len(c.cache))
	for _, e := range c.cache {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// Seed replaces the per-file cache, typically with entries loaded from a snapshot.
func (c *Crawler) Seed(entries []*FileEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*FileEntry, len(entries))
	for _, e := range entries {
		declaration.Relink(e.Types)
		c.cache[e.Path] = e
	}
}

// ModulePath reads the module path declared by root/go.mod.
func ModulePath(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoModule, err)
	}
	module := modfile.ModulePath(data)
	if module == "" {
		return "", fmt.Errorf("%w: %s", ErrNoModule, root)
	}
	return module, nil
}

// PackagePath joins the module path and a slash separated directory relative to the root.
func PackagePath(module, dir string) string {
	if dir == "." || dir == "" {
		return module
	}
	return module + "/" + dir
}

// HashContent is the cache key of a file's content.
func HashContent(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

func sortEntries(entries []*FileEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
}
