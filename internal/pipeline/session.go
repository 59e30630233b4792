package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"specgraph/internal/cache"
	"specgraph/internal/config"
	"specgraph/internal/crawler"
	"specgraph/internal/declaration"
	"specgraph/internal/element"
	"specgraph/internal/extractor"
	"specgraph/internal/index"
	"specgraph/internal/metadata"
	"specgraph/internal/registry"
	"specgraph/internal/storage"
)

// ErrUnknownSource is returned for a declaration source other than "source" or "packages".
var ErrUnknownSource = errors.New("unknown declaration source")

const (
	FromSource   = "source"
	FromPackages = "packages"
)

// Session is one project session: the registry, cache and crawler survive between passes,
// and the snapshot store keeps them across restarts.
type Session struct {
	root     string
	store    storage.SnapshotStore
	registry *registry.Registry
	cache    *cache.ElementCache
	crawler  *crawler.Crawler
	source   declaration.SourceReader
	packages declaration.MetadataReader
	indexer  *index.Indexer
	logger   *log.Logger
}

// OpenSession starts a session for the module at root and restores its last snapshot.
func OpenSession(ctx context.Context, root string, cfg *config.Config, store storage.SnapshotStore) (*Session, error) {
	logger := log.FromContext(ctx)

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	project, err := crawler.ModulePath(abs)
	if err != nil {
		return nil, err
	}

	ext, err := extractor.NewExtractor("go", cfg.DeclarationMarkers())
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	s := &Session{
		root:     abs,
		store:    store,
		registry: registry.New(),
		cache:    cache.Open(project),
		crawler:  crawler.NewCrawler(ext, append(cfg.CrawlerOptions(), crawler.WithLogger(logger))...),
		logger:   logger.With("project", project),
	}
	s.source = s.crawler
	s.packages = metadata.NewLoader(cfg.DeclarationMarkers(), cfg.Scan.Tests, s.logger)
	s.indexer = index.NewIndexer(s.cache, s.registry, cfg.IndexOptions(), s.logger)

	files, err := store.LoadSnapshot(ctx, s.registry, s.cache)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	s.crawler.Seed(files)
	s.logger.Debug("session opened", "session", s.cache.Session(), "elements", s.registry.Len(project), "files", len(files))

	return s, nil
}

func (s *Session) Project() string              { return s.cache.Project() }
func (s *Session) Root() string                 { return s.root }
func (s *Session) Registry() *registry.Registry { return s.registry }
func (s *Session) Cache() *cache.ElementCache   { return s.cache }

// Scan runs one pass over the declarations read from the given source.
func (s *Session) Scan(ctx context.Context, from string) (*index.Report, error) {
	switch from {
	case FromSource, "":
		decls, err := s.source.Read(ctx, s.root)
		if err != nil {
			return nil, fmt.Errorf("crawl failed: %w", err)
		}
		return s.indexer.Pass(ctx, decls, nil)

	case FromPackages:
		decls, err := s.packages.Read(ctx, s.root)
		if err != nil {
			return nil, fmt.Errorf("package load failed: %w", err)
		}
		return s.indexer.PassMetadata(ctx, decls)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, from)
}

// PruneInvalid drops Invalid elements and their subtrees from the registry and returns
// how many were removed. A declaration whose element was invalidated has already left the
// cache, so the cache needs no update.
func (s *Session) PruneInvalid() int {
	project := s.Project()
	n := 0
	for _, e := range s.registry.Elements(project) {
		if e.State() != element.Invalid || s.registry.ElementByID(project, e.ID()) == nil {
			continue
		}
		for _, d := range element.Flatten(e) {
			s.registry.Remove(project, d.ID())
			n++
		}
		element.Detach(e)
		s.registry.Remove(project, e.ID())
		n++
	}
	return n
}

// Save persists the session state.
func (s *Session) Save(ctx context.Context) error {
	return s.store.SaveSnapshot(ctx, s.registry, s.cache, s.crawler.Cache())
}

func (s *Session) Close() {
	s.cache.Close()
}
