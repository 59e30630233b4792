package storage

import (
	"context"

	"specgraph/internal/cache"
	"specgraph/internal/crawler"
	"specgraph/internal/registry"
)

// Store persists the state of a project session between runs.
type Store interface {
	SnapshotStore
	Close() error
}

// SnapshotStore saves and restores everything a session needs to keep element identities
// stable across restarts.
type SnapshotStore interface {
	// SaveSnapshot replaces the stored state of the cache's project.
	SaveSnapshot(ctx context.Context, reg *registry.Registry, c *cache.ElementCache, files []*crawler.FileEntry) error

	// LoadSnapshot rebuilds the stored elements into reg, restores the cache entries and
	// returns the per-file extraction cache.
	LoadSnapshot(ctx context.Context, reg *registry.Registry, c *cache.ElementCache) ([]*crawler.FileEntry, error)
}
