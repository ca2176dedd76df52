package catalog

import (
	"context"
	"sync/atomic"

	"github.com/routesafe/bridgeguard/internal/core/domain"
)

// Store is a reloadable wrapper around MemoryRepository. Reads delegate to
// the current snapshot; Reload parses the CSV again and swaps the snapshot
// atomically, so in-flight requests keep the repository they started with.
type Store struct {
	path    string
	opts    Options
	current atomic.Pointer[MemoryRepository]
}

// NewStore loads the catalog from path and returns a Store serving it.
func NewStore(path string, opts Options) (*Store, error) {
	repo, err := LoadFile(path, opts)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, opts: opts}
	s.current.Store(repo)
	return s, nil
}

// Reload re-reads the CSV and swaps it in. On parse failure the previous
// snapshot keeps serving and the error is returned to the caller.
func (s *Store) Reload(ctx context.Context) (domain.CatalogStatus, error) {
	repo, err := LoadFile(s.path, s.opts)
	if err != nil {
		return domain.CatalogStatus{}, err
	}
	s.current.Store(repo)
	return repo.Status(ctx)
}

func (s *Store) FindWithin(ctx context.Context, bounds domain.Bounds) ([]domain.Bridge, error) {
	return s.current.Load().FindWithin(ctx, bounds)
}

func (s *Store) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.Bridge, error) {
	return s.current.Load().FindNearby(ctx, lat, lon, radiusMeters, limit)
}

func (s *Store) List(ctx context.Context) ([]domain.Bridge, error) {
	return s.current.Load().List(ctx)
}

func (s *Store) Status(ctx context.Context) (domain.CatalogStatus, error) {
	return s.current.Load().Status(ctx)
}

// Len returns the bridge count of the current snapshot.
func (s *Store) Len() int {
	return s.current.Load().Len()
}
