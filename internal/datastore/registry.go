package datastore

import (
	"context"
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tphakala/lyricgraph/internal/conf"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/logger"
)

const defaultMaxOpenStores = 8

// Registry keeps the most recently used artist stores open. Evicted stores
// are closed.
type Registry struct {
	settings *conf.Settings
	opts     []Option

	mu     sync.Mutex
	stores *lru.Cache[string, Interface]

	// open creates and opens a store; replaced in tests.
	open func(artist string) (Interface, error)
}

// NewRegistry creates a registry holding up to graph.maxopenstores stores.
func NewRegistry(settings *conf.Settings, opts ...Option) (*Registry, error) {
	size := settings.Graph.MaxOpenStores
	if size < 1 {
		size = defaultMaxOpenStores
	}
	r := &Registry{settings: settings, opts: opts}
	cache, err := lru.NewWithEvict(size, func(artist string, store Interface) {
		if err := store.Close(); err != nil {
			GetLogger().Warn("failed to close evicted graph store",
				logger.String("artist", artist),
				logger.Error(err))
		}
	})
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("max_open_stores", size).
			Build()
	}
	r.stores = cache
	r.open = r.openStore
	return r, nil
}

// Get returns the open store of artist, opening it and ensuring its schema
// on first use.
func (r *Registry) Get(ctx context.Context, artist string) (Interface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores.Get(artist); ok {
		return store, nil
	}
	store, err := r.open(artist)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	r.stores.Add(artist, store)
	return store, nil
}

func (r *Registry) openStore(artist string) (Interface, error) {
	store := New(r.settings, artist, r.opts...)
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

// GraphExists reports whether the artist has an ingested graph without
// creating an empty SQLite file for unknown artists.
func (r *Registry) GraphExists(ctx context.Context, artist string) (bool, error) {
	if r.settings.Graph.Backend != conf.BackendMySQL {
		r.mu.Lock()
		_, cached := r.stores.Peek(artist)
		r.mu.Unlock()
		if !cached {
			if _, err := os.Stat(SQLitePath(r.settings.GraphDir(), artist)); err != nil {
				if os.IsNotExist(err) {
					return false, nil
				}
				return false, errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Artist(artist).
					Build()
			}
		}
	}
	store, err := r.Get(ctx, artist)
	if err != nil {
		return false, err
	}
	return store.HasArtist(ctx)
}

// Reset drops and recreates the artist's schema.
func (r *Registry) Reset(ctx context.Context, artist string) (Interface, error) {
	store, err := r.Get(ctx, artist)
	if err != nil {
		return nil, err
	}
	if err := store.Drop(ctx); err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes every open store.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores.Purge()
}
