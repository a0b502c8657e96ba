package pager

import (
	"sync"

	"github.com/linkstash/linkstash/internal/collection"
	"github.com/linkstash/linkstash/internal/logger"
)

// Registry hands out one Loader per owner, created lazily.
type Registry struct {
	src      Source
	cache    *collection.Cache
	pageSize int
	log      logger.Logger

	mu      sync.Mutex
	loaders map[string]*Loader
}

func NewRegistry(src Source, cache *collection.Cache, pageSize int, log logger.Logger) *Registry {
	return &Registry{
		src:      src,
		cache:    cache,
		pageSize: pageSize,
		log:      log,
		loaders:  make(map[string]*Loader),
	}
}

// For returns the owner's loader, creating it on first use.
func (r *Registry) For(owner string) *Loader {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loaders[owner]; ok {
		return l
	}
	l := NewLoader(r.src, r.cache, owner, r.pageSize, r.log)
	r.loaders[owner] = l
	return l
}
