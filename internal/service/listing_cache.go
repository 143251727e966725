package service

import (
	"context"
	"encoding/json"
	"sync"

	"newsflow/backend/internal/models"
	"newsflow/backend/pkg/cache"
	"newsflow/backend/pkg/logger"
)

const storiesCacheKey = "stories"

// listingGeneration orders cache fills against invalidations. A listing read
// before an invalidation must never be written after it.
type listingGeneration struct {
	mu  sync.Mutex
	gen uint64
}

// generations is shared by every service built on the same store
var generations sync.Map // cache.Store -> *listingGeneration

// listingCache holds the serialized story listing. Every write invalidates it;
// cache failures are logged and fall through to the database.
type listingCache struct {
	store cache.Store
	state *listingGeneration
	log   *logger.Logger
}

func newListingCache(store cache.Store, log *logger.Logger) *listingCache {
	l := &listingCache{store: store, log: log}
	if store != nil {
		state, _ := generations.LoadOrStore(store, &listingGeneration{})
		l.state = state.(*listingGeneration)
	}
	return l
}

// generation returns the token to hand to set after reading the database
func (l *listingCache) generation() uint64 {
	if l == nil || l.state == nil {
		return 0
	}
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	return l.state.gen
}

func (l *listingCache) get(ctx context.Context) ([]models.Story, bool) {
	if l == nil || l.store == nil {
		return nil, false
	}

	data, ok, err := l.store.Get(ctx, storiesCacheKey)
	if err != nil {
		l.log.LogError(err, "failed to read story listing from cache")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var stories []models.Story
	if err := json.Unmarshal(data, &stories); err != nil {
		l.log.LogError(err, "failed to decode cached story listing")
		return nil, false
	}
	return stories, true
}

// set stores stories unless an invalidation happened since gen was taken
func (l *listingCache) set(ctx context.Context, gen uint64, stories []models.Story) {
	if l == nil || l.store == nil {
		return
	}

	data, err := json.Marshal(stories)
	if err != nil {
		l.log.LogError(err, "failed to encode story listing")
		return
	}

	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	if l.state.gen != gen {
		l.log.Debug("skipping stale story listing", "generation", gen, "current", l.state.gen)
		return
	}
	if err := l.store.Set(ctx, storiesCacheKey, data); err != nil {
		l.log.LogError(err, "failed to write story listing to cache")
	}
}

func (l *listingCache) invalidate(ctx context.Context) {
	if l == nil || l.store == nil {
		return
	}

	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.gen++
	if err := l.store.Delete(ctx, storiesCacheKey); err != nil {
		l.log.LogError(err, "failed to invalidate story listing")
	}
}
