package schemaindex

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nlstn/odata-resolver/internal/edm"
)

// Cache builds one Index per model instance on first use and serves it to
// every later caller. Concurrent first requests for the same model share a
// single build. Models are used as map keys and must be comparable; the
// in-memory edm.EdmModel is.
type Cache struct {
	opts   []Option
	logger *slog.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	ids     map[edm.Model]string
	indexes map[edm.Model]*Index
	nextID  uint64
}

// NewCache returns an empty cache building indexes with opts.
func NewCache(logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		opts:    opts,
		logger:  logger,
		ids:     make(map[edm.Model]string),
		indexes: make(map[edm.Model]*Index),
	}
}

// Get returns the index of model, building it when absent.
func (c *Cache) Get(model edm.Model) *Index {
	c.mu.RLock()
	ix, ok := c.indexes[model]
	c.mu.RUnlock()
	if ok {
		return ix
	}

	key := c.keyFor(model)
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		existing, ok := c.indexes[model]
		c.mu.RUnlock()
		if ok {
			return existing, nil
		}

		start := time.Now()
		built := Build(model, c.opts...)
		stats := built.Stats()
		c.logger.Debug("schema index built",
			slog.String("model", key),
			slog.Int("types", stats.Types),
			slog.Int("operations", stats.Operations),
			slog.Int("terms", stats.Terms),
			slog.Int("navigation_sources", stats.NavigationSources),
			slog.Int("operation_imports", stats.OperationImports),
			slog.String("fingerprint", strconv.FormatUint(built.Fingerprint(), 16)),
			slog.Duration("duration", time.Since(start)),
		)

		c.mu.Lock()
		c.indexes[model] = built
		c.mu.Unlock()
		return built, nil
	})
	return v.(*Index)
}

// Invalidate drops the index of model so the next Get rebuilds it. Callers
// invalidate after replacing a model's content.
func (c *Cache) Invalidate(model edm.Model) {
	c.mu.Lock()
	delete(c.indexes, model)
	c.mu.Unlock()
}

// Len returns the number of cached indexes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.indexes)
}

func (c *Cache) keyFor(model edm.Model) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[model]; ok {
		return id
	}
	c.nextID++
	id := "model-" + strconv.FormatUint(c.nextID, 10)
	c.ids[model] = id
	return id
}
