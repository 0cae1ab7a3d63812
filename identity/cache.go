package identity

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes Resolver answers keyed by ID and by name.
//
// Entries are never evicted. Failed lookups are cached as misses so a
// missing account is only resolved once. Concurrent lookups of the same key
// are deduplicated. A Cache is safe for concurrent use and may be shared by
// several engines.
type Cache struct {
	resolver Resolver
	logger   *slog.Logger

	mu     sync.RWMutex
	users  map[int]result[string]
	groups map[int]result[string]
	uids   map[string]result[int]
	gids   map[string]result[int]

	lookups singleflight.Group // zero value is valid
}

type result[V any] struct {
	value V
	ok    bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithResolver sets the Resolver consulted on cache misses.
// The default is System().
func WithResolver(r Resolver) Option {
	return func(c *Cache) {
		c.resolver = r
	}
}

// WithLogger sets the logger used to report failed lookups.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache returns an empty Cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		users:  make(map[int]result[string]),
		groups: make(map[int]result[string]),
		uids:   make(map[string]result[int]),
		gids:   make(map[string]result[int]),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = System()
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// UserName returns the name for uid, or "" if it cannot be resolved.
func (c *Cache) UserName(uid int) string {
	name, _ := lookup(c, c.users, "uid", uid, c.resolver.UserName)
	return name
}

// GroupName returns the name for gid, or "" if it cannot be resolved.
func (c *Cache) GroupName(gid int) string {
	name, _ := lookup(c, c.groups, "gid", gid, c.resolver.GroupName)
	return name
}

// UserID returns the ID of the named user. ok is false if name is empty or unknown.
func (c *Cache) UserID(name string) (id int, ok bool) {
	if name == "" {
		return 0, false
	}
	return lookup(c, c.uids, "user", name, c.resolver.UserID)
}

// GroupID returns the ID of the named group. ok is false if name is empty or unknown.
func (c *Cache) GroupID(name string) (id int, ok bool) {
	if name == "" {
		return 0, false
	}
	return lookup(c, c.gids, "group", name, c.resolver.GroupID)
}

func lookup[K comparable, V any](c *Cache, m map[K]result[V], kind string, key K, resolve func(K) (V, error)) (V, bool) {
	c.mu.RLock()
	r, hit := m[key]
	c.mu.RUnlock()
	if hit {
		return r.value, r.ok
	}

	v, _, _ := c.lookups.Do(fmt.Sprintf("%s:%v", kind, key), func() (any, error) {
		// Another caller may have filled the entry between our check and Do.
		c.mu.RLock()
		r, hit := m[key]
		c.mu.RUnlock()
		if hit {
			return r, nil
		}

		value, err := resolve(key)
		r = result[V]{value: value, ok: err == nil}
		if err != nil {
			c.log().Debug("identity lookup failed", "kind", kind, "key", key, "error", err)
		}

		c.mu.Lock()
		m[key] = r
		c.mu.Unlock()
		return r, nil
	})
	r = v.(result[V]) //nolint:errcheck,forcetypeassert // Do only returns result[V]
	return r.value, r.ok
}
