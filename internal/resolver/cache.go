package resolver

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached remembers found addresses in a bounded LRU. Storage addresses are
// derived deterministically from the user, so a found result does not go
// stale; NotFound results are never cached.
type Cached struct {
	inner AddressResolver
	cache *lru.Cache[string, Result]
}

// NewCached wraps inner with an LRU of the given size. A size of zero or less
// returns inner unchanged.
func NewCached(inner AddressResolver, size int) (AddressResolver, error) {
	if size <= 0 {
		return inner, nil
	}
	c, err := lru.New[string, Result](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: c}, nil
}

// Resolve returns the cached result for userID or delegates to the wrapped resolver.
func (c *Cached) Resolve(ctx context.Context, userID string) Result {
	if res, ok := c.cache.Get(userID); ok {
		return res
	}
	res := c.inner.Resolve(ctx, userID)
	if res.Found() {
		c.cache.Add(userID, res)
	}
	return res
}

// Len returns the number of cached users.
func (c *Cached) Len() int {
	return c.cache.Len()
}
