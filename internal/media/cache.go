package media

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedProber memoizes another Prober. Entries are keyed by path, size and
// modification time, so a rewritten file is probed again.
type CachedProber struct {
	next  Prober
	cache *cache.Cache
}

// Ensure CachedProber implements Prober.
var _ Prober = (*CachedProber)(nil)

// NewCachedProber wraps next with a cache whose entries expire after ttl,
// which must be positive.
func NewCachedProber(next Prober, ttl time.Duration) *CachedProber {
	return &CachedProber{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Probe implements Prober.
func (p *CachedProber) Probe(ctx context.Context, path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat source: %w", err)
	}
	key := fmt.Sprintf("%s|%d|%d", path, st.Size(), st.ModTime().UnixNano())

	if v, ok := p.cache.Get(key); ok {
		return v.(Info), nil
	}

	info, err := p.next.Probe(ctx, path)
	if err != nil {
		return Info{}, err
	}
	p.cache.Set(key, info, cache.DefaultExpiration)
	return info, nil
}

// Len returns the number of cached entries, including expired ones not yet
// evicted.
func (p *CachedProber) Len() int {
	return p.cache.ItemCount()
}
