package kaspa

import (
	"context"
	"time"

	"github.com/allegro/bigcache/v3"
)

// scoreCacheKey is fixed: every network shares one ChainClient and the
// virtual DAA score is global to the DAG, not per-address.
const scoreCacheKey = "virtual_daa_score"

// scoreCache memoizes the chain's virtual DAA score for a short window
// so fetches that land within it share one chain call for the score.
// bigcache's LifeWindow is process-wide, not per-key,
// which is exactly what this single-key use needs and what disqualified
// it from backing Cache (C1), whose contract is per-entry TTL.
type scoreCache struct {
	cache *bigcache.BigCache
}

// newScoreCache builds a memoizer whose single entry lives for window.
func newScoreCache(window time.Duration) (*scoreCache, error) {
	cfg := bigcache.DefaultConfig(window)
	cfg.Shards = 1
	cfg.CleanWindow = window
	cfg.MaxEntrySize = 64
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &scoreCache{cache: c}, nil
}

// get returns the memoized score, if it hasn't expired.
func (s *scoreCache) get() (string, bool) {
	v, err := s.cache.Get(scoreCacheKey)
	if err != nil {
		return "", false
	}
	return string(v), true
}

// set stores score, resetting the window.
func (s *scoreCache) set(score string) {
	_ = s.cache.Set(scoreCacheKey, []byte(score))
}
