package kaspa

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kaspa402/utxocore/internal/logger"
)

// fetchRetryDelays is the fixed backoff schedule for the UTXO-list
// endpoint: three attempts, doubling from one second.
var fetchRetryDelays = []time.Duration{time.Second, 2 * time.Second}

// Fetcher (C2) retrieves and enriches an address's UTXO set, coalescing
// concurrent requests for the same (address, network) into one
// in-flight call and caching the result in Cache.
type Fetcher struct {
	client     *ChainClient
	cache      *Cache
	scoreCache *scoreCache
	group      singleflight.Group
	minAge     int64
	maxMass    uint32
	metrics    *Metrics
}

// SetMetrics attaches m so subsequent fetches report cache hits/misses,
// cache size, and retry counts to it. Metrics are optional; a Fetcher
// with none attached behaves identically, just silently.
func (f *Fetcher) SetMetrics(metrics *Metrics) {
	f.metrics = metrics
}

// NewFetcher wires a ChainClient, a Cache, and a score memoizer
// together. minUTXOAgeBlocks sets the freshness threshold used by
// enrichment; maxMassBytes is stored on the Fetcher but enrichment does
// not read it.
func NewFetcher(client *ChainClient, cache *Cache, minUTXOAgeBlocks int64, maxMassBytes uint32) (*Fetcher, error) {
	sc, err := newScoreCache(2 * time.Second)
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		client:     client,
		cache:      cache,
		scoreCache: sc,
		minAge:     minUTXOAgeBlocks,
		maxMass:    maxMassBytes,
	}, nil
}

// Fetch returns the enriched UTXO set for (address, net). A cached,
// unexpired entry is served directly unless forceRefresh is set.
// Concurrent calls for the same key while a fetch is in flight share
// its result rather than issuing redundant requests.
func (f *Fetcher) Fetch(ctx context.Context, address string, net Network, forceRefresh bool) ([]EnrichedUTXO, error) {
	if !forceRefresh {
		cached, ok := f.cache.Get(address, net)
		if f.metrics != nil {
			f.metrics.ObserveCacheLookup(ok)
		}
		if ok {
			return cached, nil
		}
	}

	sfKey := key(address, net)
	v, err, shared := f.group.Do(sfKey, func() (interface{}, error) {
		return f.fetchAndEnrich(ctx, address, net)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("fetch coalesced with an in-flight request", zap.String("key", sfKey))
	}
	return v.([]EnrichedUTXO), nil
}

// fetchAndEnrich performs the actual network round trip: a retried
// fetch of the raw UTXO list, a best-effort (un-retried) fetch of the
// virtual DAA score, and enrichment of every well-formed raw entry.
func (f *Fetcher) fetchAndEnrich(ctx context.Context, address string, net Network) ([]EnrichedUTXO, error) {
	raw, err := f.fetchWithRetry(ctx, address, net)
	if err != nil {
		return nil, err
	}

	virtualScore := f.currentVirtualScore(ctx)

	enriched := f.Enrich(raw, virtualScore)
	f.cache.Set(address, net, enriched)
	if f.metrics != nil {
		f.metrics.SetCacheSize(f.cache.Size())
	}
	return enriched, nil
}

// fetchWithRetry calls the chain client up to len(fetchRetryDelays)+1
// times, sleeping the configured backoff between attempts.
func (f *Fetcher) fetchWithRetry(ctx context.Context, address string, net Network) ([]RawUTXO, error) {
	attempts := len(fetchRetryDelays) + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if f.metrics != nil {
				f.metrics.IncFetchRetry()
			}
			select {
			case <-time.After(fetchRetryDelays[attempt-1]):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, err := f.client.FetchUTXOs(ctx, address)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		logger.Warn("utxo fetch attempt failed",
			zap.String("address", address),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return nil, &FetchError{Address: address, Network: net, Attempts: attempts, Cause: lastErr}
}

// currentVirtualScore serves the score memoizer first, falling back to
// a single un-retried chain call, and finally to "0" if that also
// fails — a stale or missing score degrades maturity estimates, it
// never blocks a payment.
func (f *Fetcher) currentVirtualScore(ctx context.Context) string {
	if cached, ok := f.scoreCache.get(); ok {
		return cached
	}

	score, err := f.client.FetchVirtualDAAScore(ctx)
	if err != nil {
		logger.Warn("virtual daa score fetch failed, degrading to 0", zap.Error(err))
		return "0"
	}

	f.scoreCache.set(score)
	return score
}

// Enrich attaches maturity and mass metadata to every raw UTXO that has
// a transaction id and whose amount and block DAA score parse as valid
// integers, dropping any that don't with a warning log.
func (f *Fetcher) Enrich(raw []RawUTXO, virtualScoreStr string) []EnrichedUTXO {
	virtualScore, ok := new(big.Int).SetString(virtualScoreStr, 10)
	if !ok {
		virtualScore = big.NewInt(0)
	}

	enriched := make([]EnrichedUTXO, 0, len(raw))
	for _, r := range raw {
		// index has no "missing" state once JSON-decoded into a uint32
		// (an absent field and an explicit 0 are indistinguishable), so
		// only transaction_id is checked for presence here.
		if r.Outpoint.TransactionID == "" {
			logger.Warn("dropping utxo with missing transaction id", zap.Uint32("index", r.Outpoint.Index))
			continue
		}

		if _, ok := new(big.Int).SetString(r.UTXOEntry.Amount, 10); !ok {
			logger.Warn("dropping utxo with malformed amount", zap.String("outpoint", r.Outpoint.Key()))
			continue
		}

		blockScore, ok := new(big.Int).SetString(r.UTXOEntry.BlockDAAScore, 10)
		if !ok {
			logger.Warn("dropping utxo with malformed block daa score", zap.String("outpoint", r.Outpoint.Key()))
			continue
		}

		age := new(big.Int).Sub(virtualScore, blockScore).Int64()
		if age < 0 {
			age = 0
		}

		enriched = append(enriched, EnrichedUTXO{
			RawUTXO: r,
			Metadata: Metadata{
				FetchedAtMS:               nowMS(),
				AgeInBlocks:               age,
				IsFresh:                   age < f.minAge,
				EstimatedMassContribution: estimatedMassPerInput,
			},
		})
	}
	return enriched
}

// Invalidate removes the cached entry for (address, net), forcing the
// next Fetch to hit the chain.
func (f *Fetcher) Invalidate(address string, net Network) {
	f.cache.Invalidate(address, net)
}

// Clear removes every cached entry.
func (f *Fetcher) Clear() {
	f.cache.Clear()
}
