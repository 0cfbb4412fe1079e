package kaspa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func rateUnlimited() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

func newTestFetcher(t *testing.T, handler http.HandlerFunc) (*Fetcher, *httptest.Server) {
	t.Helper()
	// The virtual DAA score endpoint is answered here, so handler sees
	// only UTXO-list requests and its call counts stay per-fetch.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/info/blockdag" {
			json.NewEncoder(w).Encode(map[string]string{"virtualDaaScore": "100"})
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := &ChainClient{
		httpClient: srv.Client(),
		limiter:    rateUnlimited(),
		baseURL:    srv.URL,
	}
	cache := NewCache(10_000)
	fetcher, err := NewFetcher(client, cache, 10, 100_000)
	require.NoError(t, err)
	return fetcher, srv
}

func TestFetcherEnrichSkipsMalformedEntries(t *testing.T) {
	f := &Fetcher{minAge: 10}
	raw := []RawUTXO{
		{Outpoint: Outpoint{TransactionID: "good", Index: 0}, UTXOEntry: UTXOEntry{Amount: "100", BlockDAAScore: "5"}},
		{Outpoint: Outpoint{TransactionID: "bad_amount", Index: 0}, UTXOEntry: UTXOEntry{Amount: "nope", BlockDAAScore: "5"}},
		{Outpoint: Outpoint{TransactionID: "bad_score", Index: 0}, UTXOEntry: UTXOEntry{Amount: "100", BlockDAAScore: "nope"}},
	}

	enriched := f.Enrich(raw, "15")
	require.Len(t, enriched, 1)
	assert.Equal(t, "good", enriched[0].TransactionID)
	assert.Equal(t, int64(10), enriched[0].Metadata.AgeInBlocks)
	assert.False(t, enriched[0].Metadata.IsFresh)
}

func TestFetcherEnrichMarksFreshBelowMinAge(t *testing.T) {
	f := &Fetcher{minAge: 10}
	raw := []RawUTXO{
		{Outpoint: Outpoint{TransactionID: "young", Index: 0}, UTXOEntry: UTXOEntry{Amount: "100", BlockDAAScore: "98"}},
	}

	enriched := f.Enrich(raw, "100")
	require.Len(t, enriched, 1)
	assert.True(t, enriched[0].Metadata.IsFresh)
}

func TestFetchServesFromCacheWithoutHittingServer(t *testing.T) {
	var calls int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode([]RawUTXO{})
	})

	ctx := context.Background()
	_, err := f.Fetch(ctx, "addr1", Mainnet, false)
	require.NoError(t, err)
	_, err = f.Fetch(ctx, "addr1", Mainnet, false)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchForceRefreshBypassesCache(t *testing.T) {
	var calls int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode([]RawUTXO{})
	})

	ctx := context.Background()
	_, err := f.Fetch(ctx, "addr1", Mainnet, false)
	require.NoError(t, err)
	_, err = f.Fetch(ctx, "addr1", Mainnet, true)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchCoalescesConcurrentCalls(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		json.NewEncoder(w).Encode([]RawUTXO{})
	})

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.Fetch(ctx, "addr1", Mainnet, false)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchDegradesVirtualScoreToZeroOnFailure(t *testing.T) {
	f := &Fetcher{minAge: 10}
	sc, err := newScoreCache(time.Millisecond)
	require.NoError(t, err)
	f.scoreCache = sc
	f.client = &ChainClient{
		httpClient: &http.Client{Transport: failingTransport{}},
		limiter:    rateUnlimited(),
		baseURL:    "http://example.invalid",
	}

	score := f.currentVirtualScore(context.Background())
	assert.Equal(t, "0", score)
}

func TestFetchRetriesBeforeSucceeding(t *testing.T) {
	var attempt int32
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempt, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]RawUTXO{})
	})

	_, err := f.Fetch(context.Background(), "addr1", Mainnet, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempt))
}

func TestFetchExhaustsRetriesAndReturnsFetchError(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	f.client.limiter = rateUnlimited()

	// Shrink the backoff schedule so this test doesn't take three
	// seconds; fetchRetryDelays is a package var for exactly this.
	original := fetchRetryDelays
	fetchRetryDelays = []time.Duration{time.Millisecond, time.Millisecond}
	t.Cleanup(func() { fetchRetryDelays = original })

	_, err := f.Fetch(context.Background(), "addr1", Mainnet, false)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Attempts)
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, assertErr{}
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated transport failure" }
