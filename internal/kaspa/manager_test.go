package kaspa

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaspa402/utxocore/internal/config"
)

func newTestManager(t *testing.T, utxos []RawUTXO) *Manager {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/info/blockdag":
			json.NewEncoder(w).Encode(map[string]string{"virtualDaaScore": "100"})
		default:
			json.NewEncoder(w).Encode(utxos)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	manager, err := NewManager(cfg)
	require.NoError(t, err)

	manager.fetcher.client = &ChainClient{
		httpClient: srv.Client(),
		limiter:    rateUnlimited(),
		baseURL:    srv.URL,
	}
	return manager
}

func rawUTXO(txID string, amount int64, blockScore int64) RawUTXO {
	return RawUTXO{
		Outpoint:  Outpoint{TransactionID: txID, Index: 0},
		UTXOEntry: UTXOEntry{Amount: fmt.Sprintf("%d", amount), BlockDAAScore: fmt.Sprintf("%d", blockScore)},
	}
}

func TestClassifySubmitError(t *testing.T) {
	cases := []struct {
		message string
		class   SubmitErrorClass
		retry   bool
	}{
		{"transaction rejected: storage mass exceeds limit", ClassMass, false},
		{"orphan transaction, missing parent", ClassOrphan, true},
		{"insufficient funds for this transaction", ClassInsufficientFunds, false},
		{"connection timeout talking to node", ClassNetwork, true},
		{"totally unexpected chain response", ClassUnknown, false},
	}
	for _, c := range cases {
		result := ClassifySubmitError(c.message)
		assert.Equal(t, c.class, result.Class, c.message)
		assert.Equal(t, c.retry, result.Retry, c.message)
	}
}

func TestClassifySubmitErrorAlreadyAcceptedIsSuccess(t *testing.T) {
	txid := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	result := ClassifySubmitError("transaction already accepted by consensus under id " + txid)
	assert.True(t, result.Accepted)
	assert.Equal(t, txid, result.TxID)
}

func TestSelectForPaymentLocksSelectedOutpoints(t *testing.T) {
	m := newTestManager(t, []RawUTXO{rawUTXO("tx1", 200, 50)})

	selection, err := m.SelectForPayment(context.Background(), "addr1", Mainnet, big.NewInt(100))
	require.NoError(t, err)
	require.Len(t, selection.UTXOs, 1)
	assert.True(t, m.locks.IsLocked(selection.UTXOs[0].Key()))

	m.ReleaseSelection(selection)
	assert.False(t, m.locks.IsLocked(selection.UTXOs[0].Key()))
}

func TestSelectForPaymentExcludesLockedOutpoints(t *testing.T) {
	m := newTestManager(t, []RawUTXO{rawUTXO("tx1", 200, 50)})

	first, err := m.SelectForPayment(context.Background(), "addr1", Mainnet, big.NewInt(100))
	require.NoError(t, err)
	defer m.ReleaseSelection(first)

	_, err = m.SelectForPayment(context.Background(), "addr1", Mainnet, big.NewInt(100))
	assert.Error(t, err)
}

func TestSubmitRetriesOnOrphanThenSucceeds(t *testing.T) {
	m := newTestManager(t, []RawUTXO{rawUTXO("tx1", 200, 50)})
	selection, err := m.SelectForPayment(context.Background(), "addr1", Mainnet, big.NewInt(100))
	require.NoError(t, err)

	var attempts int
	build := func(ctx context.Context, inputs []EnrichedUTXO, amount *big.Int) (string, error) {
		attempts++
		if attempts == 1 {
			return "", fmt.Errorf("orphan transaction, missing parent")
		}
		return "txid123", nil
	}

	result, err := m.Submit(context.Background(), selection, big.NewInt(100), build)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 2, attempts)
	assert.False(t, m.locks.IsLocked(selection.UTXOs[0].Key()))
}

func TestSubmitDoesNotRetryOnMassError(t *testing.T) {
	m := newTestManager(t, []RawUTXO{rawUTXO("tx1", 200, 50)})
	selection, err := m.SelectForPayment(context.Background(), "addr1", Mainnet, big.NewInt(100))
	require.NoError(t, err)

	attempts := 0
	build := func(ctx context.Context, inputs []EnrichedUTXO, amount *big.Int) (string, error) {
		attempts++
		return "", fmt.Errorf("storage mass exceeds limit")
	}

	result, err := m.Submit(context.Background(), selection, big.NewInt(100), build)
	require.Error(t, err)
	assert.Equal(t, ClassMass, result.Class)
	assert.Equal(t, 1, attempts)

	var massErr *TransactionMassError
	require.ErrorAs(t, err, &massErr)
	assert.NotEmpty(t, massErr.SuggestedActions)
	assert.Equal(t, uint32(1), massErr.Estimate.Breakdown.Inputs/estimatedMassPerInput)
}

func TestManagerCacheAndLockSurface(t *testing.T) {
	m := newTestManager(t, []RawUTXO{rawUTXO("tx1", 200, 50)})

	_, err := m.fetcher.Fetch(context.Background(), "addr1", Mainnet, false)
	require.NoError(t, err)
	assert.True(t, m.fetcher.cache.Has("addr1", Mainnet))

	m.InvalidateCache("addr1", Mainnet)
	assert.False(t, m.fetcher.cache.Has("addr1", Mainnet))

	_, err = m.fetcher.Fetch(context.Background(), "addr1", Mainnet, false)
	require.NoError(t, err)
	m.ClearCache()
	assert.False(t, m.fetcher.cache.Has("addr1", Mainnet))

	assert.True(t, m.Lock("tx1:0", LockReasonPayment))
	assert.True(t, m.IsLocked("tx1:0"))
	assert.False(t, m.Lock("tx1:0", LockReasonPayment))
	m.Unlock("tx1:0")
	assert.False(t, m.IsLocked("tx1:0"))

	assert.True(t, m.Lock("tx1:0", LockReasonPayment))
	assert.True(t, m.Lock("tx2:0", LockReasonPayment))
	m.UnlockMany([]string{"tx1:0", "tx2:0"})
	assert.False(t, m.IsLocked("tx1:0"))
	assert.False(t, m.IsLocked("tx2:0"))
}

func TestCleanupExpiredLocksSweepsOnly(t *testing.T) {
	m := newTestManager(t, []RawUTXO{})
	restore := withFrozenClock(t, 1_000_000)

	require.True(t, m.Lock("tx1:0", LockReasonPayment))
	restore(lockTTLMS + 1)
	require.True(t, m.Lock("tx2:0", LockReasonPayment))

	removed := m.CleanupExpiredLocks()
	assert.Equal(t, uint32(1), removed)
	assert.False(t, m.locks.IsLocked("tx1:0"))
	assert.True(t, m.locks.IsLocked("tx2:0"))
}

func TestWalletHealthEmptyWallet(t *testing.T) {
	m := newTestManager(t, []RawUTXO{})
	health, err := m.WalletHealth(context.Background(), "addr1", Mainnet)
	require.NoError(t, err)
	assert.Equal(t, 0, health.UTXOCount)
	assert.Equal(t, 0, health.TotalBalance.Sign())
}

func TestWalletHealthReportsBalanceAndFragmentation(t *testing.T) {
	m := newTestManager(t, []RawUTXO{
		rawUTXO("a", 1_000_000, 50),
		rawUTXO("b", 2_000_000, 40),
	})

	health, err := m.WalletHealth(context.Background(), "addr1", Mainnet)
	require.NoError(t, err)
	assert.Equal(t, 2, health.UTXOCount)
	assert.Equal(t, 0, health.TotalBalance.Cmp(big.NewInt(3_000_000)))
}
