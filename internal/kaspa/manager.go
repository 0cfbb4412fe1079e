package kaspa

import (
	"context"
	"math/big"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kaspa402/utxocore/internal/config"
	"github.com/kaspa402/utxocore/internal/logger"
)

// maturityPollInterval is how often WaitForMaturity re-checks the
// address's UTXO set.
const maturityPollInterval = 2 * time.Second

// consolidationSmallAmountSompi marks a UTXO as "small" for
// fragmentation scoring and consolidation candidacy: under 1 KAS.
var consolidationSmallAmountSompi = big.NewInt(100_000_000)

// acceptedByConsensusRe matches a chain rejection message that is
// actually a late-arriving success: the transaction was already
// accepted under an id the submitter hadn't seen yet.
var acceptedByConsensusRe = regexp.MustCompile(`already accepted by (?:the )?consensus.*?([0-9a-f]{64})`)

// SubmitErrorClass is the outcome ClassifySubmitError assigns to a
// chain rejection.
type SubmitErrorClass string

const (
	ClassMass              SubmitErrorClass = "mass"
	ClassOrphan            SubmitErrorClass = "orphan"
	ClassInsufficientFunds SubmitErrorClass = "insufficient_funds"
	ClassNetwork           SubmitErrorClass = "network"
	ClassUnknown           SubmitErrorClass = "unknown"
	ClassAlreadyAccepted   SubmitErrorClass = "already_accepted"
)

// SubmitResult is the outcome of a submission attempt, successful or
// classified.
type SubmitResult struct {
	Accepted bool
	TxID     string
	Class    SubmitErrorClass
	Retry    bool
}

// ClassifySubmitError inspects a chain-reported submission error
// message and classifies it per the manager's retry policy. A message
// reporting the transaction was already accepted under a different id
// is treated as success, not failure.
func ClassifySubmitError(message string) SubmitResult {
	if m := acceptedByConsensusRe.FindStringSubmatch(message); m != nil {
		return SubmitResult{Accepted: true, TxID: m[1], Class: ClassAlreadyAccepted}
	}

	switch {
	case containsAny(message, "storage mass", "mass limit"):
		return SubmitResult{Class: ClassMass, Retry: false}
	case containsAny(message, "orphan", "missing parent", "missing outpoint"):
		return SubmitResult{Class: ClassOrphan, Retry: true}
	case containsAny(message, "insufficient", "not enough"):
		return SubmitResult{Class: ClassInsufficientFunds, Retry: false}
	case containsAny(message, "connection", "timeout", "network", "unreachable", "econnrefused", "econnaborted", "websocket"):
		return SubmitResult{Class: ClassNetwork, Retry: true}
	default:
		return SubmitResult{Class: ClassUnknown, Retry: false}
	}
}

func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// BuildAndSubmitFunc builds, signs, and submits a transaction spending
// the given UTXOs, returning either an accepted txid or the chain's
// raw rejection message for ClassifySubmitError to interpret.
type BuildAndSubmitFunc func(ctx context.Context, inputs []EnrichedUTXO, amount *big.Int) (txID string, submitErr error)

// Manager (C6) is the top-level façade: it wires the cache, fetcher,
// selector, mass estimator, and lock table together and exposes the
// operations a payment flow actually calls.
type Manager struct {
	cfg          *config.UTXOManagerConfig
	fetcher      *Fetcher
	selector     *Selector
	estimator    *MassEstimator
	locks        *lockTable
	consolidator *Consolidator
	metrics      *Metrics
}

// SetMetrics attaches m so subsequent operations report to it. Metrics
// are optional; a Manager with none attached behaves identically, just
// silently.
func (m *Manager) SetMetrics(metrics *Metrics) {
	m.metrics = metrics
	m.fetcher.SetMetrics(metrics)
}

// NewManager validates cfg, then constructs every component it owns.
func NewManager(cfg *config.UTXOManagerConfig) (*Manager, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	cache := NewCache(cfg.CacheExpiryMS)
	client := NewChainClient(cfg.Net, 10, 20)
	fetcher, err := NewFetcher(client, cache, cfg.MinUTXOAgeBlocks, cfg.MaxMassBytes)
	if err != nil {
		return nil, err
	}

	estimator := NewMassEstimator(cfg.MaxMassBytes, cfg.MassLimitBuffer, uint32(cfg.MaxInputsPerTx))
	locks := newLockTable()

	return &Manager{
		cfg:          cfg,
		fetcher:      fetcher,
		selector:     NewSelector(cfg.MinUTXOAgeBlocks),
		estimator:    estimator,
		locks:        locks,
		consolidator: NewConsolidator(cfg, fetcher, estimator, locks),
	}, nil
}

// ConsolidateIfNeeded delegates to the manager's Consolidator.
func (m *Manager) ConsolidateIfNeeded(ctx context.Context, address string, net Network, build BuildAndSubmitFunc) (*SubmitResult, error) {
	result, err := m.consolidator.ConsolidateIfNeeded(ctx, address, net, build)
	if err == nil && result != nil && result.Accepted && m.metrics != nil {
		m.metrics.IncConsolidation()
	}
	return result, err
}

// ShouldConsolidate delegates to the manager's Consolidator.
func (m *Manager) ShouldConsolidate(ctx context.Context, address string, net Network) (bool, error) {
	return m.consolidator.ShouldConsolidate(ctx, address, net)
}

// ConsolidationRecommendation delegates to the manager's Consolidator.
func (m *Manager) ConsolidationRecommendation(ctx context.Context, address string, net Network) (*ConsolidationRecommendation, error) {
	return m.consolidator.Recommendations(ctx, address, net)
}

// InvalidateCache forces the next fetch for (address, net) to hit the
// chain instead of serving a cached entry.
func (m *Manager) InvalidateCache(address string, net Network) {
	m.fetcher.Invalidate(address, net)
}

// ClearCache removes every cached entry across all addresses.
func (m *Manager) ClearCache() {
	m.fetcher.Clear()
}

// Lock acquires an advisory reservation on outpointKey for reason,
// reporting whether it was acquired.
func (m *Manager) Lock(outpointKey string, reason LockReason) bool {
	return m.locks.TryLock(outpointKey, reason)
}

// Unlock releases outpointKey. It is idempotent.
func (m *Manager) Unlock(outpointKey string) {
	m.locks.Unlock(outpointKey)
}

// UnlockMany releases every key in keys.
func (m *Manager) UnlockMany(keys []string) {
	m.locks.UnlockAll(keys)
}

// IsLocked reports whether outpointKey is currently held by a
// non-expired lock.
func (m *Manager) IsLocked(outpointKey string) bool {
	return m.locks.IsLocked(outpointKey)
}

// CleanupExpiredLocks sweeps the lock table, removing entries past
// their TTL, and returns how many were removed.
func (m *Manager) CleanupExpiredLocks() uint32 {
	return m.locks.Cleanup()
}

// SelectForPayment fetches address's current UTXO set, excludes
// anything already locked by another in-flight operation, runs
// selection for amount, and locks every chosen outpoint before
// returning. Callers must release the lock (via Unlock or a completed
// Submit) whether the payment ultimately succeeds or not.
func (m *Manager) SelectForPayment(ctx context.Context, address string, net Network, amount *big.Int) (*SelectedUTXOs, error) {
	m.CleanupExpiredLocks()

	utxos, err := m.fetcher.Fetch(ctx, address, net, false)
	if err != nil {
		return nil, err
	}

	available := make([]EnrichedUTXO, 0, len(utxos))
	for _, u := range utxos {
		if !m.locks.IsLocked(u.Key()) {
			available = append(available, u)
		}
	}

	// Mass ceiling passed to the selector: the estimator's own mass
	// estimate for a full-size transaction (max_inputs_per_tx inputs,
	// a destination plus a change output), discounted by a further 10%
	// on top of the estimator's own mass_limit_buffer, as extra margin
	// against the chain-side rejection this ceiling exists to avoid.
	estimate := m.estimator.Estimate(uint32(m.cfg.MaxInputsPerTx), 2)
	maxMass := uint32(float64(estimate.MaxAllowedMass) * 0.9)
	result, err := m.selector.Select(available, amount, uint32(m.cfg.MaxInputsPerTx), maxMass)
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncSelectionFailure()
		}
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.ObserveSelection(result.StrategyName, time.Duration(result.SelectionTimeMS)*time.Millisecond)
		m.metrics.SetLockTableSize(m.locks.Size())
	}

	keys := make([]string, len(result.UTXOs))
	for i, u := range result.UTXOs {
		keys[i] = u.Key()
	}
	if !m.locks.TryLockAll(keys, LockReasonPayment) {
		return nil, &NoStrategySatisfiesError{TotalMature: big.NewInt(0), Target: amount, Tried: result.StrategiesAttempted}
	}

	return result, nil
}

// ReleaseSelection unlocks every outpoint in result. Call it on every
// path out of a payment attempt, success or failure.
func (m *Manager) ReleaseSelection(result *SelectedUTXOs) {
	keys := make([]string, len(result.UTXOs))
	for i, u := range result.UTXOs {
		keys[i] = u.Key()
	}
	m.locks.UnlockAll(keys)
}

// Submit runs build against a selection, classifies any failure, and
// retries exactly once when the classification says retry is safe
// (orphan or transient network error). The selection's locks are
// released on every path out.
func (m *Manager) Submit(ctx context.Context, result *SelectedUTXOs, amount *big.Int, build BuildAndSubmitFunc) (*SubmitResult, error) {
	defer m.ReleaseSelection(result)

	txID, err := build(ctx, result.UTXOs, amount)
	if err == nil {
		return &SubmitResult{Accepted: true, TxID: txID}, nil
	}

	classified := ClassifySubmitError(err.Error())
	if classified.Accepted {
		return &classified, nil
	}
	if classified.Class == ClassMass {
		return &classified, m.massError(result)
	}
	if !classified.Retry {
		return &classified, err
	}

	logger.Warn("retrying submission after classified failure", zap.String("class", string(classified.Class)))
	txID, err = build(ctx, result.UTXOs, amount)
	if err == nil {
		return &SubmitResult{Accepted: true, TxID: txID}, nil
	}

	retried := ClassifySubmitError(err.Error())
	retried.Retry = false
	if retried.Class == ClassMass {
		return &retried, m.massError(result)
	}
	return &retried, err
}

// massError builds the typed rejection TransactionMassError for a
// submission classified as a storage-mass failure, estimating the
// mass of the transaction that was actually submitted (its inputs,
// plus a destination and a change output).
func (m *Manager) massError(result *SelectedUTXOs) error {
	estimate := m.estimator.Estimate(uint32(len(result.UTXOs)), 2)
	return &TransactionMassError{
		Estimate: estimate,
		SuggestedActions: []string{
			"reduce the number of inputs",
			"consolidate first",
			"wait for utxos to mature",
		},
	}
}

// WaitForMaturity blocks, polling every maturityPollInterval with a
// forced cache refresh, until address has at least one mature UTXO or
// ctx is done.
func (m *Manager) WaitForMaturity(ctx context.Context, address string, net Network) error {
	ticker := time.NewTicker(maturityPollInterval)
	defer ticker.Stop()

	for {
		utxos, err := m.fetcher.Fetch(ctx, address, net, true)
		if err != nil {
			return err
		}
		for _, u := range utxos {
			if !u.Metadata.IsFresh {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WalletHealth summarizes address's current UTXO set: balance, count,
// age spread, and a fragmentation verdict.
func (m *Manager) WalletHealth(ctx context.Context, address string, net Network) (*WalletHealth, error) {
	utxos, err := m.fetcher.Fetch(ctx, address, net, false)
	if err != nil {
		return nil, err
	}

	health := &WalletHealth{Address: address, TotalBalance: big.NewInt(0), UTXOCount: len(utxos)}
	if len(utxos) == 0 {
		health.EstimatedMaxPayment = big.NewInt(0)
		return health, nil
	}

	var ageSum int64
	oldest, newest := utxos[0].Metadata.AgeInBlocks, utxos[0].Metadata.AgeInBlocks
	for _, u := range utxos {
		health.TotalBalance.Add(health.TotalBalance, u.Amount())
		ageSum += u.Metadata.AgeInBlocks
		if u.Metadata.AgeInBlocks > oldest {
			oldest = u.Metadata.AgeInBlocks
		}
		if u.Metadata.AgeInBlocks < newest {
			newest = u.Metadata.AgeInBlocks
		}
	}
	health.OldestAgeBlocks = oldest
	health.NewestAgeBlocks = newest
	health.AverageAgeBlocks = float64(ageSum) / float64(len(utxos))
	health.FragmentationScore = fragmentationScore(utxos)
	health.NeedsConsolidation = health.FragmentationScore >= 60

	maxInputs := uint32(m.cfg.MaxInputsPerTx)
	sorted := sortByAmountDesc(utxos)
	if uint32(len(sorted)) > maxInputs {
		sorted = sorted[:maxInputs]
	}
	estimate := big.NewInt(0)
	for _, u := range sorted {
		estimate.Add(estimate, u.Amount())
	}
	health.EstimatedMaxPayment = estimate

	return health, nil
}
