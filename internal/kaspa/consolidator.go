package kaspa

import (
	"context"
	"math"
	"math/big"

	"github.com/kaspa402/utxocore/internal/config"
)

// consolidationMaturityBlocks is the fixed maturity bar a UTXO must
// clear to be a consolidation candidate, independent of the manager's
// configured min_utxo_age_blocks.
const consolidationMaturityBlocks = 10

// consolidationFlatFeeSompi is the flat fee charged against a
// consolidation transaction's output.
var consolidationFlatFeeSompi = big.NewInt(10_000)

// Consolidator (C7) advises on, and executes, self-sends that collapse
// many small mature UTXOs into one.
type Consolidator struct {
	cfg       *config.UTXOManagerConfig
	fetcher   *Fetcher
	estimator *MassEstimator
	locks     *lockTable
}

// NewConsolidator wires a Consolidator from the manager's already-built
// components.
func NewConsolidator(cfg *config.UTXOManagerConfig, fetcher *Fetcher, estimator *MassEstimator, locks *lockTable) *Consolidator {
	return &Consolidator{cfg: cfg, fetcher: fetcher, estimator: estimator, locks: locks}
}

// ConsolidateIfNeeded fetches address's UTXO set, and if it is
// fragmented enough to warrant it, builds and submits a self-send of
// its candidate UTXOs via build. It is a no-op, returning (nil, nil),
// when consolidation is not currently warranted.
func (c *Consolidator) ConsolidateIfNeeded(ctx context.Context, address string, net Network, build BuildAndSubmitFunc) (*SubmitResult, error) {
	utxos, err := c.fetcher.Fetch(ctx, address, net, false)
	if err != nil {
		return nil, err
	}

	candidates := consolidationCandidates(utxos)
	if len(candidates) < c.cfg.ConsolidationThreshold {
		return nil, nil
	}

	sorted := sortByAgeDesc(candidates)
	maxInputs := uint32(c.cfg.MaxInputsPerTx)
	if uint32(len(sorted)) > maxInputs {
		sorted = sorted[:maxInputs]
	}

	for !c.estimator.WithinLimit(uint32(len(sorted)), 1) && len(sorted) > 1 {
		sorted = sorted[:len(sorted)-1]
	}

	keys := make([]string, len(sorted))
	for i, u := range sorted {
		keys[i] = u.Key()
	}
	if !c.locks.TryLockAll(keys, LockReasonConsolidation) {
		return nil, nil
	}
	defer c.locks.UnlockAll(keys)

	total := big.NewInt(0)
	for _, u := range sorted {
		total.Add(total, u.Amount())
	}
	outputAmount := new(big.Int).Sub(total, consolidationFlatFeeSompi)

	txID, err := build(ctx, sorted, outputAmount)
	if err != nil {
		return &SubmitResult{Class: ClassifySubmitError(err.Error()).Class}, err
	}

	c.fetcher.Invalidate(address, net)
	return &SubmitResult{Accepted: true, TxID: txID}, nil
}

// ShouldConsolidate fetches address's current UTXO set and reports
// whether its mature-candidate count has crossed the consolidation
// threshold.
func (c *Consolidator) ShouldConsolidate(ctx context.Context, address string, net Network) (bool, error) {
	utxos, err := c.fetcher.Fetch(ctx, address, net, false)
	if err != nil {
		return false, err
	}
	return len(consolidationCandidates(utxos)) >= c.cfg.ConsolidationThreshold, nil
}

// Recommendations fetches address's UTXO set and returns a full
// consolidation verdict: whether to consolidate, the wallet's
// fragmentation score, how many UTXOs are consolidation candidates,
// and the fee a consolidation would save versus leaving them
// fragmented.
func (c *Consolidator) Recommendations(ctx context.Context, address string, net Network) (*ConsolidationRecommendation, error) {
	utxos, err := c.fetcher.Fetch(ctx, address, net, false)
	if err != nil {
		return nil, err
	}

	candidates := consolidationCandidates(utxos)
	score := fragmentationScore(utxos)
	should := len(candidates) >= c.cfg.ConsolidationThreshold

	rec := &ConsolidationRecommendation{
		ShouldConsolidate:  should,
		FragmentationScore: score,
		CandidateCount:     len(candidates),
		EstimatedSavings:   estimatedConsolidationSavings(candidates),
	}
	switch {
	case !should:
		rec.Recommendation = "wallet is not fragmented enough to warrant consolidation"
	case len(candidates) == 0:
		rec.Recommendation = "no mature utxos available; wait for candidates to mature"
	default:
		rec.Recommendation = "run consolidate_if_needed before the next large payment"
	}
	return rec, nil
}

// estimatedConsolidationSavings approximates the fee saved by spending
// candidates as one consolidated input later instead of len(candidates)
// separate transactions: the flat fee times the transactions avoided.
func estimatedConsolidationSavings(candidates []EnrichedUTXO) *big.Int {
	if len(candidates) <= 1 {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(consolidationFlatFeeSompi, big.NewInt(int64(len(candidates)-1)))
}

// consolidationCandidates returns every small UTXO (under
// consolidationSmallAmountSompi) that has cleared the fixed
// consolidation maturity bar.
func consolidationCandidates(utxos []EnrichedUTXO) []EnrichedUTXO {
	var out []EnrichedUTXO
	for _, u := range utxos {
		if u.Metadata.AgeInBlocks >= consolidationMaturityBlocks && u.Amount().Cmp(consolidationSmallAmountSompi) < 0 {
			out = append(out, u)
		}
	}
	return out
}

// fragmentationScore rates a wallet 0 (healthy) to 100 (badly
// fragmented) from three components: how many UTXOs it holds, what
// share of them are small, and how unevenly their amounts are spread.
func fragmentationScore(utxos []EnrichedUTXO) int {
	if len(utxos) == 0 {
		return 0
	}

	n := len(utxos)
	utxoCountScore := n * 2
	if utxoCountScore > 40 {
		utxoCountScore = 40
	}

	small := 0
	sum := new(big.Float)
	amounts := make([]*big.Float, n)
	for i, u := range utxos {
		if u.Amount().Cmp(consolidationSmallAmountSompi) < 0 {
			small++
		}
		f := new(big.Float).SetInt(u.Amount())
		amounts[i] = f
		sum.Add(sum, f)
	}
	smallUTXOScore := small * 30 / n

	meanF := new(big.Float).Quo(sum, big.NewFloat(float64(n)))
	mean, _ := meanF.Float64()

	varianceScore := 0
	if mean > 0 {
		var sqDiffSum float64
		for _, a := range amounts {
			v, _ := a.Float64()
			d := v - mean
			sqDiffSum += d * d
		}
		stddev := math.Sqrt(sqDiffSum / float64(n))
		coeffVariation := stddev / mean
		varianceScore = int(math.Min(coeffVariation, 1) * 30)
	}

	score := utxoCountScore + smallUTXOScore + varianceScore
	if score > 100 {
		score = 100
	}
	return score
}
