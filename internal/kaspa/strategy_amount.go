package kaspa

import "math/big"

// amountBasedStrategy prefers fewer, larger inputs: a single UTXO that
// already covers target is returned immediately; otherwise it falls
// back to greedy selection over the amount-sorted list.
type amountBasedStrategy struct{}

func (amountBasedStrategy) Name() string { return "amount_based" }

func (amountBasedStrategy) Select(candidates []EnrichedUTXO, target *big.Int, maxInputs, maxMass uint32) (*SelectionResult, bool) {
	sorted := sortByAmountDesc(candidates)

	if single, ok := findOptimalSingle(sorted, target); ok {
		mass := uint32(greedyOverhead) + single.Metadata.EstimatedMassContribution + 50
		var warnings []string
		if single.Metadata.IsFresh {
			warnings = append(warnings, "using 1 fresh UTXOs")
		}
		return &SelectionResult{
			UTXOs:         []EnrichedUTXO{single},
			TotalAmount:   single.Amount(),
			EstimatedMass: mass,
			StrategyName:  "amount_based",
			Warnings:      warnings,
		}, true
	}

	return greedySelect(sorted, target, maxInputs, maxMass, "amount_based")
}

// findOptimalSingle returns the tightest-fitting single UTXO whose
// amount already covers target, if one exists. sorted is descending
// by amount, so walking from the smallest entry upward and returning
// the first one that covers target yields the smallest such UTXO
// rather than always picking the single largest one in the wallet.
func findOptimalSingle(sorted []EnrichedUTXO, target *big.Int) (EnrichedUTXO, bool) {
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Amount().Cmp(target) >= 0 {
			return sorted[i], true
		}
	}
	return EnrichedUTXO{}, false
}
