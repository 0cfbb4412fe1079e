package kaspa

import "math/big"

// ageBasedStrategy prefers the oldest mature UTXOs first, falling back
// to fresh UTXOs only when mature balance alone cannot cover target.
// This keeps the storage-mass penalty off the hot path whenever
// possible.
type ageBasedStrategy struct{}

func (ageBasedStrategy) Name() string { return "age_based" }

func (ageBasedStrategy) Select(candidates []EnrichedUTXO, target *big.Int, maxInputs, maxMass uint32) (*SelectionResult, bool) {
	var mature, fresh []EnrichedUTXO
	for _, u := range candidates {
		if u.Metadata.IsFresh {
			fresh = append(fresh, u)
		} else {
			mature = append(mature, u)
		}
	}

	matureSorted := sortByAgeDesc(mature)
	if result, ok := greedySelect(matureSorted, target, maxInputs, maxMass, "age_based"); ok {
		return result, true
	}

	combined := append(append([]EnrichedUTXO(nil), matureSorted...), sortByAgeDesc(fresh)...)
	result, ok := greedySelect(combined, target, maxInputs, maxMass, "age_based")
	if !ok {
		return nil, false
	}
	result.Warnings = append(result.Warnings, "Had to use fresh UTXOs due to insufficient mature balance")
	return result, true
}
