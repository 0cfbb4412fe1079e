package kaspa

import (
	"fmt"
	"math/big"
	"sort"
)

// strategy is the shared surface for C4's three selection policies.
// Selector dispatches over an ordered slice of these; that order is
// part of the public contract (spec §4.5/§9).
type strategy interface {
	Name() string
	Select(candidates []EnrichedUTXO, target *big.Int, maxInputs uint32, maxMass uint32) (*SelectionResult, bool)
}

// greedyOverhead is the fixed transaction overhead the greedy helper
// starts its running mass total from.
const greedyOverhead = 100

// greedySelect walks sortedUTXOs in order, accepting each until the
// running total covers target, the input cap is hit, or accepting the
// next UTXO would exceed maxMass. The `+50` added per iteration
// anticipates the downstream change-output byte cost; it is a safety
// margin against call sites that pass a maxMass already accounting for
// outputs, not a bug (spec §4.4, §9 Open Question 2 — kept literal).
func greedySelect(sortedUTXOs []EnrichedUTXO, target *big.Int, maxInputs uint32, maxMass uint32, name string) (*SelectionResult, bool) {
	mass := uint32(greedyOverhead)
	total := new(big.Int)
	var selected []EnrichedUTXO
	var warnings []string

	for _, u := range sortedUTXOs {
		if uint32(len(selected)) >= maxInputs {
			warnings = append(warnings, "max inputs reached before target was covered")
			break
		}

		newMass := mass + u.Metadata.EstimatedMassContribution + 50
		if newMass > maxMass {
			warnings = append(warnings, "mass limit reached before target was covered")
			break
		}

		selected = append(selected, u)
		total.Add(total, u.Amount())
		mass = newMass

		if total.Cmp(target) >= 0 {
			if anyFresh(selected) {
				warnings = append(warnings, fmt.Sprintf("using %d fresh UTXOs", countFresh(selected)))
			}
			return &SelectionResult{
				UTXOs:         selected,
				TotalAmount:   total,
				EstimatedMass: mass,
				StrategyName:  name,
				Warnings:      warnings,
			}, true
		}
	}

	return nil, false
}

func anyFresh(utxos []EnrichedUTXO) bool {
	for _, u := range utxos {
		if u.Metadata.IsFresh {
			return true
		}
	}
	return false
}

func countFresh(utxos []EnrichedUTXO) int {
	n := 0
	for _, u := range utxos {
		if u.Metadata.IsFresh {
			n++
		}
	}
	return n
}

// sortByAgeDesc returns a stable-sorted copy of utxos, oldest first.
func sortByAgeDesc(utxos []EnrichedUTXO) []EnrichedUTXO {
	out := append([]EnrichedUTXO(nil), utxos...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metadata.AgeInBlocks > out[j].Metadata.AgeInBlocks
	})
	return out
}

// sortByAmountDesc returns a stable-sorted copy of utxos, largest
// amount first.
func sortByAmountDesc(utxos []EnrichedUTXO) []EnrichedUTXO {
	out := append([]EnrichedUTXO(nil), utxos...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount().Cmp(out[j].Amount()) > 0
	})
	return out
}
