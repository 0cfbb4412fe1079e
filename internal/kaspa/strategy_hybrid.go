package kaspa

import (
	"math/big"
	"sort"
)

// hybridAgeCapBlocks is the fixed upper bound the age axis scores
// against (spec §9 Open Question 3: not tied to min_utxo_age_blocks).
const hybridAgeCapBlocks = 10

// hybridStrategy scores each candidate across age, amount, and mass
// axes, sorts descending by weighted sum, and runs the greedy helper.
type hybridStrategy struct{}

func (hybridStrategy) Name() string { return "hybrid" }

// ScoredUTXO pairs a candidate with its per-axis and weighted scores,
// as returned by DetailedScores for diagnostic tooling.
type ScoredUTXO struct {
	UTXO        EnrichedUTXO
	AgeScore    float64
	AmountScore float64
	MassScore   float64
	Weighted    float64
}

func (h hybridStrategy) Select(candidates []EnrichedUTXO, target *big.Int, maxInputs, maxMass uint32) (*SelectionResult, bool) {
	scored := h.DetailedScores(candidates, target)

	sorted := make([]EnrichedUTXO, len(scored))
	for i, s := range scored {
		sorted[i] = s.UTXO
	}
	return greedySelect(sorted, target, maxInputs, maxMass, "hybrid")
}

// DetailedScores returns every candidate with its axis breakdown,
// sorted descending by weighted score (ties broken by original order,
// via a stable sort). This is consumed directly by diagnostic tooling
// per spec §4.4.3.
func (h hybridStrategy) DetailedScores(candidates []EnrichedUTXO, target *big.Int) []ScoredUTXO {
	scored := make([]ScoredUTXO, len(candidates))
	for i, u := range candidates {
		age := ageScore(u, hybridAgeCapBlocks)
		amount := amountScore(u, target)
		mass := massScore(u)
		scored[i] = ScoredUTXO{
			UTXO:        u,
			AgeScore:    age,
			AmountScore: amount,
			MassScore:   mass,
			Weighted:    0.40*age + 0.30*amount + 0.30*mass,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Weighted > scored[j].Weighted
	})
	return scored
}

// ageScore: 0 if fresh; 100 if age >= cap; else linear interpolation
// from (0 -> 0) to (cap -> 100).
func ageScore(u EnrichedUTXO, cap int64) float64 {
	if u.Metadata.IsFresh {
		return 0
	}
	if u.Metadata.AgeInBlocks >= cap {
		return 100
	}
	if cap <= 0 {
		return 100
	}
	return float64(u.Metadata.AgeInBlocks) / float64(cap) * 100
}

// amountScore: 100 if amount >= target; else floor(amount*100/target),
// capped at 99.
func amountScore(u EnrichedUTXO, target *big.Int) float64 {
	amt := u.Amount()
	if amt.Cmp(target) >= 0 {
		return 100
	}
	if target.Sign() <= 0 {
		return 99
	}

	scaled := new(big.Int).Mul(amt, big.NewInt(100))
	scaled.Quo(scaled, target)
	score := scaled.Int64()
	if score > 99 {
		score = 99
	}
	return float64(score)
}

// massScore: (1 - clamp(mass, 0, 300)/300) * 100 — lighter UTXOs score
// higher.
func massScore(u EnrichedUTXO) float64 {
	mass := float64(u.Metadata.EstimatedMassContribution)
	if mass < 0 {
		mass = 0
	}
	if mass > 300 {
		mass = 300
	}
	return (1 - mass/300) * 100
}
