package kaspa

import (
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/kaspa402/utxocore/internal/logger"
)

// strategyOrder is the fixed fallback order Selector walks: hybrid
// first, then age-based, then amount-based. This order is part of the
// public contract, not an implementation detail.
var strategyOrder = []strategy{
	hybridStrategy{},
	ageBasedStrategy{},
	amountBasedStrategy{},
}

// Selector (C5) picks a covering set of UTXOs for target by trying
// each strategy in strategyOrder, against the mature subset of
// candidates only. Fresh UTXOs are never handed to a strategy by
// Selector, so age_based's fresh fallback has nothing to draw on here
// and FreshUTXOsUsed is always 0.
type Selector struct {
	minUTXOAgeBlocks int64
}

// NewSelector returns a ready-to-use Selector. minUTXOAgeBlocks is
// reported back in NoMatureUtxosError so callers know what threshold
// the candidates fell short of.
func NewSelector(minUTXOAgeBlocks int64) *Selector {
	return &Selector{minUTXOAgeBlocks: minUTXOAgeBlocks}
}

// Select runs the fallback chain against candidates for target,
// returning the first strategy's successful result wrapped with
// provenance, or a NoStrategySatisfiesError / NoMatureUtxosError on
// total failure.
func (s *Selector) Select(candidates []EnrichedUTXO, target *big.Int, maxInputs, maxMass uint32) (*SelectedUTXOs, error) {
	start := time.Now()

	var mature []EnrichedUTXO
	var freshAges []int64
	for _, u := range candidates {
		if !u.Metadata.IsFresh {
			mature = append(mature, u)
		} else {
			freshAges = append(freshAges, u.Metadata.AgeInBlocks)
		}
	}

	if len(mature) == 0 {
		wait := s.minUTXOAgeBlocks
		for _, age := range freshAges {
			if remaining := s.minUTXOAgeBlocks - age; remaining < wait {
				wait = remaining
			}
		}
		if wait < 0 {
			wait = 0
		}
		return nil, &NoMatureUtxosError{
			ObservedFreshAges:   freshAges,
			MinUTXOAgeBlocks:    s.minUTXOAgeBlocks,
			SuggestedWaitBlocks: wait,
		}
	}

	matureTotal := new(big.Int)
	for _, u := range mature {
		matureTotal.Add(matureTotal, u.Amount())
	}

	var attempted []string
	for _, strat := range strategyOrder {
		attempted = append(attempted, strat.Name())
		result, ok := strat.Select(mature, target, maxInputs, maxMass)
		if !ok {
			continue
		}

		elapsed := time.Since(start).Milliseconds()
		logger.Debug("selection succeeded",
			zap.String("strategy", strat.Name()),
			zap.Int("inputs", len(result.UTXOs)),
			zap.Int64("elapsed_ms", elapsed),
		)
		return &SelectedUTXOs{
			SelectionResult:     *result,
			SelectionTimeMS:     elapsed,
			StrategiesAttempted: attempted,
			FreshUTXOsUsed:      0,
		}, nil
	}

	return nil, &NoStrategySatisfiesError{
		TotalMature: matureTotal,
		Target:      target,
		Tried:       attempted,
	}
}

// Validate is a static pre-flight predicate: it reports whether
// selection against candidates for target could possibly succeed,
// without running any strategy, and if not, why — so a caller can
// render an actionable message instead of just a boolean. It is a
// necessary, not sufficient, condition — mass limits may still fail a
// selection Validate allows.
func Validate(candidates []EnrichedUTXO, target *big.Int, maxInputs uint32) ValidationResult {
	if target.Sign() <= 0 {
		return ValidationResult{
			Possible: false,
			Reason:   "target amount must be positive",
		}
	}

	if len(candidates) == 0 {
		return ValidationResult{
			Possible:    false,
			Reason:      "no utxos available",
			Suggestions: []string{"fund the address and retry"},
		}
	}

	var mature []EnrichedUTXO
	for _, u := range candidates {
		if !u.Metadata.IsFresh {
			mature = append(mature, u)
		}
	}
	if len(mature) == 0 {
		return ValidationResult{
			Possible:    false,
			Reason:      "no mature utxos available",
			Suggestions: []string{"wait for the youngest candidate to mature"},
		}
	}

	sorted := sortByAmountDesc(mature)
	total := new(big.Int)
	for _, u := range sorted {
		total.Add(total, u.Amount())
	}
	if total.Cmp(target) < 0 {
		return ValidationResult{
			Possible:    false,
			Reason:      "total mature balance is below target",
			Suggestions: []string{"reduce the payment amount", "wait for more utxos to mature"},
		}
	}

	capped := sorted
	if uint32(len(capped)) > maxInputs {
		capped = capped[:maxInputs]
	}
	cappedTotal := new(big.Int)
	for _, u := range capped {
		cappedTotal.Add(cappedTotal, u.Amount())
	}
	if cappedTotal.Cmp(target) < 0 {
		return ValidationResult{
			Possible:    false,
			Reason:      "the top max_inputs_per_tx utxos by amount do not cover target",
			Suggestions: []string{"raise max_inputs_per_tx", "consolidate before paying"},
		}
	}

	return ValidationResult{Possible: true}
}
