package kaspa

import (
	"fmt"
	"math/big"
)

// FetchError is returned by the Fetcher once its retry budget for the
// UTXO-list endpoint is exhausted.
type FetchError struct {
	Address  string
	Network  Network
	Attempts int
	Cause    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch utxos for %s on %s failed after %d attempts: %v",
		e.Address, e.Network, e.Attempts, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func (e *FetchError) Recovery() string {
	return "the chain API may be degraded; retry with backoff or surface a temporary error to the caller"
}

// NoMatureUtxosError is raised by the Selector when every candidate is
// fresh (age below min_utxo_age_blocks).
type NoMatureUtxosError struct {
	ObservedFreshAges   []int64
	MinUTXOAgeBlocks    int64
	SuggestedWaitBlocks int64
}

func (e *NoMatureUtxosError) Error() string {
	return fmt.Sprintf("no mature utxos: all %d candidates are fresh (min age %d blocks), suggest waiting ~%d more blocks",
		len(e.ObservedFreshAges), e.MinUTXOAgeBlocks, e.SuggestedWaitBlocks)
}

func (e *NoMatureUtxosError) Recovery() string {
	return "wait for the youngest candidate to mature, or call wait_for_maturity before retrying"
}

// NoStrategySatisfiesError is raised by the Selector when every
// strategy fails to cover the target from the mature candidate set.
type NoStrategySatisfiesError struct {
	TotalMature *big.Int
	Target      *big.Int
	Tried       []string
}

func (e *NoStrategySatisfiesError) Error() string {
	return fmt.Sprintf("no strategy satisfies target %s from %s mature sompi available (tried: %v)",
		e.Target, e.TotalMature, e.Tried)
}

func (e *NoStrategySatisfiesError) Recovery() string {
	return "raise max_inputs_per_tx, wait for more UTXOs to mature, or reduce the payment amount"
}

// TransactionMassError surfaces a chain-rejected "storage mass
// exceeded" submission back to the caller with concrete next steps.
type TransactionMassError struct {
	Estimate         MassEstimate
	SuggestedActions []string
}

func (e *TransactionMassError) Error() string {
	return fmt.Sprintf("transaction storage mass %d exceeds allowed %d (utilization %.1f%%)",
		e.Estimate.EstimatedMass, e.Estimate.MaxAllowedMass, e.Estimate.UtilizationPercent)
}

func (e *TransactionMassError) Recovery() string {
	return "wait for UTXOs to mature, reduce the number of inputs, or consolidate first"
}

// FragmentationAction names what UtxoFragmentationError recommends.
type FragmentationAction string

const (
	ActionConsolidate FragmentationAction = "consolidate"
	ActionWait        FragmentationAction = "wait"
)

// UtxoFragmentationError reports that a wallet is too fragmented to
// service a payment reliably.
type UtxoFragmentationError struct {
	Score  int
	Action FragmentationAction
}

func (e *UtxoFragmentationError) Error() string {
	return fmt.Sprintf("wallet fragmentation score %d requires action %q before payment", e.Score, e.Action)
}

func (e *UtxoFragmentationError) Recovery() string {
	if e.Action == ActionConsolidate {
		return "run consolidate_if_needed before attempting further payments"
	}
	return "wait for pending consolidations to mature"
}
