// Package kaspa implements the UTXO management core: a short-lived
// per-address cache, a retrying fetcher, a mass estimator, three
// selection strategies, a fallback selector, a lock-table-backed
// manager, and a consolidation advisor.
package kaspa

import (
	"fmt"
	"math/big"

	"github.com/kaspa402/utxocore/internal/config"
)

// Network is re-exported from config so callers only import one
// package for the mainnet/testnet tag.
type Network = config.Network

const (
	Mainnet = config.Mainnet
	Testnet = config.Testnet
)

// estimatedMassPerInput is the fixed per-input mass contribution:
// outpoint (36) + schnorr sig script (65) + sequence (8) + overhead (~91).
const estimatedMassPerInput = 200

// Outpoint identifies a UTXO uniquely: the transaction that produced it
// plus the output index within that transaction.
type Outpoint struct {
	TransactionID string `json:"transaction_id"`
	Index         uint32 `json:"index"`
}

// Key returns the string form used as the identity key for the lock
// table and cache-entry equality: "{tx_id}:{index}".
func (o Outpoint) Key() string {
	return fmt.Sprintf("%s:%d", o.TransactionID, o.Index)
}

// ScriptPublicKey is the locking script attached to a UTXO.
type ScriptPublicKey struct {
	Version uint16 `json:"version"`
	Script  string `json:"script"`
}

// UTXOEntry is the chain-reported state of a UTXO: its amount (as a
// decimal sompi string, to preserve arbitrary precision), locking
// script, the DAA score of the block that produced it, and whether it
// came from a coinbase transaction.
type UTXOEntry struct {
	Amount          string          `json:"amount"`
	ScriptPublicKey ScriptPublicKey `json:"script_public_key"`
	BlockDAAScore   string          `json:"block_daa_score"`
	IsCoinbase      bool            `json:"is_coinbase"`
}

// RawUTXO is a UTXO exactly as reported by GET /addresses/{addr}/utxos.
type RawUTXO struct {
	Outpoint  Outpoint  `json:"outpoint"`
	UTXOEntry UTXOEntry `json:"utxo_entry"`
}

// Metadata is the maturity/mass enrichment C2 attaches to every raw
// UTXO it keeps.
type Metadata struct {
	FetchedAtMS               int64
	AgeInBlocks               int64
	IsFresh                   bool
	EstimatedMassContribution uint32
}

// EnrichedUTXO is a RawUTXO augmented with Metadata. The amount stays
// a decimal string and is parsed into an arbitrary-precision integer on
// every Amount call; it is never demoted to a float or a 64-bit int.
type EnrichedUTXO struct {
	RawUTXO
	Metadata Metadata
}

// Amount parses the UTXO's sompi amount into a big.Int. A value that
// does not parse yields zero; Enrich drops such UTXOs, so this only
// happens for an EnrichedUTXO built some other way.
func (u EnrichedUTXO) Amount() *big.Int {
	amt, ok := new(big.Int).SetString(u.UTXOEntry.Amount, 10)
	if !ok {
		// Enrich rejects malformed amounts before constructing an
		// EnrichedUTXO; reaching this means that invariant broke.
		return big.NewInt(0)
	}
	return amt
}

// Key returns the UTXO's identity key, delegating to its Outpoint.
func (u EnrichedUTXO) Key() string {
	return u.Outpoint.Key()
}

// CacheEntry is what C1 stores per (address, network).
type CacheEntry struct {
	UTXOs       []EnrichedUTXO
	ExpiresAtMS int64
}

// LockReason records why an outpoint was locked.
type LockReason string

const (
	LockReasonPayment       LockReason = "payment"
	LockReasonConsolidation LockReason = "consolidation"
)

// UTXOLock is a single advisory reservation on an outpoint, held by C6
// for the duration of an in-flight payment or consolidation.
type UTXOLock struct {
	OutpointKey string
	LockedAtMS  int64
	ExpiresAtMS int64
	Reason      LockReason
}

// SelectionResult is what a strategy (C4) returns on success.
type SelectionResult struct {
	UTXOs         []EnrichedUTXO
	TotalAmount   *big.Int
	EstimatedMass uint32
	StrategyName  string
	Warnings      []string
}

// SelectedUTXOs wraps a SelectionResult with the provenance the
// Selector (C5) adds.
type SelectedUTXOs struct {
	SelectionResult
	SelectionTimeMS     int64
	StrategiesAttempted []string
	FreshUTXOsUsed      uint32
}

// MassBreakdown is the component-wise accounting behind a MassEstimate.
type MassBreakdown struct {
	Inputs   uint32
	Outputs  uint32
	Overhead uint32
}

// MassEstimate is the output of C3's pure mass calculation.
type MassEstimate struct {
	EstimatedMass      uint32
	MaxAllowedMass     uint32
	Breakdown          MassBreakdown
	IsWithinLimit      bool
	UtilizationPercent float64
}

// ValidationResult is Validate's static pre-flight verdict: whether
// selection against a target could possibly succeed, and if not, why.
type ValidationResult struct {
	Possible    bool
	Reason      string
	Suggestions []string
}

// ConsolidationRecommendation is C7's advisory verdict for an address:
// whether to consolidate, the wallet's fragmentation score, how many
// UTXOs a consolidation would sweep up, and the fee it would save.
type ConsolidationRecommendation struct {
	ShouldConsolidate  bool
	FragmentationScore int
	CandidateCount     int
	EstimatedSavings   *big.Int
	Recommendation     string
}

// WalletHealth summarizes an address's UTXO set for diagnostic and
// consolidation-planning purposes.
type WalletHealth struct {
	Address             string
	TotalBalance        *big.Int
	UTXOCount           int
	FragmentationScore  int
	OldestAgeBlocks     int64
	NewestAgeBlocks     int64
	AverageAgeBlocks    float64
	NeedsConsolidation  bool
	EstimatedMaxPayment *big.Int
}

