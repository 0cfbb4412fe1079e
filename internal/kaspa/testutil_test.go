package kaspa

import (
	"fmt"

	"github.com/kaspa402/utxocore/internal/logger"
)

// init sets up the package logger: the components under test log
// through it, and every logger call panics until Init has run.
func init() {
	if err := logger.Init("development"); err != nil {
		panic(err)
	}
}

// makeUTXO builds an EnrichedUTXO for tests: amountSompi as a decimal
// string, ageBlocks/isFresh/mass as the enrichment C2 would attach.
func makeUTXO(txID string, index uint32, amountSompi int64, ageBlocks int64, isFresh bool, mass uint32) EnrichedUTXO {
	return EnrichedUTXO{
		RawUTXO: RawUTXO{
			Outpoint: Outpoint{TransactionID: txID, Index: index},
			UTXOEntry: UTXOEntry{
				Amount:        fmt.Sprintf("%d", amountSompi),
				BlockDAAScore: "0",
			},
		},
		Metadata: Metadata{
			AgeInBlocks:               ageBlocks,
			IsFresh:                   isFresh,
			EstimatedMassContribution: mass,
		},
	}
}
