package kaspa

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountBasedPicksTightestSingleCoveringUTXO(t *testing.T) {
	s := amountBasedStrategy{}
	candidates := []EnrichedUTXO{
		makeUTXO("huge", 0, 10_000, 50, false, 200),
		makeUTXO("tight", 0, 150, 50, false, 200),
		makeUTXO("small", 0, 50, 50, false, 200),
	}

	result, ok := s.Select(candidates, big.NewInt(100), 5, 100_000)
	require.True(t, ok)
	assert.Len(t, result.UTXOs, 1)
	assert.Equal(t, "tight", result.UTXOs[0].TransactionID)
}

func TestAmountBasedFallsBackToGreedyWhenNoSingleCovers(t *testing.T) {
	s := amountBasedStrategy{}
	candidates := []EnrichedUTXO{
		makeUTXO("a", 0, 60, 50, false, 200),
		makeUTXO("b", 0, 60, 50, false, 200),
	}

	result, ok := s.Select(candidates, big.NewInt(100), 5, 100_000)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(result.UTXOs), 2)
	assert.Equal(t, 0, result.TotalAmount.Cmp(big.NewInt(120)))
}

func TestFindOptimalSingleReturnsFalseWhenNoneCover(t *testing.T) {
	sorted := sortByAmountDesc([]EnrichedUTXO{makeUTXO("a", 0, 10, 1, false, 200)})
	_, ok := findOptimalSingle(sorted, big.NewInt(100))
	assert.False(t, ok)
}
