package hll

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairEncodeDecode(t *testing.T) {
	p := newPair(12345, 37)
	assert.Equal(t, uint32(12345), pairIndex(p))
	assert.Equal(t, uint8(37), pairRank(p))
}

func TestPairOrdersByIndexThenRank(t *testing.T) {
	lo := newPair(5, 63)
	hi := newPair(6, 0)
	assert.Less(t, lo, hi)
}

func TestPairDenseIndexShiftsAwayExtraPrecisionBits(t *testing.T) {
	precision := uint8(10)
	p := newPair(1<<20, 5) // one bit set inside the top 10 bits of a 26-bit index
	assert.Equal(t, uint32(1<<(20-(SparsePrecision-precision))), pairDenseIndex(p, precision))
}

func TestSparseHeaderAccessors(t *testing.T) {
	data := newSparseData(SparseInitialBsize)
	assert.Equal(t, uint32(0), headerListLen(data))
	assert.Equal(t, pairsMaxSize(data), headerBufferHead(data))
	assert.Equal(t, uint32(SparseInitialBsize), headerByteSize(data))
	assert.True(t, sparseIsFull(data) == (pairsMaxSize(data) == 0))
}

func TestSparseBufferAddFillsFromTheTail(t *testing.T) {
	data := newSparseData(SparseInitialBsize)
	max := pairsMaxSize(data)

	p1 := newPair(1, 1)
	sparseBufferAdd(data, p1)
	assert.Equal(t, max-1, headerBufferHead(data))
	assert.Equal(t, p1, pairAt(data, max-1))

	p2 := newPair(2, 2)
	sparseBufferAdd(data, p2)
	assert.Equal(t, max-2, headerBufferHead(data))
	assert.Equal(t, p2, pairAt(data, max-2))
}

func TestSparseMergeListWithBufferIsSortedAndDeduplicated(t *testing.T) {
	data := newSparseData(SparseInitialBsize)

	sparseBufferAdd(data, newPair(10, 3))
	sparseBufferAdd(data, newPair(5, 1))
	sparseBufferAdd(data, newPair(10, 5)) // duplicate index, higher rank

	merged := sparseMergeListWithBuffer(data)

	require.Equal(t, uint32(2), headerListLen(merged))
	assert.Equal(t, uint32(5), pairIndex(pairAt(merged, 0)))
	assert.Equal(t, uint32(10), pairIndex(pairAt(merged, 1)))
	assert.Equal(t, uint8(5), pairRank(pairAt(merged, 1)))

	var rest []pair
	for i := uint32(0); i < headerListLen(merged); i++ {
		rest = append(rest, pairAt(merged, i))
	}
	assert.True(t, sort.SliceIsSorted(rest, func(i, j int) bool { return rest[i] < rest[j] }))
}

func TestSparseMergeListWithBufferNoopWhenBufferEmpty(t *testing.T) {
	data := newSparseData(SparseInitialBsize)
	merged := sparseMergeListWithBuffer(data)
	assert.Same(t, &data[0], &merged[0])
}

func TestSparseGrowDoublesSizeAndResetsBuffer(t *testing.T) {
	data := newSparseData(SparseInitialBsize)
	grown := sparseGrow(data)
	assert.Equal(t, uint32(SparseInitialBsize*SparseGrowCoef), headerByteSize(grown))
	assert.Equal(t, pairsMaxSize(grown), headerBufferHead(grown))
}

func TestSparseCanGrowRespectsDenseFootprint(t *testing.T) {
	precision := uint8(10)
	small := newSparseData(SparseInitialBsize)
	assert.True(t, sparseCanGrow(small, precision))

	atCap := newSparseData(uint32(denseBsize(precision)))
	assert.False(t, sparseCanGrow(atCap, precision))
}

func TestSparseAddPairsToDense(t *testing.T) {
	precision := uint8(10)
	data := newSparseData(SparseInitialBsize)
	sparseBufferAdd(data, newPair(3<<(SparsePrecision-precision), 9))
	sparseBufferAdd(data, newPair(3<<(SparsePrecision-precision)+1, 2))

	merged := sparseMergeListWithBuffer(data)
	dense := newDenseData(precision)
	sparseAddPairsToDense(dense, merged, precision)

	assert.Equal(t, uint8(9), denseRead(dense, 3))
}
