package hll

import (
	"encoding/binary"
	"sort"
)

const (
	// SparsePrecision is the (fixed) precision used to address pairs in
	// the sparse representation. It is independent of the dense
	// precision an Estimator was created with.
	SparsePrecision = 26

	// SparseMinPrecision is the smallest dense precision for which the
	// sparse representation is ever chosen: below it the dense form is
	// already smaller than a useful sparse buffer.
	SparseMinPrecision = 10

	// SparseInitialBsize is the size, in bytes, of a freshly created
	// sparse buffer. It must exceed sparseHeaderSize.
	SparseInitialBsize = 48

	// SparseGrowCoef is the factor applied to a sparse buffer's size
	// each time it is grown.
	SparseGrowCoef = 2

	// pairBytes is the width of one (index, rank) pair.
	pairBytes = 4

	// sparseHeaderSize is the width of the pairs_header described in
	// the data model: list_len, buffer_head, byte_size, each a uint32.
	sparseHeaderSize = 12
)

// pair is a 32-bit word encoding a sparse observation: the low RankBits
// bits hold the rank, the remaining high bits hold the SparsePrecision-bit
// index. Because the index occupies the high bits, pairs compare first by
// index and then by rank when compared as plain unsigned integers.
type pair = uint32

func newPair(idx uint32, r uint8) pair {
	return pair(r) | idx<<RankBits
}

func pairIndex(p pair) uint32 {
	return p >> RankBits
}

func pairRank(p pair) uint8 {
	return uint8(p & RankMax)
}

// pairDenseIndex maps a sparse pair's 26-bit index down to the register
// index it would occupy in a dense representation at the given precision.
// Since SparsePrecision exceeds every supported dense precision, this is
// always a right shift discarding the low bits.
func pairDenseIndex(p pair, precision uint8) uint32 {
	return pairIndex(p) >> (SparsePrecision - precision)
}

// pairDenseRank returns the rank a sparse pair contributes to its mapped
// dense register. The sparse-measured rank is reused directly rather than
// recomputed against the narrower precision; see the design notes on the
// resulting ~2^-38 probability of a one-off miscalculation.
func pairDenseRank(p pair) uint8 {
	return pairRank(p)
}

// --- sparse buffer header accessors -----------------------------------

func headerListLen(data []byte) uint32 {
	return binary.BigEndian.Uint32(data[0:4])
}

func setHeaderListLen(data []byte, v uint32) {
	binary.BigEndian.PutUint32(data[0:4], v)
}

func headerBufferHead(data []byte) uint32 {
	return binary.BigEndian.Uint32(data[4:8])
}

func setHeaderBufferHead(data []byte, v uint32) {
	binary.BigEndian.PutUint32(data[4:8], v)
}

func headerByteSize(data []byte) uint32 {
	return binary.BigEndian.Uint32(data[8:12])
}

func setHeaderByteSize(data []byte, v uint32) {
	binary.BigEndian.PutUint32(data[8:12], v)
}

// pairsMaxSize returns the pair-unit capacity of the region following the
// header.
func pairsMaxSize(data []byte) uint32 {
	return uint32(len(data)-sparseHeaderSize) / pairBytes
}

func pairAt(data []byte, i uint32) pair {
	off := sparseHeaderSize + int(i)*pairBytes
	return binary.BigEndian.Uint32(data[off : off+pairBytes])
}

func setPairAt(data []byte, i uint32, p pair) {
	off := sparseHeaderSize + int(i)*pairBytes
	binary.BigEndian.PutUint32(data[off:off+pairBytes], p)
}

// newSparseData allocates a fresh sparse buffer of bsize bytes: an empty
// list, and a buffer occupying the whole pair region.
func newSparseData(bsize uint32) []byte {
	data := make([]byte, bsize)
	setHeaderByteSize(data, bsize)
	setHeaderListLen(data, 0)
	setHeaderBufferHead(data, pairsMaxSize(data))
	return data
}

// sparseIsFull reports whether the buffer has grown to meet the list,
// leaving no room for another insert.
func sparseIsFull(data []byte) bool {
	return headerListLen(data) == headerBufferHead(data)
}

// sparseCanGrow reports whether doubling this buffer still fits within
// the dense footprint for precision.
func sparseCanGrow(data []byte, precision uint8) bool {
	newSize := uint32(SparseGrowCoef) * headerByteSize(data)
	return int(newSize) <= denseBsize(precision)
}

// sparseGrow reallocates data to SparseGrowCoef times its current size.
// The caller must have just merged the list with the buffer, leaving the
// buffer empty, so the new buffer region can simply be reset to span the
// grown capacity.
func sparseGrow(data []byte) []byte {
	newSize := uint32(SparseGrowCoef) * headerByteSize(data)
	grown := make([]byte, newSize)
	copy(grown, data)
	setHeaderByteSize(grown, newSize)
	setHeaderBufferHead(grown, pairsMaxSize(grown))
	return grown
}

// sparseBufferAdd appends a pair to the buffer. The caller must ensure the
// region is not full.
func sparseBufferAdd(data []byte, p pair) {
	head := headerBufferHead(data) - 1
	setHeaderBufferHead(data, head)
	setPairAt(data, head, p)
}

func sparseListLen(data []byte) uint32 {
	return headerListLen(data)
}

func sparseBufferLen(data []byte) uint32 {
	return pairsMaxSize(data) - headerBufferHead(data)
}

// sparseSortBuffer sorts the unsorted buffer region ascending by pair
// value, a precondition for the list/buffer merge below.
func sparseSortBuffer(data []byte) {
	head := headerBufferHead(data)
	max := pairsMaxSize(data)
	n := int(max - head)
	if n < 2 {
		return
	}
	buf := make([]pair, n)
	for i := 0; i < n; i++ {
		buf[i] = pairAt(data, head+uint32(i))
	}
	sort.Slice(buf, func(i, j int) bool { return buf[i] < buf[j] })
	for i, p := range buf {
		setPairAt(data, head+uint32(i), p)
	}
}

// sparseMergeListWithBuffer sorts the buffer, two-way merges it with the
// already-sorted list into a fresh buffer of the same size, coalesces
// duplicate indexes (keeping the greatest rank of each), and installs the
// result as the new list with an empty buffer. It is a no-op when the
// buffer is currently empty.
func sparseMergeListWithBuffer(data []byte) []byte {
	if sparseBufferLen(data) == 0 {
		return data
	}

	sparseSortBuffer(data)

	listLen := headerListLen(data)
	bufHead := headerBufferHead(data)
	maxSize := pairsMaxSize(data)

	merged := newSparseData(headerByteSize(data))

	li, bi, n := uint32(0), bufHead, uint32(0)
	for li < listLen && bi < maxSize {
		lp, bp := pairAt(data, li), pairAt(data, bi)
		if lp < bp {
			setPairAt(merged, n, lp)
			li++
		} else {
			setPairAt(merged, n, bp)
			bi++
		}
		n++
	}
	for ; li < listLen; li++ {
		setPairAt(merged, n, pairAt(data, li))
		n++
	}
	for ; bi < maxSize; bi++ {
		setPairAt(merged, n, pairAt(data, bi))
		n++
	}

	n = mergeDuplicateIndexes(merged, n)
	setHeaderListLen(merged, n)
	setHeaderBufferHead(merged, pairsMaxSize(merged))
	return merged
}

// mergeDuplicateIndexes compacts the first n pairs of data in place,
// keeping only the last (and therefore, since the stream is sorted
// ascending, the greatest-rank) pair for each distinct index. Returns the
// compacted count.
func mergeDuplicateIndexes(data []byte, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	unique := uint32(0)
	lastIdx := pairIndex(pairAt(data, 0))
	for i := uint32(1); i < n; i++ {
		if pairIndex(pairAt(data, i)) != lastIdx {
			lastIdx = pairIndex(pairAt(data, i))
			unique++
		}
		setPairAt(data, unique, pairAt(data, i))
	}
	return unique + 1
}

// sparseAddPairsToDense applies every pair in the list and buffer regions
// of data onto a dense register array at precision.
func sparseAddPairsToDense(dense []byte, data []byte, precision uint8) {
	listLen := headerListLen(data)
	for i := uint32(0); i < listLen; i++ {
		p := pairAt(data, i)
		denseAdd(dense, pairDenseIndex(p, precision), pairDenseRank(p))
	}
	bufHead := headerBufferHead(data)
	maxSize := pairsMaxSize(data)
	for i := bufHead; i < maxSize; i++ {
		p := pairAt(data, i)
		denseAdd(dense, pairDenseIndex(p, precision), pairDenseRank(p))
	}
}
