package hll

import "math/bits"

// ones returns an unsigned value whose n least significant bits are set.
func ones(n uint8) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

// registerIndex extracts the register index addressed by the top
// precision bits of hash.
func registerIndex(hash uint64, precision uint8) uint32 {
	return uint32(hash >> (64 - precision))
}

// rank returns one plus the number of trailing zero bits of hash once the
// top precision bits (the register index) have been forced to one. Forcing
// those bits guarantees the trailing-zero count terminates within the
// remaining 64-precision bits, so the returned rank never exceeds
// RankMax for any supported precision.
func rank(hash uint64, precision uint8) uint8 {
	masked := hash | (ones(precision) << (64 - precision))
	r := uint8(bits.TrailingZeros64(masked)) + 1
	return r
}
