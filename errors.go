package hll

import "github.com/pkg/errors"

// ErrUnsupportedPrecision is returned by New and NewConcrete when the
// requested precision falls outside [MinPrecision, MaxPrecision].
var ErrUnsupportedPrecision = errors.New("hll: unsupported precision")

// ErrMismatchedPrecision is returned by Merge when dst and src were
// created with different dense precisions. Neither operand is mutated.
var ErrMismatchedPrecision = errors.New("hll: mismatched precision")

// ErrInsufficientBytes is returned by FromBytes when the provided slice
// is too short to hold a valid header, or its declared size disagrees
// with the number of bytes actually supplied.
var ErrInsufficientBytes = errors.New("hll: insufficient bytes to deserialize estimator")

// ErrUnsupportedVersion is returned by FromBytes when the leading byte
// names a wire version this build does not understand.
var ErrUnsupportedVersion = errors.New("hll: unsupported serialized version")
