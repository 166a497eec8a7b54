package hll

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// MinPrecision is the smallest precision New/NewConcrete will accept.
	MinPrecision = 6
	// MaxPrecision is the largest precision New/NewConcrete will accept.
	MaxPrecision = 18
	// NPrecisions is the number of supported precisions, used to size the
	// empirical lookup tables.
	NPrecisions = MaxPrecision - MinPrecision + 1

	wireVersion = 1
	wireHeader  = 3
)

// Representation identifies which of the two internal encodings an
// Estimator's data is currently stored in.
type Representation uint8

const (
	// Sparse stores observations as a sorted list of (index, rank) pairs
	// plus an unsorted write buffer. It is cheap for small cardinalities
	// and grows with them until it would exceed the dense footprint, at
	// which point it promotes to Dense.
	Sparse Representation = iota
	// Dense stores one rank per register in a fixed-size packed array.
	// Its footprint depends only on precision, never on cardinality.
	Dense
)

// Estimator is a HyperLogLog cardinality estimator. It starts out in
// whichever representation New chooses for its precision and promotes
// itself from Sparse to Dense as observations accumulate. The zero value
// is not a valid Estimator; use New or NewConcrete.
type Estimator struct {
	representation Representation
	precision      uint8
	data           []byte

	// cachedEstimate holds the last computed dense estimate, or -1 if the
	// cache is invalid. Sparse estimates are never cached.
	cachedEstimate float64
}

// New creates an Estimator at the given precision, choosing Sparse or
// Dense automatically the way the reference implementation does: Sparse
// is used whenever the precision is high enough for it to be worthwhile,
// since a sparse buffer at low precision is barely smaller than the
// dense array it would otherwise replace.
func New(precision uint8) (Estimator, error) {
	rep := Dense
	if precision >= SparseMinPrecision {
		rep = Sparse
	}
	return NewConcrete(precision, rep)
}

// NewConcrete creates an Estimator at the given precision in the requested
// representation, except that a Sparse request below SparseMinPrecision
// yields a Dense estimator. It returns ErrUnsupportedPrecision if
// precision falls outside [MinPrecision, MaxPrecision].
func NewConcrete(precision uint8, representation Representation) (Estimator, error) {
	if precision < MinPrecision || precision > MaxPrecision {
		return Estimator{}, ErrUnsupportedPrecision
	}
	if representation == Sparse && precision < SparseMinPrecision {
		representation = Dense
	}

	e := Estimator{
		representation: representation,
		precision:      precision,
		cachedEstimate: -1,
	}

	switch representation {
	case Sparse:
		e.data = newSparseData(SparseInitialBsize)
	case Dense:
		e.data = newDenseData(precision)
	}

	return e, nil
}

// Precision returns SparsePrecision while the estimator is still in its
// Sparse representation, or its dense precision once it has promoted to
// (or was created as) Dense.
func (e *Estimator) Precision() uint8 {
	if e.representation == Sparse {
		return SparsePrecision
	}
	return e.precision
}

// StandardError returns the expected relative standard error of a
// HyperLogLog estimator at the given precision: 1.04/sqrt(m).
func StandardError(precision uint8) float64 {
	return 1.04 / math.Sqrt(float64(nRegisters(precision)))
}

// Add folds a 64-bit hash of an observed value into the estimator. The
// hash is assumed to already have good bit distribution; Add does no
// hashing of its own.
func (e *Estimator) Add(hash uint64) {
	switch e.representation {
	case Dense:
		idx := registerIndex(hash, e.precision)
		r := rank(hash, e.precision)
		if denseAdd(e.data, idx, r) {
			e.cachedEstimate = -1
		}
	case Sparse:
		idx := registerIndex(hash, SparsePrecision)
		r := rank(hash, SparsePrecision)
		e.sparseAdd(newPair(idx, r))
	}
}

// sparseAdd appends a pair to the write buffer, merging it with the list
// and growing or promoting to Dense once the buffer fills.
func (e *Estimator) sparseAdd(p pair) {
	if sparseIsFull(e.data) {
		e.data = sparseMergeListWithBuffer(e.data)
		if sparseIsFull(e.data) {
			if sparseCanGrow(e.data, e.precision) {
				e.data = sparseGrow(e.data)
			} else {
				e.promoteToDense()
			}
		}
	}
	// promoteToDense may have changed representation; re-check.
	if e.representation == Dense {
		idx := pairDenseIndex(p, e.precision)
		r := pairDenseRank(p)
		if denseAdd(e.data, idx, r) {
			e.cachedEstimate = -1
		}
		return
	}
	sparseBufferAdd(e.data, p)
}

// promoteToDense converts a Sparse estimator to Dense in place, applying
// every observed pair onto a freshly allocated register array. This is a
// one-way transition: Dense estimators never revert to Sparse.
func (e *Estimator) promoteToDense() {
	merged := sparseMergeListWithBuffer(e.data)
	dense := newDenseData(e.precision)
	sparseAddPairsToDense(dense, merged, e.precision)
	e.representation = Dense
	e.data = dense
	e.cachedEstimate = -1
}

// Estimate returns the estimator's current cardinality estimate.
func (e *Estimator) Estimate() uint64 {
	switch e.representation {
	case Dense:
		return denseEstimate(e)
	default:
		return sparseEstimate(e)
	}
}

// Merge folds src's observations into dst. It returns ErrMismatchedPrecision,
// leaving both operands unmodified, if dst and src were created with
// different precisions.
func (dst *Estimator) Merge(src *Estimator) error {
	if dst == src {
		return nil
	}
	if dst.precision != src.precision {
		return errors.WithStack(ErrMismatchedPrecision)
	}

	if dst.representation == Sparse {
		dst.promoteToDense()
	}

	if src.representation == Sparse {
		merged := sparseMergeListWithBuffer(src.data)
		sparseAddPairsToDense(dst.data, merged, dst.precision)
	} else {
		denseMerge(dst.data, src.data, dst.precision)
	}
	dst.cachedEstimate = -1

	return nil
}

// denseMerge takes, register by register, the greater of dst's and
// src's rank.
func denseMerge(dst, src []byte, precision uint8) {
	n := nRegisters(precision)
	for i := uint32(0); uint64(i) < n; i++ {
		denseAdd(dst, i, denseRead(src, i))
	}
}

// Close releases any resources held by the estimator. Estimator holds
// nothing beyond Go-managed memory, so Close only guards against reuse
// after release.
func (e *Estimator) Close() {
	e.data = nil
}

// Bytes serializes the estimator into an opaque byte slice suitable for
// storage or transmission; FromBytes reverses it.
func (e *Estimator) Bytes() []byte {
	out := make([]byte, wireHeader+len(e.data))
	out[0] = wireVersion
	out[1] = byte(e.representation)
	out[2] = e.precision
	copy(out[wireHeader:], e.data)
	return out
}

// FromBytes deserializes an Estimator previously serialized with Bytes.
// It returns ErrUnsupportedVersion or ErrInsufficientBytes if the slice
// is malformed or truncated.
func FromBytes(raw []byte) (Estimator, error) {
	if len(raw) < wireHeader {
		return Estimator{}, errors.WithStack(ErrInsufficientBytes)
	}
	if raw[0] != wireVersion {
		return Estimator{}, errors.WithStack(ErrUnsupportedVersion)
	}

	representation := Representation(raw[1])
	precision := raw[2]
	if precision < MinPrecision || precision > MaxPrecision {
		return Estimator{}, errors.WithStack(ErrUnsupportedPrecision)
	}

	payload := raw[wireHeader:]

	switch representation {
	case Dense:
		if len(payload) != denseBsize(precision) {
			return Estimator{}, errors.WithStack(ErrInsufficientBytes)
		}
	case Sparse:
		if len(payload) < sparseHeaderSize || int(headerByteSize(payload)) != len(payload) {
			return Estimator{}, errors.WithStack(ErrInsufficientBytes)
		}
	default:
		return Estimator{}, errors.WithStack(ErrUnsupportedVersion)
	}

	data := make([]byte, len(payload))
	copy(data, payload)

	return Estimator{
		representation: representation,
		precision:      precision,
		data:           data,
		cachedEstimate: -1,
	}, nil
}
