package hll

import "math"

// pow2Neg[r] == 2^-r, precomputed for every possible register rank so the
// raw HyperLogLog sum never calls math.Pow in its hot loop.
var pow2Neg = [RankMax + 1]float64{
	1, 0.5, 0.25, 0.125, 0.0625, 0.03125, 0.015625, 0.0078125, 0.00390625,
	0.001953125, 0.0009765625, 0.00048828125, 0.000244140625,
	0.0001220703125, 6.103515625e-05, 3.0517578125e-05, 1.52587890625e-05,
	7.62939453125e-06, 3.814697265625e-06, 1.9073486328125e-06,
	9.5367431640625e-07, 4.76837158203125e-07, 2.384185791015625e-07,
	1.1920928955078125e-07, 5.960464477539063e-08, 2.9802322387695312e-08,
	1.4901161193847656e-08, 7.450580596923828e-09, 3.725290298461914e-09,
	1.862645149230957e-09, 9.313225746154785e-10, 4.656612873077393e-10,
	2.3283064365386963e-10, 1.1641532182693481e-10, 5.820766091346741e-11,
	2.9103830456733704e-11, 1.4551915228366852e-11, 7.275957614183426e-12,
	3.637978807091713e-12, 1.8189894035458565e-12, 9.094947017729282e-13,
	4.547473508864641e-13, 2.2737367544323206e-13, 1.1368683772161603e-13,
	5.684341886080802e-14, 2.842170943040401e-14, 1.4210854715202004e-14,
	7.105427357601002e-15, 3.552713678800501e-15, 1.7763568394002505e-15,
	8.881784197001252e-16, 4.440892098500626e-16, 2.220446049250313e-16,
	1.1102230246251565e-16, 5.551115123125783e-17, 2.7755575615628914e-17,
	1.3877787807814457e-17, 6.938893903907228e-18, 3.469446951953614e-18,
	1.734723475976807e-18, 8.673617379884035e-19, 4.336808689942018e-19,
	2.168404344971009e-19, 1.0842021724855044e-19,
}

// alpha returns the precision-dependent constant in the raw HyperLogLog
// estimator.
func alpha(precision uint8) float64 {
	switch precision {
	case 4:
		return 0.673
	case 5:
		return 0.697
	case 6:
		return 0.709
	default:
		m := float64(nRegisters(precision))
		return 0.7213 / (1.0 + 1.079/m)
	}
}

// linearCounting estimates cardinality from the fraction of empty
// counters: m*ln(m/z).
func linearCounting(counters, emptyCounters float64) float64 {
	return counters * math.Log(counters/emptyCounters)
}

// denseRawEstimate computes the uncorrected HyperLogLog estimate E from a
// dense register array.
func denseRawEstimate(data []byte, precision uint8) float64 {
	n := nRegisters(precision)
	sum := 0.0
	for i := uint32(0); uint64(i) < n; i++ {
		sum += pow2Neg[denseRead(data, i)]
	}
	m := float64(n)
	return alpha(precision) * m * m / sum
}

// denseEstimate implements the dense estimation pipeline: cache lookup,
// linear counting for sparse register arrays, bias-corrected HyperLogLog
// otherwise.
func denseEstimate(e *Estimator) uint64 {
	if e.cachedEstimate >= 0 {
		return uint64(e.cachedEstimate)
	}

	m := nRegisters(e.precision)
	zeros := denseCountZeros(e.data, e.precision)

	if zeros > 0 {
		lc := linearCounting(float64(m), float64(zeros))
		if lc < float64(linearCountingThreshold(e.precision)) {
			e.cachedEstimate = lc
			return uint64(lc)
		}
	}

	raw := denseRawEstimate(e.data, e.precision)
	corrected := raw - biasCorrection(e.precision, raw)
	e.cachedEstimate = corrected
	return uint64(corrected)
}

// sparseEstimate implements the sparse estimation pipeline: merge list
// with buffer, then apply linear counting over the fixed SparsePrecision
// register space. Sparse estimates are never cached — the merge they
// require is cheap and always needed before counting the list.
func sparseEstimate(e *Estimator) uint64 {
	e.data = sparseMergeListWithBuffer(e.data)
	n := float64(headerListLen(e.data))
	m := float64(nRegisters(SparsePrecision))
	return uint64(linearCounting(m, m-n))
}
