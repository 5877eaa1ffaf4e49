package transducer

// Compute runs the full dense pipeline: denominators, log probability pairs,
// forward/backward variables with per-sample costs, and gradients. Passing a
// nil gradient slice skips the gradient stage. Supplying wpEnds selects the
// restricted recurrences; wpEnds is laid out [B*H, maxU].
//
// Gradients may alias logits, in which case padding cells are zeroed in
// place.
func Compute[D Logit](opts Options, ws *Workspace, logits []D, targets []int32, srcLengths, tgtLengths []int32, costs []D, gradients []D, wpEnds []int32) Status {
	if s := computeDenominators(opts, ws, logits); s != StatusSuccess {
		return s
	}
	if s := computeLogProbs(opts, ws, logits, targets, srcLengths, tgtLengths); s != StatusSuccess {
		return s
	}
	var s Status
	if opts.Backend == BackendWavefront && wpEnds == nil {
		s = computeAlphasBetasWavefront(opts, ws, srcLengths, tgtLengths, costs)
	} else {
		s = computeAlphasBetas[D](opts, ws, srcLengths, tgtLengths, wpEnds, costs)
	}
	if s != StatusSuccess {
		return s
	}
	if gradients == nil {
		return StatusSuccess
	}
	return computeGradients(opts, ws, logits, gradients, targets, srcLengths, tgtLengths)
}

// ComputeSparse runs the packed-cell pipeline. validRanges is laid out
// [B*H, maxU, 2] with inclusive frame windows and cellsPerSample [B*H]
// packed cell counts; opts.SparseCells must equal their total.
func ComputeSparse[D Logit](opts Options, ws *Workspace, logits []D, targets []int32, srcLengths, tgtLengths []int32, costs []D, gradients []D, validRanges, cellsPerSample []int32) Status {
	lay := newSparseLayout(opts, validRanges, cellsPerSample)
	if s := computeDenominators(opts, ws, logits); s != StatusSuccess {
		return s
	}
	if s := computeLogProbsSparse(opts, ws, lay, logits, targets, srcLengths, tgtLengths); s != StatusSuccess {
		return s
	}
	if s := computeAlphasBetasSparse(opts, ws, lay, srcLengths, tgtLengths, costs); s != StatusSuccess {
		return s
	}
	if gradients == nil {
		return StatusSuccess
	}
	return computeGradientsSparse(opts, ws, lay, logits, gradients, targets, srcLengths, tgtLengths)
}

// ComputeAlphas fills alphas (dense, caller-visible float32) for diagnostic
// use. It runs the denominator and log probability stages first.
func ComputeAlphas[D Logit](opts Options, ws *Workspace, logits []D, targets []int32, srcLengths, tgtLengths []int32, alphas []float32, wpEnds []int32) Status {
	if s := computeDenominators(opts, ws, logits); s != StatusSuccess {
		return s
	}
	if s := computeLogProbs(opts, ws, logits, targets, srcLengths, tgtLengths); s != StatusSuccess {
		return s
	}
	maxT, maxU := opts.MaxSrcLen, opts.MaxTgtLen
	h := opts.hypos()
	cell := maxT * maxU
	pairs := ws.LogProbs()
	parallelFor(opts.batch(), opts.workers(), func(n int) {
		b := n / h
		srcLen := int(srcLengths[n])
		tgtLen := int(tgtLengths[b]) + 1
		base := n * cell
		lp := pairTable{data: pairs[2*base:], maxU: maxU}
		out := grid{data: alphas[base:], maxU: maxU}
		if wpEnds != nil {
			check := newAlignmentRestrictionCheck(opts, wpEnds[n*maxU:], srcLen, tgtLen)
			computeAlphaRestricted(lp, out, srcLen, tgtLen, check)
		} else {
			computeAlphaDense(lp, out, srcLen, tgtLen)
		}
	})
	return StatusSuccess
}

// ComputeBetas fills betas and, when costs is non-nil, the per-sample costs.
func ComputeBetas[D Logit](opts Options, ws *Workspace, logits []D, targets []int32, srcLengths, tgtLengths []int32, costs []float32, betas []float32, wpEnds []int32) Status {
	if s := computeDenominators(opts, ws, logits); s != StatusSuccess {
		return s
	}
	if s := computeLogProbs(opts, ws, logits, targets, srcLengths, tgtLengths); s != StatusSuccess {
		return s
	}
	maxT, maxU := opts.MaxSrcLen, opts.MaxTgtLen
	h := opts.hypos()
	cell := maxT * maxU
	pairs := ws.LogProbs()
	parallelFor(opts.batch(), opts.workers(), func(n int) {
		b := n / h
		srcLen := int(srcLengths[n])
		tgtLen := int(tgtLengths[b]) + 1
		base := n * cell
		lp := pairTable{data: pairs[2*base:], maxU: maxU}
		out := grid{data: betas[base:], maxU: maxU}
		if wpEnds != nil {
			check := newAlignmentRestrictionCheck(opts, wpEnds[n*maxU:], srcLen, tgtLen)
			computeBetaRestricted(lp, out, srcLen, tgtLen, check)
		} else {
			computeBetaDense(lp, out, srcLen, tgtLen)
		}
	})
	if costs != nil {
		for b := 0; b < opts.BatchSize; b++ {
			costs[b] = -betas[b*h*cell]
		}
	}
	return StatusSuccess
}

// ComputeAlphasSparse fills the packed forward variables for diagnostic use.
func ComputeAlphasSparse[D Logit](opts Options, ws *Workspace, logits []D, targets []int32, srcLengths, tgtLengths []int32, alphas []float32, validRanges, cellsPerSample []int32) Status {
	lay := newSparseLayout(opts, validRanges, cellsPerSample)
	if s := computeDenominators(opts, ws, logits); s != StatusSuccess {
		return s
	}
	if s := computeLogProbsSparse(opts, ws, lay, logits, targets, srcLengths, tgtLengths); s != StatusSuccess {
		return s
	}
	h := opts.hypos()
	pairs := ws.LogProbs()
	parallelFor(opts.batch(), opts.workers(), func(n int) {
		b := n / h
		computeAlphaSparse(lay, pairs, alphas, n, int(srcLengths[n]), int(tgtLengths[b])+1)
	})
	return StatusSuccess
}

// ComputeBetasSparse fills the packed backward variables and, when costs is
// non-nil, the per-sample costs.
func ComputeBetasSparse[D Logit](opts Options, ws *Workspace, logits []D, targets []int32, srcLengths, tgtLengths []int32, costs []float32, betas []float32, validRanges, cellsPerSample []int32) Status {
	lay := newSparseLayout(opts, validRanges, cellsPerSample)
	if s := computeDenominators(opts, ws, logits); s != StatusSuccess {
		return s
	}
	if s := computeLogProbsSparse(opts, ws, lay, logits, targets, srcLengths, tgtLengths); s != StatusSuccess {
		return s
	}
	h := opts.hypos()
	pairs := ws.LogProbs()
	parallelFor(opts.batch(), opts.workers(), func(n int) {
		b := n / h
		computeBetaSparse(lay, pairs, betas, n, int(srcLengths[n]), int(tgtLengths[b])+1)
	})
	if costs != nil {
		for b := 0; b < opts.BatchSize; b++ {
			n := b * h
			costs[b] = -betas[lay.idx(n, 0, 0)]
		}
	}
	return StatusSuccess
}
