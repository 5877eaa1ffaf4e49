package transducer

// sparseLayout maps dense lattice coordinates onto the packed cell array.
// validRanges carries the inclusive [start, end] frame window per (lattice,
// u) row with stride 2, cellsPerSample the packed cell count per lattice.
type sparseLayout struct {
	validRanges []int32
	rowOffsets  []int32
	bases       []int
	maxU        int
}

func newSparseLayout(opts Options, validRanges, cellsPerSample []int32) sparseLayout {
	batch := opts.batch()
	maxU := opts.MaxTgtLen
	s := sparseLayout{
		validRanges: validRanges,
		rowOffsets:  make([]int32, batch*maxU),
		bases:       make([]int, batch),
		maxU:        maxU,
	}
	base := 0
	for n := 0; n < batch; n++ {
		s.bases[n] = base
		off := int32(0)
		for u := 0; u < maxU; u++ {
			s.rowOffsets[n*maxU+u] = off
			start, end := s.rng(n, u)
			if end >= start {
				off += int32(end - start + 1)
			}
		}
		base += int(cellsPerSample[n])
	}
	return s
}

// rng returns the inclusive frame window of row u. An empty row has
// end < start.
func (s sparseLayout) rng(n, u int) (int, int) {
	return int(s.validRanges[2*(n*s.maxU+u)]), int(s.validRanges[2*(n*s.maxU+u)+1])
}

func (s sparseLayout) has(n, t, u int) bool {
	if u < 0 || u >= s.maxU {
		return false
	}
	start, end := s.rng(n, u)
	return t >= start && t <= end
}

// idx returns the packed cell index of (n, t, u). Only defined when
// has(n, t, u).
func (s sparseLayout) idx(n, t, u int) int {
	start, _ := s.rng(n, u)
	return s.bases[n] + int(s.rowOffsets[n*s.maxU+u]) + t - start
}

// sampleCells returns the packed cell span of lattice n.
func (s sparseLayout) sampleCells(n int) (int, int) {
	lo := s.bases[n]
	hi := lo
	if n+1 < len(s.bases) {
		hi = s.bases[n+1]
	} else {
		u := s.maxU - 1
		start, end := s.rng(n, u)
		hi = lo + int(s.rowOffsets[n*s.maxU+u])
		if end >= start {
			hi += end - start + 1
		}
	}
	return lo, hi
}

// computeLogProbsSparse fills skip/emit pairs for packed cells only.
func computeLogProbsSparse[D Logit](opts Options, ws *Workspace, lay sparseLayout, logits []D, targets []int32, srcLengths, tgtLengths []int32) Status {
	maxU, d := opts.MaxTgtLen, opts.NumTargets
	h := opts.hypos()
	denoms := ws.Denominators()
	pairs := ws.LogProbs()

	parallelFor(opts.batch(), opts.workers(), func(n int) {
		b := n / h
		tgtLen := int(tgtLengths[b]) + 1
		tgt := targets[b*(maxU-1):]
		for u := 0; u < tgtLen; u++ {
			start, end := lay.rng(n, u)
			for t := start; t <= end; t++ {
				cell := lay.idx(n, t, u)
				var den float32
				if opts.FusedLogSoftmax {
					den = denoms[cell]
				}
				pairs[2*cell] = toF32(logits[cell*d+opts.Blank]) - den
				if u < tgtLen-1 {
					pairs[2*cell+1] = toF32(logits[cell*d+int(tgt[u])]) - den
				}
			}
		}
	})
	return StatusSuccess
}

// computeAlphaSparse fills the packed forward variables for one lattice and
// returns the forward score. Missing neighbors contribute -inf.
func computeAlphaSparse(lay sparseLayout, pairs, alphas []float32, n, srcLen, tgtLen int) float32 {
	lo, hi := lay.sampleCells(n)
	for i := lo; i < hi; i++ {
		alphas[i] = negInf
	}
	alphas[lay.idx(n, 0, 0)] = 0
	for u := 0; u < tgtLen; u++ {
		start, end := lay.rng(n, u)
		for t := start; t <= end; t++ {
			if t == 0 && u == 0 {
				continue
			}
			acc := negInf
			if lay.has(n, t-1, u) {
				p := lay.idx(n, t-1, u)
				acc = alphas[p] + pairs[2*p]
			}
			if u > 0 && lay.has(n, t, u-1) {
				p := lay.idx(n, t, u-1)
				acc = lse(acc, alphas[p]+pairs[2*p+1])
			}
			if !isNegInf(acc) {
				alphas[lay.idx(n, t, u)] = acc
			}
		}
	}
	last := lay.idx(n, srcLen-1, tgtLen-1)
	return alphas[last] + pairs[2*last]
}

// computeBetaSparse fills the packed backward variables for one lattice and
// returns the backward score beta(0, 0).
func computeBetaSparse(lay sparseLayout, pairs, betas []float32, n, srcLen, tgtLen int) float32 {
	lo, hi := lay.sampleCells(n)
	for i := lo; i < hi; i++ {
		betas[i] = negInf
	}
	last := lay.idx(n, srcLen-1, tgtLen-1)
	betas[last] = pairs[2*last]
	for u := tgtLen - 1; u >= 0; u-- {
		start, end := lay.rng(n, u)
		for t := end; t >= start; t-- {
			if t == srcLen-1 && u == tgtLen-1 {
				continue
			}
			acc := negInf
			if t+1 < srcLen && lay.has(n, t+1, u) {
				cur := lay.idx(n, t, u)
				acc = betas[lay.idx(n, t+1, u)] + pairs[2*cur]
			}
			if u+1 < tgtLen && lay.has(n, t, u+1) {
				cur := lay.idx(n, t, u)
				acc = lse(acc, betas[lay.idx(n, t, u+1)]+pairs[2*cur+1])
			}
			if !isNegInf(acc) {
				betas[lay.idx(n, t, u)] = acc
			}
		}
	}
	return betas[lay.idx(n, 0, 0)]
}

// computeAlphasBetasSparse runs the packed forward and backward recurrences
// as co-scheduled tasks and extracts per-sample costs.
func computeAlphasBetasSparse[D Logit](opts Options, ws *Workspace, lay sparseLayout, srcLengths, tgtLengths []int32, costs []D) Status {
	h := opts.hypos()
	pairs := ws.LogProbs()
	alphas := ws.Alphas()
	betas := ws.Betas()
	scores := make([]float32, 2*opts.batch())

	parallelFor(2*opts.batch(), opts.workers(), func(task int) {
		n := task / 2
		b := n / h
		srcLen := int(srcLengths[n])
		tgtLen := int(tgtLengths[b]) + 1
		if task&1 == 1 {
			scores[2*n] = computeAlphaSparse(lay, pairs, alphas, n, srcLen, tgtLen)
		} else {
			scores[2*n+1] = computeBetaSparse(lay, pairs, betas, n, srcLen, tgtLen)
		}
	})

	if costs != nil {
		for b := 0; b < opts.BatchSize; b++ {
			costs[b] = fromF32[D](-scores[2*(b*h)+1])
		}
	}
	return StatusSuccess
}

// computeGradientsSparse fills gradients for packed cells. The packed layout
// has no padding cells, so in-place reuse needs no zeroing pass.
func computeGradientsSparse[D Logit](opts Options, ws *Workspace, lay sparseLayout, logits []D, gradients []D, targets []int32, srcLengths, tgtLengths []int32) Status {
	maxU, d := opts.MaxTgtLen, opts.NumTargets
	h := opts.hypos()
	denoms := ws.Denominators()
	alphas := ws.Alphas()
	betas := ws.Betas()

	betaAt := func(n, t, u int) float32 {
		if !lay.has(n, t, u) {
			return negInf
		}
		return betas[lay.idx(n, t, u)]
	}

	parallelFor(opts.batch(), opts.workers(), func(n int) {
		b := n / h
		srcLen := int(srcLengths[n])
		tgtLen := int(tgtLengths[b]) + 1
		tgt := targets[b*(maxU-1):]
		cost := -betas[lay.idx(n, 0, 0)]

		for u := 0; u < tgtLen; u++ {
			start, end := lay.rng(n, u)
			for t := start; t <= end; t++ {
				cell := lay.idx(n, t, u)
				var den float32
				if opts.FusedLogSoftmax {
					den = denoms[cell]
				}
				c := alphas[cell] + cost - den
				for k := 0; k < d; k++ {
					g := toF32(logits[cell*d+k]) + c
					var grad float32
					switch {
					case k == opts.Blank && t == srcLen-1 && u == tgtLen-1:
						grad = expf(g + betas[cell])
						if opts.FusedLogSoftmax {
							grad -= expf(g)
						}
					case k == opts.Blank && t < srcLen-1:
						grad = expf(g+betas[cell]) - expf(g+betaAt(n, t+1, u))
					case u < tgtLen-1 && k == int(tgt[u]):
						grad = expf(g+betas[cell]) - expf(g+betaAt(n, t, u+1))
					default:
						grad = expf(g + betas[cell])
					}
					gradients[cell*d+k] = fromF32[D](clampf(grad, opts.Clamp))
				}
			}
		}
	})
	return StatusSuccess
}
