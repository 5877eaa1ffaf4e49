package transducer

// computeAlphaDense fills the forward variables for one lattice and returns
// the forward score alpha(T-1, U-1) + skip(T-1, U-1).
func computeAlphaDense(lp pairTable, alphas grid, srcLen, tgtLen int) float32 {
	alphas.set(0, 0, 0)
	for t := 1; t < srcLen; t++ {
		alphas.set(t, 0, alphas.at(t-1, 0)+lp.skip(t-1, 0))
	}
	for u := 1; u < tgtLen; u++ {
		alphas.set(0, u, alphas.at(0, u-1)+lp.emit(0, u-1))
	}
	for t := 1; t < srcLen; t++ {
		for u := 1; u < tgtLen; u++ {
			skip := alphas.at(t-1, u) + lp.skip(t-1, u)
			emit := alphas.at(t, u-1) + lp.emit(t, u-1)
			alphas.set(t, u, lse(skip, emit))
		}
	}
	return alphas.at(srcLen-1, tgtLen-1) + lp.skip(srcLen-1, tgtLen-1)
}

// computeBetaDense fills the backward variables for one lattice and returns
// the backward score beta(0, 0).
func computeBetaDense(lp pairTable, betas grid, srcLen, tgtLen int) float32 {
	tl, ul := srcLen-1, tgtLen-1
	betas.set(tl, ul, lp.skip(tl, ul))
	for t := tl - 1; t >= 0; t-- {
		betas.set(t, ul, betas.at(t+1, ul)+lp.skip(t, ul))
	}
	for u := ul - 1; u >= 0; u-- {
		betas.set(tl, u, betas.at(tl, u+1)+lp.emit(tl, u))
	}
	for t := tl - 1; t >= 0; t-- {
		for u := ul - 1; u >= 0; u-- {
			skip := betas.at(t+1, u) + lp.skip(t, u)
			emit := betas.at(t, u+1) + lp.emit(t, u)
			betas.set(t, u, lse(skip, emit))
		}
	}
	return betas.at(0, 0)
}

// computeAlphasBetas runs the forward and backward recurrences for every
// lattice as co-scheduled tasks, odd tasks forward and even tasks backward,
// and extracts per-sample costs from the backward scores.
func computeAlphasBetas[D Logit](opts Options, ws *Workspace, srcLengths, tgtLengths, wpEnds []int32, costs []D) Status {
	maxT, maxU := opts.MaxSrcLen, opts.MaxTgtLen
	h := opts.hypos()
	cell := maxT * maxU
	pairs := ws.LogProbs()
	alphaData := ws.Alphas()
	betaData := ws.Betas()

	restricted := wpEnds != nil
	scores := make([]float32, 2*opts.batch())

	parallelFor(2*opts.batch(), opts.workers(), func(task int) {
		n := task / 2
		b := n / h
		srcLen := int(srcLengths[n])
		tgtLen := int(tgtLengths[b]) + 1
		base := n * cell
		lp := pairTable{data: pairs[2*base:], maxU: maxU}
		var check *alignmentRestrictionCheck
		if restricted {
			check = newAlignmentRestrictionCheck(opts, wpEnds[n*maxU:], srcLen, tgtLen)
		}
		if task&1 == 1 {
			alphas := grid{data: alphaData[base:], maxU: maxU}
			if restricted {
				scores[2*n] = computeAlphaRestricted(lp, alphas, srcLen, tgtLen, check)
			} else {
				scores[2*n] = computeAlphaDense(lp, alphas, srcLen, tgtLen)
			}
		} else {
			betas := grid{data: betaData[base:], maxU: maxU}
			if restricted {
				scores[2*n+1] = computeBetaRestricted(lp, betas, srcLen, tgtLen, check)
			} else {
				scores[2*n+1] = computeBetaDense(lp, betas, srcLen, tgtLen)
			}
		}
	})

	if costs != nil {
		for b := 0; b < opts.BatchSize; b++ {
			costs[b] = fromF32[D](-scores[2*(b*h)+1])
		}
	}
	return StatusSuccess
}
