package transducer

// alignmentRestrictionCheck limits lattice transitions to a time window per
// target row, derived from per-label word piece end frames widened by the
// left and right buffers.
type alignmentRestrictionCheck struct {
	wpEnds  []int32
	lBuffer int
	rBuffer int
	srcLen  int
	tgtLen  int
}

func newAlignmentRestrictionCheck(opts Options, wpEnds []int32, srcLen, tgtLen int) *alignmentRestrictionCheck {
	return &alignmentRestrictionCheck{
		wpEnds:  wpEnds,
		lBuffer: opts.LBuffer,
		rBuffer: opts.RBuffer,
		srcLen:  srcLen,
		tgtLen:  tgtLen,
	}
}

// validTimeRanges returns the inclusive [start, end] frame window of row u.
// Row 0 always starts at frame 0 and the last row always ends at the last
// frame.
func (c *alignmentRestrictionCheck) validTimeRanges(u int) (int, int) {
	start := 0
	if u > 0 {
		start = int(c.wpEnds[u-1]) - c.lBuffer
		if start < 0 {
			start = 0
		}
	}
	end := c.srcLen - 1
	if u < c.tgtLen-1 {
		e := int(c.wpEnds[u]) + c.rBuffer
		if e < end {
			end = e
		}
	}
	return start, end
}

func (c *alignmentRestrictionCheck) alphaBlankTransition(t, u int) bool {
	start, end := c.validTimeRanges(u)
	return t >= 1 && t-1 >= start && t <= end
}

func (c *alignmentRestrictionCheck) alphaEmitTransition(t, u int) bool {
	if u < 1 {
		return false
	}
	start, end := c.validTimeRanges(u)
	if t < start || t > end {
		return false
	}
	pStart, pEnd := c.validTimeRanges(u - 1)
	return t >= pStart && t <= pEnd
}

func (c *alignmentRestrictionCheck) betaBlankTransition(t, u int) bool {
	start, end := c.validTimeRanges(u)
	return t >= start && t+1 <= end
}

func (c *alignmentRestrictionCheck) betaEmitTransition(t, u int) bool {
	if u+1 >= c.tgtLen {
		return false
	}
	start, end := c.validTimeRanges(u)
	if t < start || t > end {
		return false
	}
	nStart, nEnd := c.validTimeRanges(u + 1)
	return t >= nStart && t <= nEnd
}

// computeAlphaRestricted fills the forward variables under the window
// predicates. Cells outside the windows stay at -inf.
func computeAlphaRestricted(lp pairTable, alphas grid, srcLen, tgtLen int, check *alignmentRestrictionCheck) float32 {
	for t := 0; t < srcLen; t++ {
		for u := 0; u < tgtLen; u++ {
			alphas.set(t, u, negInf)
		}
	}
	alphas.set(0, 0, 0)
	for t := 1; t < srcLen; t++ {
		if !check.alphaBlankTransition(t, 0) {
			break
		}
		alphas.set(t, 0, alphas.at(t-1, 0)+lp.skip(t-1, 0))
	}
	for u := 1; u < tgtLen; u++ {
		if !check.alphaEmitTransition(0, u) {
			break
		}
		alphas.set(0, u, alphas.at(0, u-1)+lp.emit(0, u-1))
	}
	for t := 1; t < srcLen; t++ {
		for u := 1; u < tgtLen; u++ {
			acc := negInf
			if check.alphaBlankTransition(t, u) {
				acc = alphas.at(t-1, u) + lp.skip(t-1, u)
			}
			if check.alphaEmitTransition(t, u) {
				acc = lse(acc, alphas.at(t, u-1)+lp.emit(t, u-1))
			}
			if !isNegInf(acc) {
				alphas.set(t, u, acc)
			}
		}
	}
	return alphas.at(srcLen-1, tgtLen-1) + lp.skip(srcLen-1, tgtLen-1)
}

// computeBetaRestricted fills the backward variables under the window
// predicates.
func computeBetaRestricted(lp pairTable, betas grid, srcLen, tgtLen int, check *alignmentRestrictionCheck) float32 {
	for t := 0; t < srcLen; t++ {
		for u := 0; u < tgtLen; u++ {
			betas.set(t, u, negInf)
		}
	}
	tl, ul := srcLen-1, tgtLen-1
	betas.set(tl, ul, lp.skip(tl, ul))
	for t := tl - 1; t >= 0; t-- {
		if !check.betaBlankTransition(t, ul) {
			break
		}
		betas.set(t, ul, betas.at(t+1, ul)+lp.skip(t, ul))
	}
	for u := ul - 1; u >= 0; u-- {
		if !check.betaEmitTransition(tl, u) {
			break
		}
		betas.set(tl, u, betas.at(tl, u+1)+lp.emit(tl, u))
	}
	for t := tl - 1; t >= 0; t-- {
		for u := ul - 1; u >= 0; u-- {
			acc := negInf
			if check.betaBlankTransition(t, u) {
				acc = betas.at(t+1, u) + lp.skip(t, u)
			}
			if check.betaEmitTransition(t, u) {
				acc = lse(acc, betas.at(t, u+1)+lp.emit(t, u))
			}
			if !isNegInf(acc) {
				betas.set(t, u, acc)
			}
		}
	}
	return betas.at(0, 0)
}
