package transducer

// pairTable views the skip/emit region as a per-lattice (t, u) table with
// stride 2.
type pairTable struct {
	data []float32
	maxU int
}

func (p pairTable) skip(t, u int) float32 {
	return p.data[2*(t*p.maxU+u)]
}

func (p pairTable) emit(t, u int) float32 {
	return p.data[2*(t*p.maxU+u)+1]
}

func (p pairTable) setSkip(t, u int, v float32) {
	p.data[2*(t*p.maxU+u)] = v
}

func (p pairTable) setEmit(t, u int, v float32) {
	p.data[2*(t*p.maxU+u)+1] = v
}

// grid views a per-cell float32 region as a per-lattice (t, u) table.
type grid struct {
	data []float32
	maxU int
}

func (g grid) at(t, u int) float32 {
	return g.data[t*g.maxU+u]
}

func (g grid) set(t, u int, v float32) {
	g.data[t*g.maxU+u] = v
}

// computeLogProbs fills the skip/emit pair for every dense cell. skip is the
// blank log probability and emit the target-label log probability, both less
// the denominator when fused.
func computeLogProbs[D Logit](opts Options, ws *Workspace, logits []D, targets []int32, srcLengths, tgtLengths []int32) Status {
	maxT, maxU, d := opts.MaxSrcLen, opts.MaxTgtLen, opts.NumTargets
	h := opts.hypos()
	cell := maxT * maxU
	denoms := ws.Denominators()
	pairs := ws.LogProbs()

	parallelFor(opts.batch(), opts.workers(), func(n int) {
		b := n / h
		srcLen := int(srcLengths[n])
		tgtLen := int(tgtLengths[b]) + 1
		tgt := targets[b*(maxU-1):]
		base := n * cell
		lp := pairTable{data: pairs[2*base:], maxU: maxU}
		for t := 0; t < srcLen; t++ {
			for u := 0; u < tgtLen; u++ {
				idx := base + t*maxU + u
				var den float32
				if opts.FusedLogSoftmax {
					den = denoms[idx]
				}
				lp.setSkip(t, u, toF32(logits[idx*d+opts.Blank])-den)
				if u < tgtLen-1 {
					lp.setEmit(t, u, toF32(logits[idx*d+int(tgt[u])])-den)
				}
			}
		}
	})
	return StatusSuccess
}
