package transducer

import "math"

func expf(v float32) float32 {
	return float32(math.Exp(float64(v)))
}

func clampf(v, bound float32) float32 {
	if bound <= 0 {
		return v
	}
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

// computeGradients fills gradients with the loss derivative with respect to
// every logit. When gradients aliases logits, padded cells are zeroed in
// place; otherwise the caller is expected to have zeroed the buffer.
func computeGradients[D Logit](opts Options, ws *Workspace, logits []D, gradients []D, targets []int32, srcLengths, tgtLengths []int32) Status {
	maxT, maxU, d := opts.MaxSrcLen, opts.MaxTgtLen, opts.NumTargets
	h := opts.hypos()
	cell := maxT * maxU
	denoms := ws.Denominators()
	alphaData := ws.Alphas()
	betaData := ws.Betas()

	inPlace := len(gradients) > 0 && len(logits) > 0 && &gradients[0] == &logits[0]

	parallelFor(opts.batch(), opts.workers(), func(n int) {
		b := n / h
		srcLen := int(srcLengths[n])
		tgtLen := int(tgtLengths[b]) + 1
		tgt := targets[b*(maxU-1):]
		base := n * cell
		alphas := grid{data: alphaData[base:], maxU: maxU}
		betas := grid{data: betaData[base:], maxU: maxU}
		cost := -betas.at(0, 0)

		for t := 0; t < maxT; t++ {
			for u := 0; u < maxU; u++ {
				idx := base + t*maxU + u
				if t >= srcLen || u >= tgtLen {
					if inPlace {
						for k := 0; k < d; k++ {
							gradients[idx*d+k] = fromF32[D](0)
						}
					}
					continue
				}
				var den float32
				if opts.FusedLogSoftmax {
					den = denoms[idx]
				}
				c := alphas.at(t, u) + cost - den
				for k := 0; k < d; k++ {
					g := toF32(logits[idx*d+k]) + c
					var grad float32
					switch {
					case k == opts.Blank && t == srcLen-1 && u == tgtLen-1:
						grad = expf(g + betas.at(t, u))
						if opts.FusedLogSoftmax {
							grad -= expf(g)
						}
					case k == opts.Blank && t < srcLen-1:
						grad = expf(g+betas.at(t, u)) - expf(g+betas.at(t+1, u))
					case u < tgtLen-1 && k == int(tgt[u]):
						grad = expf(g+betas.at(t, u)) - expf(g+betas.at(t, u+1))
					default:
						grad = expf(g + betas.at(t, u))
					}
					gradients[idx*d+k] = fromF32[D](clampf(grad, opts.Clamp))
				}
			}
		}
	})
	return StatusSuccess
}
