package transducer

import "math"

// denominatorBlock is the row count one denominator task covers.
const denominatorBlock = 128

// computeDenominators fills ws.Denominators with the row LogSumExp of the
// logits over the vocabulary axis. Rows are the lattice cells, dense or
// packed.
func computeDenominators[D Logit](opts Options, ws *Workspace, logits []D) Status {
	rows := opts.cells()
	d := opts.NumTargets
	out := ws.Denominators()

	blocks := (rows + denominatorBlock - 1) / denominatorBlock
	parallelFor(blocks, opts.workers(), func(blk int) {
		lo := blk * denominatorBlock
		hi := lo + denominatorBlock
		if hi > rows {
			hi = rows
		}
		for r := lo; r < hi; r++ {
			row := logits[r*d : r*d+d]
			mx := toF32(row[0])
			for _, v := range row[1:] {
				if f := toF32(v); f > mx {
					mx = f
				}
			}
			var sum float32
			for _, v := range row {
				sum += float32(math.Exp(float64(toF32(v) - mx)))
			}
			out[r] = mx + float32(math.Log(float64(sum)))
		}
	})
	return StatusSuccess
}
