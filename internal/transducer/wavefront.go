package transducer

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// wavefrontTile is the number of frames one tile covers.
const wavefrontTile = 32

// computeAlphasBetasWavefront runs the unrestricted dense forward/backward
// stage with one lane per (lattice, direction, u) row. Each lane processes
// the time axis in tiles; per-row atomic counters in the int workspace order
// each tile of a row after the neighboring row has published the tile that
// follows it in processing order (n+1 forward, n-1 backward) so dependent
// cells are published before they are read.
func computeAlphasBetasWavefront[D Logit](opts Options, ws *Workspace, srcLengths, tgtLengths []int32, costs []D) Status {
	maxT, maxU := opts.MaxSrcLen, opts.MaxTgtLen
	h := opts.hypos()
	cell := maxT * maxU
	pairs := ws.LogProbs()
	alphaData := ws.Alphas()
	betaData := ws.Betas()
	ws.resetCounters()
	alphaCounters := ws.AlphaCounters()
	betaCounters := ws.BetaCounters()

	var wg sync.WaitGroup
	for n := 0; n < opts.batch(); n++ {
		b := n / h
		srcLen := int(srcLengths[n])
		tgtLen := int(tgtLengths[b]) + 1
		base := n * cell
		lp := pairTable{data: pairs[2*base:], maxU: maxU}
		ac := alphaCounters[n*maxU : (n+1)*maxU]
		bc := betaCounters[n*maxU : (n+1)*maxU]
		tiles := (srcLen + wavefrontTile - 1) / wavefrontTile

		for u := 0; u < tgtLen; u++ {
			wg.Add(2)
			go func(u int) {
				defer wg.Done()
				alphaLane(lp, grid{data: alphaData[base:], maxU: maxU}, ac, u, srcLen, tiles)
			}(u)
			go func(u int) {
				defer wg.Done()
				betaLane(lp, grid{data: betaData[base:], maxU: maxU}, bc, u, srcLen, tgtLen, tiles)
			}(u)
		}
	}
	wg.Wait()

	if costs != nil {
		for b := 0; b < opts.BatchSize; b++ {
			n := b * h
			costs[b] = fromF32[D](-betaData[n*cell])
		}
	}
	return StatusSuccess
}

func waitCounter(c *int32, want int32) {
	for atomic.LoadInt32(c) < want {
		runtime.Gosched()
	}
}

// alphaLane fills row u of the forward variables tile by tile. Tile n waits
// until row u-1 has published tile n+1, so every (t, u-1) read is complete.
func alphaLane(lp pairTable, alphas grid, counters []int32, u, srcLen, tiles int) {
	for tile := 0; tile < tiles; tile++ {
		if u > 0 {
			want := int32(tile + 2)
			if tile == tiles-1 {
				want = int32(tiles)
			}
			waitCounter(&counters[u-1], want)
		}
		lo := tile * wavefrontTile
		hi := lo + wavefrontTile
		if hi > srcLen {
			hi = srcLen
		}
		for t := lo; t < hi; t++ {
			switch {
			case t == 0 && u == 0:
				alphas.set(0, 0, 0)
			case u == 0:
				alphas.set(t, 0, alphas.at(t-1, 0)+lp.skip(t-1, 0))
			case t == 0:
				alphas.set(0, u, alphas.at(0, u-1)+lp.emit(0, u-1))
			default:
				skip := alphas.at(t-1, u) + lp.skip(t-1, u)
				emit := alphas.at(t, u-1) + lp.emit(t, u-1)
				alphas.set(t, u, lse(skip, emit))
			}
		}
		atomic.StoreInt32(&counters[u], int32(tile+1))
	}
}

// betaLane fills row u of the backward variables in descending time tiles.
// Tile n of row u waits until row u+1 has published tile n-1, the tile it
// processes after tile n.
func betaLane(lp pairTable, betas grid, counters []int32, u, srcLen, tgtLen, tiles int) {
	tl, ul := srcLen-1, tgtLen-1
	for tile := tiles - 1; tile >= 0; tile-- {
		if u < ul {
			want := int32(tiles - tile + 1)
			if tile == 0 {
				want = int32(tiles)
			}
			waitCounter(&counters[u+1], want)
		}
		lo := tile * wavefrontTile
		hi := lo + wavefrontTile
		if hi > srcLen {
			hi = srcLen
		}
		for t := hi - 1; t >= lo; t-- {
			switch {
			case t == tl && u == ul:
				betas.set(tl, ul, lp.skip(tl, ul))
			case u == ul:
				betas.set(t, ul, betas.at(t+1, ul)+lp.skip(t, ul))
			case t == tl:
				betas.set(tl, u, betas.at(tl, u+1)+lp.emit(tl, u))
			default:
				skip := betas.at(t+1, u) + lp.skip(t, u)
				emit := betas.at(t, u+1) + lp.emit(t, u)
				betas.set(t, u, lse(skip, emit))
			}
		}
		atomic.StoreInt32(&counters[u], int32(tiles-tile))
	}
}
