package transducer

import "fmt"

// Workspace carves caller-allocated scratch memory into the per-stage
// regions. The float region holds denominators, skip/emit log probability
// pairs, alphas and betas. The int region holds the per-row synchronization
// counters used by the wavefront backend.
type Workspace struct {
	opts   Options
	floats []float32
	ints   []int32
}

// FloatWorkspaceSize returns the float32 element count a workspace for o
// requires.
func FloatWorkspaceSize(o Options) int {
	return 5 * o.cells()
}

// IntWorkspaceSize returns the int32 element count a workspace for o
// requires.
func IntWorkspaceSize(o Options) int {
	return 2 * o.batch() * o.MaxTgtLen
}

// NewWorkspace wraps caller memory. The slices must be at least
// FloatWorkspaceSize and IntWorkspaceSize elements long.
func NewWorkspace(o Options, floats []float32, ints []int32) (*Workspace, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if len(floats) < FloatWorkspaceSize(o) {
		return nil, fmt.Errorf("transducer: float workspace %d < %d", len(floats), FloatWorkspaceSize(o))
	}
	if len(ints) < IntWorkspaceSize(o) {
		return nil, fmt.Errorf("transducer: int workspace %d < %d", len(ints), IntWorkspaceSize(o))
	}
	return &Workspace{opts: o, floats: floats, ints: ints}, nil
}

// AllocWorkspace allocates backing memory sized for o.
func AllocWorkspace(o Options) (*Workspace, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return NewWorkspace(o, make([]float32, FloatWorkspaceSize(o)), make([]int32, IntWorkspaceSize(o)))
}

// Denominators is the per-cell row LogSumExp region.
func (w *Workspace) Denominators() []float32 {
	return w.floats[:w.opts.cells()]
}

// LogProbs is the per-cell skip/emit pair region, stride 2.
func (w *Workspace) LogProbs() []float32 {
	n := w.opts.cells()
	return w.floats[n : n+2*n]
}

// Alphas is the forward variable region.
func (w *Workspace) Alphas() []float32 {
	n := w.opts.cells()
	return w.floats[3*n : 4*n]
}

// Betas is the backward variable region.
func (w *Workspace) Betas() []float32 {
	n := w.opts.cells()
	return w.floats[4*n : 5*n]
}

// AlphaCounters is the per (lattice, u) forward tile counter region.
func (w *Workspace) AlphaCounters() []int32 {
	return w.ints[:w.opts.batch()*w.opts.MaxTgtLen]
}

// BetaCounters is the per (lattice, u) backward tile counter region.
func (w *Workspace) BetaCounters() []int32 {
	n := w.opts.batch() * w.opts.MaxTgtLen
	return w.ints[n : 2*n]
}

func (w *Workspace) resetCounters() {
	n := 2 * w.opts.batch() * w.opts.MaxTgtLen
	ints := w.ints[:n]
	for i := range ints {
		ints[i] = 0
	}
}
