package transducer

import (
	"fmt"
	"runtime"
)

// BackendKind selects the execution strategy for the forward/backward stage.
type BackendKind int

const (
	// BackendPool runs every stage as chunked parallel loops on a bounded
	// worker set.
	BackendPool BackendKind = iota
	// BackendWavefront runs the unrestricted dense forward/backward stage
	// with tiled per-row lanes ordered by atomic counters. Other stages and
	// the restricted and sparse paths fall back to the pool.
	BackendWavefront
)

// Options describes one batch. It is immutable for the duration of a call.
type Options struct {
	// BatchSize is B, the number of samples.
	BatchSize int
	// NumHypos is H, hypotheses per sample. Zero means one.
	NumHypos int
	// MaxSrcLen is maxT, the padded source length.
	MaxSrcLen int
	// MaxTgtLen is maxU, the padded target length including the initial
	// blank row.
	MaxTgtLen int
	// NumTargets is D, the vocabulary size including blank.
	NumTargets int
	// Blank is the blank label index.
	Blank int
	// Clamp bounds gradients to [-Clamp, Clamp] when positive.
	Clamp float32
	// LBuffer and RBuffer widen alignment restriction windows when
	// wpEnds is supplied.
	LBuffer int
	RBuffer int
	// FusedLogSoftmax applies the denominator inside logProbs and the
	// softmax identity inside gradients. When false the denominator is
	// treated as zero and the corner subtraction is dropped.
	FusedLogSoftmax bool
	// SparseCells is the total packed cell count across the batch when the
	// sparse layout is in use, zero otherwise.
	SparseCells int
	// Workers caps the goroutines used by the pool backend. Zero means
	// GOMAXPROCS.
	Workers int
	// Backend selects the forward/backward execution strategy.
	Backend BackendKind
}

func (o Options) hypos() int {
	if o.NumHypos <= 0 {
		return 1
	}
	return o.NumHypos
}

// batch returns B*H, the number of independent lattices.
func (o Options) batch() int {
	return o.BatchSize * o.hypos()
}

func (o Options) workers() int {
	n := runtime.GOMAXPROCS(0)
	if o.Workers > 0 && o.Workers < n {
		n = o.Workers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// cells returns the number of lattice cells backing the per-cell regions.
func (o Options) cells() int {
	if o.SparseCells > 0 {
		return o.SparseCells
	}
	return o.batch() * o.MaxSrcLen * o.MaxTgtLen
}

func (o Options) sparse() bool {
	return o.SparseCells > 0
}

// Validate checks the batch-level preconditions. Per-sample preconditions on
// lengths, targets and windows remain the caller's responsibility.
func (o Options) Validate() error {
	if o.BatchSize < 1 {
		return fmt.Errorf("transducer: batch size %d < 1", o.BatchSize)
	}
	if o.MaxSrcLen < 1 {
		return fmt.Errorf("transducer: max source length %d < 1", o.MaxSrcLen)
	}
	if o.MaxTgtLen < 1 {
		return fmt.Errorf("transducer: max target length %d < 1", o.MaxTgtLen)
	}
	if o.NumTargets < 1 {
		return fmt.Errorf("transducer: vocabulary size %d < 1", o.NumTargets)
	}
	if o.Blank < 0 || o.Blank >= o.NumTargets {
		return fmt.Errorf("transducer: blank %d outside [0, %d)", o.Blank, o.NumTargets)
	}
	if o.SparseCells < 0 {
		return fmt.Errorf("transducer: sparse cell count %d < 0", o.SparseCells)
	}
	return nil
}
