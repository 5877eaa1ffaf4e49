package api

import (
	"fmt"

	"github.com/samcharles93/transducer/internal/transducer"
)

// LossService validates loss requests and runs the dense pipeline.
type LossService struct {
	// Workers caps engine goroutines, zero for GOMAXPROCS.
	Workers int
	// Backend selects the forward/backward execution strategy.
	Backend transducer.BackendKind
}

func NewLossService() *LossService {
	return &LossService{}
}

// LossResult carries the computed costs and optional gradients.
type LossResult struct {
	Costs     []float32
	Gradients []float32
}

func (s *LossService) options(req *LossRequest) transducer.Options {
	fused := true
	if req.FusedLogSoftmax != nil {
		fused = *req.FusedLogSoftmax
	}
	return transducer.Options{
		BatchSize:       req.BatchSize,
		NumHypos:        req.NumHypos,
		MaxSrcLen:       req.MaxSrcLen,
		MaxTgtLen:       req.MaxTgtLen,
		NumTargets:      req.NumTargets,
		Blank:           req.Blank,
		Clamp:           req.Clamp,
		LBuffer:         req.LBuffer,
		RBuffer:         req.RBuffer,
		FusedLogSoftmax: fused,
		Workers:         s.Workers,
		Backend:         s.Backend,
	}
}

func (s *LossService) validate(req *LossRequest, opts transducer.Options) error {
	if err := opts.Validate(); err != nil {
		return newInvalidRequest(err.Error())
	}
	h := req.NumHypos
	if h <= 0 {
		h = 1
	}
	batch := req.BatchSize * h
	wantLogits := batch * req.MaxSrcLen * req.MaxTgtLen * req.NumTargets
	if len(req.Logits) != wantLogits {
		return newInvalidRequest(fmt.Sprintf("logits length %d, want %d", len(req.Logits), wantLogits))
	}
	if want := req.BatchSize * (req.MaxTgtLen - 1); len(req.Targets) != want {
		return newInvalidRequest(fmt.Sprintf("targets length %d, want %d", len(req.Targets), want))
	}
	if len(req.SrcLengths) != batch {
		return newInvalidRequest(fmt.Sprintf("src_lengths length %d, want %d", len(req.SrcLengths), batch))
	}
	if len(req.TgtLengths) != req.BatchSize {
		return newInvalidRequest(fmt.Sprintf("tgt_lengths length %d, want %d", len(req.TgtLengths), req.BatchSize))
	}
	if req.WpEnds != nil {
		if want := batch * req.MaxTgtLen; len(req.WpEnds) != want {
			return newInvalidRequest(fmt.Sprintf("wp_ends length %d, want %d", len(req.WpEnds), want))
		}
	}
	for n, l := range req.SrcLengths {
		if l < 1 || int(l) > req.MaxSrcLen {
			return newInvalidRequest(fmt.Sprintf("src_lengths[%d] = %d outside [1, %d]", n, l, req.MaxSrcLen))
		}
	}
	for b, l := range req.TgtLengths {
		if l < 0 || int(l) > req.MaxTgtLen-1 {
			return newInvalidRequest(fmt.Sprintf("tgt_lengths[%d] = %d outside [0, %d]", b, l, req.MaxTgtLen-1))
		}
	}
	return nil
}

// Compute runs the loss pipeline for one request.
func (s *LossService) Compute(req *LossRequest) (*LossResult, error) {
	opts := s.options(req)
	if err := s.validate(req, opts); err != nil {
		return nil, err
	}
	ws, err := transducer.AllocWorkspace(opts)
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}
	costs := make([]float32, req.BatchSize)
	var gradients []float32
	if req.WithGradients {
		gradients = make([]float32, len(req.Logits))
	}
	status := transducer.Compute(opts, ws, req.Logits, req.Targets, req.SrcLengths, req.TgtLengths, costs, gradients, req.WpEnds)
	if err := status.Err(); err != nil {
		return nil, fmt.Errorf("computing loss: %w", err)
	}
	return &LossResult{Costs: costs, Gradients: gradients}, nil
}
