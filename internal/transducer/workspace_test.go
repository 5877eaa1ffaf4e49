package transducer

import "testing"

func TestWorkspaceSizes(t *testing.T) {
	t.Parallel()

	opts := Options{
		BatchSize: 2, NumHypos: 2, MaxSrcLen: 3, MaxTgtLen: 4, NumTargets: 5,
	}
	cells := 2 * 2 * 3 * 4
	if got, want := FloatWorkspaceSize(opts), 5*cells; got != want {
		t.Fatalf("FloatWorkspaceSize = %d, want %d", got, want)
	}
	if got, want := IntWorkspaceSize(opts), 2*2*2*4; got != want {
		t.Fatalf("IntWorkspaceSize = %d, want %d", got, want)
	}

	sparse := opts
	sparse.SparseCells = 10
	if got, want := FloatWorkspaceSize(sparse), 50; got != want {
		t.Fatalf("sparse FloatWorkspaceSize = %d, want %d", got, want)
	}
}

func TestWorkspaceRegionsDisjoint(t *testing.T) {
	t.Parallel()

	opts := Options{BatchSize: 1, MaxSrcLen: 2, MaxTgtLen: 2, NumTargets: 3}
	ws, err := AllocWorkspace(opts)
	if err != nil {
		t.Fatalf("AllocWorkspace: %v", err)
	}
	cells := 4
	if len(ws.Denominators()) != cells {
		t.Fatalf("denominators length = %d, want %d", len(ws.Denominators()), cells)
	}
	if len(ws.LogProbs()) != 2*cells {
		t.Fatalf("logProbs length = %d, want %d", len(ws.LogProbs()), 2*cells)
	}
	if len(ws.Alphas()) != cells || len(ws.Betas()) != cells {
		t.Fatalf("alpha/beta lengths = %d/%d, want %d", len(ws.Alphas()), len(ws.Betas()), cells)
	}

	ws.Denominators()[cells-1] = 1
	ws.LogProbs()[2*cells-1] = 2
	ws.Alphas()[cells-1] = 3
	ws.Betas()[0] = 4
	if ws.Denominators()[cells-1] != 1 || ws.LogProbs()[2*cells-1] != 2 || ws.Alphas()[cells-1] != 3 || ws.Betas()[0] != 4 {
		t.Fatal("workspace regions overlap")
	}
}

func TestNewWorkspaceRejectsShortBuffers(t *testing.T) {
	t.Parallel()

	opts := Options{BatchSize: 1, MaxSrcLen: 2, MaxTgtLen: 2, NumTargets: 3}
	if _, err := NewWorkspace(opts, make([]float32, 1), make([]int32, IntWorkspaceSize(opts))); err == nil {
		t.Fatal("expected error for short float workspace")
	}
	if _, err := NewWorkspace(opts, make([]float32, FloatWorkspaceSize(opts)), nil); err == nil {
		t.Fatal("expected error for short int workspace")
	}
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	valid := Options{BatchSize: 1, MaxSrcLen: 1, MaxTgtLen: 1, NumTargets: 2, Blank: 1}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero batch", func(o *Options) { o.BatchSize = 0 }},
		{"zero maxT", func(o *Options) { o.MaxSrcLen = 0 }},
		{"zero maxU", func(o *Options) { o.MaxTgtLen = 0 }},
		{"zero vocab", func(o *Options) { o.NumTargets = 0 }},
		{"blank out of range", func(o *Options) { o.Blank = 2 }},
		{"negative blank", func(o *Options) { o.Blank = -1 }},
		{"negative sparse cells", func(o *Options) { o.SparseCells = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := valid
			tc.mutate(&o)
			if err := o.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	if err := StatusSuccess.Err(); err != nil {
		t.Fatalf("StatusSuccess.Err() = %v, want nil", err)
	}
	if err := StatusGradientsFailed.Err(); err == nil {
		t.Fatal("StatusGradientsFailed.Err() = nil, want error")
	}
	if StatusLogProbsFailed.String() == "" {
		t.Fatal("status string empty")
	}
}
