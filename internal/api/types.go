package api

// LossRequest is the POST /v1/loss payload. Tensor payloads travel as flat
// row-major arrays with the dimensions alongside.
type LossRequest struct {
	BatchSize  int `json:"batch_size"`
	NumHypos   int `json:"num_hypos,omitempty"`
	MaxSrcLen  int `json:"max_src_len"`
	MaxTgtLen  int `json:"max_tgt_len"`
	NumTargets int `json:"num_targets"`
	Blank      int `json:"blank"`

	Clamp           float32 `json:"clamp,omitempty"`
	FusedLogSoftmax *bool   `json:"fused_log_softmax,omitempty"`
	WithGradients   bool    `json:"with_gradients,omitempty"`

	LBuffer int     `json:"l_buffer,omitempty"`
	RBuffer int     `json:"r_buffer,omitempty"`
	WpEnds  []int32 `json:"wp_ends,omitempty"`

	Logits     []float32 `json:"logits"`
	Targets    []int32   `json:"targets"`
	SrcLengths []int32   `json:"src_lengths"`
	TgtLengths []int32   `json:"tgt_lengths"`
}

// LossResponse is the POST /v1/loss result.
type LossResponse struct {
	ID        string    `json:"id"`
	Object    string    `json:"object"`
	CreatedAt int64     `json:"created_at"`
	Costs     []float32 `json:"costs"`
	Gradients []float32 `json:"gradients,omitempty"`
}

// HealthResponse is the GET /v1/healthz result.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// APIError is the error envelope body.
type APIError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
