package api

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
)

func newTestEcho() *echo.Echo {
	server := NewServer(NewLossService())
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestComputeLossSingleCell(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	body := `{
		"batch_size": 1,
		"max_src_len": 1,
		"max_tgt_len": 1,
		"num_targets": 2,
		"blank": 0,
		"with_gradients": true,
		"logits": [0, 0],
		"targets": [],
		"src_lengths": [1],
		"tgt_lengths": [0]
	}`
	rec := doJSON(t, e, http.MethodPost, "/v1/loss", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("loss status: got %d body=%s", rec.Code, rec.Body.String())
	}

	var resp LossResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode loss response: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "loss_") {
		t.Fatalf("unexpected id: %q", resp.ID)
	}
	if resp.Object != "loss" {
		t.Fatalf("unexpected object: %q", resp.Object)
	}
	if resp.CreatedAt == 0 {
		t.Fatalf("expected created_at timestamp")
	}
	if len(resp.Costs) != 1 {
		t.Fatalf("costs length = %d, want 1", len(resp.Costs))
	}
	ln2 := float32(math.Log(2))
	if math.Abs(float64(resp.Costs[0]-ln2)) > 1e-4 {
		t.Fatalf("cost = %v, want %v", resp.Costs[0], ln2)
	}
	if len(resp.Gradients) != 2 {
		t.Fatalf("gradients length = %d, want 2", len(resp.Gradients))
	}
	if math.Abs(float64(resp.Gradients[0]+0.5)) > 1e-4 || math.Abs(float64(resp.Gradients[1]-0.5)) > 1e-4 {
		t.Fatalf("gradients = %v, want [-0.5, 0.5]", resp.Gradients)
	}
}

func TestComputeLossWithoutGradients(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	body := `{
		"batch_size": 1,
		"max_src_len": 2,
		"max_tgt_len": 1,
		"num_targets": 2,
		"blank": 0,
		"logits": [0, 0, 0, 0],
		"targets": [],
		"src_lengths": [2],
		"tgt_lengths": [0]
	}`
	rec := doJSON(t, e, http.MethodPost, "/v1/loss", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("loss status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp LossResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode loss response: %v", err)
	}
	want := float32(2 * math.Log(2))
	if math.Abs(float64(resp.Costs[0]-want)) > 1e-4 {
		t.Fatalf("cost = %v, want %v", resp.Costs[0], want)
	}
	if resp.Gradients != nil {
		t.Fatalf("expected no gradients, got %v", resp.Gradients)
	}
}

func TestComputeLossValidationErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho()

	shortLogits := `{
		"batch_size": 1,
		"max_src_len": 1,
		"max_tgt_len": 1,
		"num_targets": 2,
		"blank": 0,
		"logits": [0],
		"targets": [],
		"src_lengths": [1],
		"tgt_lengths": [0]
	}`
	rec := doJSON(t, e, http.MethodPost, "/v1/loss", shortLogits)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "logits length") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}

	badDims := `{
		"batch_size": 0,
		"max_src_len": 1,
		"max_tgt_len": 1,
		"num_targets": 2,
		"blank": 0,
		"logits": [],
		"targets": [],
		"src_lengths": [],
		"tgt_lengths": []
	}`
	rec = doJSON(t, e, http.MethodPost, "/v1/loss", badDims)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero batch, got %d body=%s", rec.Code, rec.Body.String())
	}

	badSrcLen := `{
		"batch_size": 1,
		"max_src_len": 1,
		"max_tgt_len": 1,
		"num_targets": 2,
		"blank": 0,
		"logits": [0, 0],
		"targets": [],
		"src_lengths": [3],
		"tgt_lengths": [0]
	}`
	rec = doJSON(t, e, http.MethodPost, "/v1/loss", badSrcLen)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range src length, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/loss", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	rec := doJSON(t, e, http.MethodGet, "/v1/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode healthz response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("status = %q, want ok", resp.Status)
	}
}
