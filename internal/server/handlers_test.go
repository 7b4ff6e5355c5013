package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/medrag/internal/config"
	"github.com/hyperjump/medrag/internal/embedding"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/retrieval"
	"github.com/hyperjump/medrag/internal/storage"
	"go.uber.org/zap"
)

var testDocs = []string{"Aspirin treats headache.", "Ibuprofen reduces inflammation."}

type countingEmbedder struct {
	*embedding.MockEmbedder
	calls atomic.Int32
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	return e.MockEmbedder.Embed(ctx, text)
}

type failingEngine struct{}

func (failingEngine) Answer(context.Context, string) (*retrieval.Answer, error) {
	return nil, errors.New("embedding failed: model unavailable")
}

func (failingEngine) Stats() retrieval.Stats { return retrieval.Stats{} }

func newTestServer(t *testing.T, cfg *config.RetrievalConfig) (*Server, *countingEmbedder, string) {
	t.Helper()
	ctx := context.Background()
	emb := &countingEmbedder{MockEmbedder: embedding.NewMockEmbedder(8)}
	vectors, err := embedding.NormalizedBatch(ctx, emb.MockEmbedder, testDocs)
	if err != nil {
		t.Fatal(err)
	}
	bundlePath := filepath.Join(t.TempDir(), "bundle.db")
	if _, err := storage.WriteBundle(ctx, bundlePath, testDocs, vectors, storage.Metadata{Model: "mock"}); err != nil {
		t.Fatal(err)
	}
	bundle, err := storage.ReadBundle(ctx, bundlePath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil {
		cfg = &config.RetrievalConfig{}
	}
	engine, err := retrieval.NewEngine(ctx, bundle, emb, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	srv := NewServer(engine, &config.ServerConfig{Host: "127.0.0.1", Port: 5000}, zap.NewNop(), WithBundlePath(bundlePath))
	return srv, emb, bundlePath
}

func postQuery(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHandleQuery_ExactDocument(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	w := postQuery(t, srv.Handler(), `{"query": "  Ibuprofen reduces inflammation. "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp models.QueryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "Ibuprofen reduces inflammation." {
		t.Errorf("query not echoed trimmed: %q", resp.Query)
	}
	if resp.Result != "Ibuprofen reduces inflammation." {
		t.Errorf("result = %q", resp.Result)
	}
	if resp.Similarity < 1-1e-5 || resp.Similarity > 1+1e-5 {
		t.Errorf("similarity = %f, want 1.0", resp.Similarity)
	}
	if resp.Matches != nil {
		t.Errorf("matches should be omitted with top_k=1")
	}
}

func TestHandleQuery_BelowThreshold(t *testing.T) {
	threshold := 1.5
	srv, _, _ := newTestServer(t, &config.RetrievalConfig{Threshold: &threshold})
	w := postQuery(t, srv.Handler(), `{"query": "Aspirin treats headache."}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.QueryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Result != config.DefaultFallbackMessage {
		t.Errorf("result = %q, want fallback", resp.Result)
	}
	if resp.Similarity < 0.99 {
		t.Errorf("the actual similarity should be reported, got %f", resp.Similarity)
	}
}

func TestHandleQuery_MissingQuery(t *testing.T) {
	srv, emb, _ := newTestServer(t, nil)
	h := srv.Handler()
	bodies := []string{
		`{}`,
		`{"query": ""}`,
		`{"query": "   \t"}`,
		`{"query": 12}`,
		`{"query": null}`,
		`["Aspirin"]`,
		`not json`,
		``,
	}
	for _, body := range bodies {
		w := postQuery(t, h, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status %d, want 400", body, w.Code)
			continue
		}
		var resp models.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Error != "Missing or empty 'query' field" {
			t.Errorf("body %q: error = %q", body, resp.Error)
		}
	}
	if n := emb.calls.Load(); n != 0 {
		t.Errorf("embedder called %d times for invalid queries", n)
	}
}

func TestHandleQuery_EngineError(t *testing.T) {
	srv := NewServer(failingEngine{}, &config.ServerConfig{}, zap.NewNop())
	w := postQuery(t, srv.Handler(), `{"query": "What reduces inflammation?"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", w.Code)
	}
	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Error, "model unavailable") {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestHandleQuery_Repeatable(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	h := srv.Handler()
	first := postQuery(t, h, `{"query": "headache remedy"}`).Body.String()
	second := postQuery(t, h, `{"query": "headache remedy"}`).Body.String()
	if first != second {
		t.Errorf("responses differ:\n%s\n%s", first, second)
	}
}

func TestHandleQuery_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/query", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _, bundlePath := newTestServer(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp models.StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Documents != 2 || resp.Dimensions != 8 || resp.Model != "mock" {
		t.Errorf("unexpected status: %+v", resp)
	}
	if resp.Threshold != config.DefaultThreshold || resp.TopK != 1 || resp.IndexType != "memory" {
		t.Errorf("unexpected decision rule: %+v", resp)
	}
	if resp.BundlePath != bundlePath || resp.DiskUsageBytes <= 0 || resp.BuildID == "" {
		t.Errorf("unexpected bundle info: %+v", resp)
	}
}
