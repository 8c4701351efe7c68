package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hyperjump/emojicache/internal/cache"
	"github.com/hyperjump/emojicache/internal/cluster"
	"github.com/hyperjump/emojicache/internal/config"
	"github.com/hyperjump/emojicache/internal/provider"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, generator provider.Generator) (*Server, *provider.MockEmbedder) {
	t.Helper()
	cfg := &config.CacheConfig{
		StorePath:   filepath.Join(t.TempDir(), "clusters.json"),
		Threshold:   0.8,
		KeyStrategy: config.KeyStrategyDerived,
		KeyPrefix:   64,
	}
	store := cluster.NewStore(cfg.StorePath, zap.NewNop())
	embedder := provider.NewMockEmbedder(16)
	svc := cache.NewService(store, embedder, generator, cfg, zap.NewNop())
	return NewServer(svc, store, &config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop()), embedder
}

func postEmoji(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/emoji", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleEmoji_missThenHit(t *testing.T) {
	srv, _ := newTestServer(t, &provider.MockGenerator{Answer: "😴💤"})
	handler := srv.Router()

	rec := postEmoji(t, handler, `{"text":"I am so tired today"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var first cache.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatal(err)
	}
	if first.Source != cache.SourceNew || first.Answer != "😴💤" {
		t.Errorf("first response: %+v", first)
	}

	rec = postEmoji(t, handler, `{"text":"I am so tired today"}`)
	var second cache.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if second.Source != cache.SourceHit || second.Similarity < 0.8 {
		t.Errorf("second response: %+v", second)
	}
}

func TestHandleEmoji_emptyText(t *testing.T) {
	srv, embedder := newTestServer(t, &provider.MockGenerator{Answer: "🙂"})
	rec := postEmoji(t, srv.Router(), `{"text":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
	if embedder.Calls() != 0 {
		t.Error("embedder contacted for empty text")
	}
}

func TestHandleEmoji_malformedBody(t *testing.T) {
	srv, _ := newTestServer(t, &provider.MockGenerator{Answer: "🙂"})
	rec := postEmoji(t, srv.Router(), `{"text": `)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
}

func TestHandleEmoji_upstreamFailure(t *testing.T) {
	srv, _ := newTestServer(t, &provider.MockGenerator{Err: provider.ErrUnavailable})
	rec := postEmoji(t, srv.Router(), `{"text":"hello there"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status %d, want 502", rec.Code)
	}
}

func TestHandleClusters(t *testing.T) {
	srv, _ := newTestServer(t, &provider.MockGenerator{Answer: "🌮"})
	handler := srv.Router()
	postEmoji(t, handler, `{"text":"taco tuesday"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clusters", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Clusters []clusterSummary `json:"clusters"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Clusters) != 1 {
		t.Fatalf("response: %+v", resp)
	}
	if resp.Clusters[0].Representative != "taco tuesday" || resp.Clusters[0].Answer != "🌮" {
		t.Errorf("cluster: %+v", resp.Clusters[0])
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t, &provider.MockGenerator{Answer: "🙂"})
	handler := srv.Router()
	postEmoji(t, handler, `{"text":"first"}`)
	postEmoji(t, handler, `{"text":"first"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var status struct {
		Clusters  int     `json:"clusters"`
		Threshold float64 `json:"threshold"`
		Hits      int64   `json:"hits"`
		Misses    int64   `json:"misses"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Clusters != 1 || status.Threshold != 0.8 {
		t.Errorf("status: %+v", status)
	}
	if status.Hits != 1 || status.Misses != 1 {
		t.Errorf("counters: %+v", status)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, &provider.MockGenerator{Answer: "🙂"})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status %d", rec.Code)
	}
}
