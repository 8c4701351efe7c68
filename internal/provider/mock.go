package provider

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"
)

// MockEmbedder is a deterministic embedder for tests. It returns a
// fixed-dimension unit vector derived from the text hash, so the same text
// always gets the same embedding and different texts land far apart.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int64
	// Err, when set, is returned by every Embed call.
	Err error
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.Err != nil {
		return nil, e.Err
	}
	h := hashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h)*float64(i+1))*0.1 + 0.01)
	}
	// Normalize to unit length for cosine similarity.
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb, nil
}

// Calls returns how many times Embed was invoked.
func (e *MockEmbedder) Calls() int64 {
	return e.calls.Load()
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// MockGenerator is a scripted generator for tests.
type MockGenerator struct {
	// Answer is returned for every Generate call.
	Answer string
	// Err, when set, is returned instead.
	Err   error
	calls atomic.Int64
}

// Generate returns the scripted answer.
func (g *MockGenerator) Generate(ctx context.Context, text string) (string, error) {
	g.calls.Add(1)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Answer, nil
}

// Calls returns how many times Generate was invoked.
func (g *MockGenerator) Calls() int64 {
	return g.calls.Load()
}
