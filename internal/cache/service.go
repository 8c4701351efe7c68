// Package cache implements the request orchestration for the semantic emoji
// cache: normalize, embed, search, and on a miss generate and insert.
package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/hyperjump/emojicache/internal/cluster"
	"github.com/hyperjump/emojicache/internal/codec"
	"github.com/hyperjump/emojicache/internal/config"
	"github.com/hyperjump/emojicache/internal/provider"
	"github.com/hyperjump/emojicache/internal/vector"
	"github.com/hyperjump/emojicache/pkg/utils"
	"go.uber.org/zap"
)

// ErrInvalidInput is returned for empty or effectively-empty input text.
// It is reported before any upstream call.
var ErrInvalidInput = errors.New("text required")

// Answer sources.
const (
	SourceHit = "cache-hit"
	SourceNew = "new-cluster"
)

// Response is the result of one request.
type Response struct {
	Answer string `json:"answer"`
	Source string `json:"source"`
	// Cluster is the matched or newly created cluster key.
	Cluster string `json:"cluster"`
	// Similarity is the match score; only meaningful for cache hits.
	Similarity float64 `json:"similarity,omitempty"`
}

// Stats are cumulative request counters for the status endpoint.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Service ties the store, embedder, and generator together. The similarity
// threshold is readable and settable without a lock so config hot reload
// never stalls the serving path.
type Service struct {
	store     *cluster.Store
	embedder  provider.Embedder
	generator provider.Generator
	cfg       *config.CacheConfig
	logger    *zap.Logger

	threshold atomic.Uint64 // float64 bits
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewService creates the orchestrator with the given dependencies.
func NewService(
	store *cluster.Store,
	embedder provider.Embedder,
	generator provider.Generator,
	cfg *config.CacheConfig,
	logger *zap.Logger,
) *Service {
	s := &Service{
		store:     store,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
	s.SetThreshold(cfg.Threshold)
	return s
}

// Threshold returns the current similarity threshold.
func (s *Service) Threshold() float64 {
	return math.Float64frombits(s.threshold.Load())
}

// SetThreshold replaces the similarity threshold. Out-of-range values are ignored.
func (s *Service) SetThreshold(v float64) {
	if v <= 0 || v >= 1 {
		return
	}
	s.threshold.Store(math.Float64bits(v))
}

// Stats returns cumulative hit/miss counters.
func (s *Service) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// Handle resolves text to an emoji answer: reuse a cached cluster when one
// is semantically close enough, otherwise generate, sanitize, and insert a
// new cluster.
func (s *Service) Handle(ctx context.Context, text string) (*Response, error) {
	normalized := utils.Normalize(text)
	if normalized == "" {
		return nil, ErrInvalidInput
	}

	embedding, err := s.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("embed %q: %w", utils.Truncate(normalized, 40), err)
	}
	compressed := codec.Compress(embedding)

	threshold := s.Threshold()
	if m, ok := s.store.LookupSimilar(compressed, threshold); ok {
		s.hits.Add(1)
		s.logger.Debug("cache hit",
			zap.String("cluster", m.Key),
			zap.Float64("similarity", m.Score),
			zap.String("text", utils.Truncate(normalized, 40)),
		)
		return &Response{
			Answer:     m.Cluster.Answer,
			Source:     SourceHit,
			Cluster:    m.Key,
			Similarity: m.Score,
		}, nil
	}
	s.misses.Add(1)

	// The generator sees the original text; normalization is only for
	// embedding stability.
	raw, err := s.generator.Generate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	answer := utils.SanitizeEmoji(raw)

	key := s.deriveKey(compressed)
	c := &cluster.Cluster{
		Representative: normalized,
		Answer:         answer,
		Vector:         codec.Encode(compressed),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.Insert(key, c, compressed); err != nil {
		if errors.Is(err, cluster.ErrDuplicateKey) {
			// Hash collision or a racing request inserted the same key first.
			// Return the existing answer instead of failing the request.
			return s.resolveDuplicate(key, compressed, answer)
		}
		// Persist failures degrade: the answer is still served, the cluster
		// just did not make it to disk.
		s.logger.Warn("cluster insert failed", zap.String("cluster", key), zap.Error(err))
	}

	s.logger.Debug("new cluster",
		zap.String("cluster", key),
		zap.String("answer", answer),
		zap.String("text", utils.Truncate(normalized, 40)),
	)
	return &Response{Answer: answer, Source: SourceNew, Cluster: key}, nil
}

func (s *Service) deriveKey(compressed []float32) string {
	if s.cfg.KeyStrategy == config.KeyStrategyRandom {
		return cluster.RandomKey()
	}
	return cluster.DeriveKey(compressed, s.cfg.KeyPrefix)
}

// resolveDuplicate serves the answer already stored under key. The score is
// recomputed against the stored vector so hits stay honest in the response.
func (s *Service) resolveDuplicate(key string, compressed []float32, generated string) (*Response, error) {
	existing, ok := s.store.Get(key)
	if !ok {
		// Lost the cluster between insert and get; serve what we generated.
		return &Response{Answer: generated, Source: SourceNew, Cluster: key}, nil
	}
	score := 0.0
	if vec, ok := s.store.VectorOf(key); ok {
		if sim, err := vector.CosineSimilarity(compressed, vec); err == nil {
			score = sim
		}
	}
	s.logger.Info("duplicate cluster key, reusing existing answer",
		zap.String("cluster", key),
		zap.Float64("similarity", score),
	)
	return &Response{
		Answer:     existing.Answer,
		Source:     SourceHit,
		Cluster:    key,
		Similarity: score,
	}, nil
}
