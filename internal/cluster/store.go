package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/emojicache/internal/codec"
	"github.com/hyperjump/emojicache/internal/vector"
	"go.uber.org/zap"
)

// storeFormatVersion tags the on-disk blob so the format can evolve.
const storeFormatVersion = 1

var (
	// ErrDuplicateKey is returned by Insert when the key already exists.
	ErrDuplicateKey = errors.New("cluster key already exists")
	// ErrCorrupt is returned by Load when the store blob cannot be parsed.
	// The caller is expected to log it and serve with an empty store.
	ErrCorrupt = errors.New("cluster store corrupt")
)

// Match is a successful similarity lookup.
type Match struct {
	Key     string
	Cluster *Cluster
	Score   float64
}

// storeFile is the serialized form of the whole store.
type storeFile struct {
	Version  int                 `json:"version"`
	Clusters map[string]*Cluster `json:"clusters"`
}

// Store maps cluster keys to clusters, persisted as a single JSON blob.
// Lookups run under a read lock; insert + persist hold the write lock so
// racing inserts on the same key serialize into one ErrDuplicateKey. The
// store only grows; there is no eviction.
type Store struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	clusters map[string]*Cluster
	vectors  map[string][]float32 // decoded vectors, filled at load/insert
	order    []string             // deterministic scan order for first-fit
}

// NewStore creates an empty store backed by the blob at path.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{
		path:     path,
		logger:   logger,
		clusters: make(map[string]*Cluster),
		vectors:  make(map[string][]float32),
	}
}

// Load reads the store blob from disk, replacing in-memory contents.
// A missing file leaves the store empty without error. An unparseable file
// returns ErrCorrupt (wrapped); entries whose vector text fails to decode
// are skipped with a warning while the rest survive.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store: %w", err)
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil || file.Clusters == nil {
		// Untagged legacy format: a flat key -> cluster map.
		var legacy map[string]*Cluster
		if legacyErr := json.Unmarshal(data, &legacy); legacyErr != nil || legacy == nil {
			return fmt.Errorf("%w: %s", ErrCorrupt, s.path)
		}
		file.Clusters = legacy
	}

	clusters := make(map[string]*Cluster, len(file.Clusters))
	vectors := make(map[string][]float32, len(file.Clusters))
	for key, c := range file.Clusters {
		if c == nil {
			s.logger.Warn("skipping empty cluster entry", zap.String("key", key))
			continue
		}
		vec, err := codec.Decode(c.Vector)
		if err != nil {
			s.logger.Warn("skipping cluster with undecodable vector",
				zap.String("key", key), zap.Error(err))
			continue
		}
		clusters[key] = c
		vectors[key] = vec
	}

	// Map order is not stable across loads; scan oldest-first so first-fit
	// lookup stays reproducible.
	order := make([]string, 0, len(clusters))
	for key := range clusters {
		order = append(order, key)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := clusters[order[i]], clusters[order[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return order[i] < order[j]
	})

	s.mu.Lock()
	s.clusters = clusters
	s.vectors = vectors
	s.order = order
	s.mu.Unlock()
	return nil
}

// LookupSimilar scans clusters in stable order and returns the first one
// whose cosine similarity to query is at or above threshold (first-fit).
// Clusters with a mismatched dimension are skipped, never an error.
func (s *Store) LookupSimilar(query []float32, threshold float64) (*Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.order {
		vec, ok := s.vectors[key]
		if !ok {
			continue
		}
		score, err := vector.CosineSimilarity(query, vec)
		if err != nil {
			s.logger.Debug("skipping cluster in scan",
				zap.String("key", key), zap.Error(err))
			continue
		}
		if score >= threshold {
			return &Match{Key: key, Cluster: s.clusters[key], Score: score}, true
		}
	}
	return nil, false
}

// Insert adds c under key and persists the whole store synchronously.
// Returns ErrDuplicateKey if the key is taken (hash collision or a racing
// request that missed the same lookup); the existing cluster is untouched.
// vec must be the decoded form of c.Vector.
func (s *Store) Insert(key string, c *Cluster, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clusters[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	s.clusters[key] = c
	s.vectors[key] = vec
	s.order = append(s.order, key)
	if err := s.persistLocked(); err != nil {
		return fmt.Errorf("persist store: %w", err)
	}
	return nil
}

// persistLocked writes the whole store atomically: serialize to a temp file
// in the same directory, then rename over the blob. A crash mid-write can
// never corrupt the durable copy. Caller holds the write lock.
func (s *Store) persistLocked() error {
	file := storeFile{Version: storeFormatVersion, Clusters: s.clusters}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Get returns the cluster stored under key.
func (s *Store) Get(key string) (*Cluster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clusters[key]
	return c, ok
}

// VectorOf returns the decoded vector stored under key.
func (s *Store) VectorOf(key string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vectors[key]
	return vec, ok
}

// Len returns the number of clusters.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clusters)
}

// Keys returns cluster keys in scan order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Path returns the store blob path.
func (s *Store) Path() string {
	return s.path
}

// SizeOnDisk returns the store blob size in bytes, or 0 when it does not exist yet.
func (s *Store) SizeOnDisk() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
