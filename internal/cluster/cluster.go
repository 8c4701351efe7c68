// Package cluster implements the cluster store: the persistent mapping from
// cluster key to a cached answer and its representative embedding.
package cluster

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// KeyLen is the length of cluster keys in hex characters.
const KeyLen = 8

// Cluster is the unit of caching: a cached answer plus the compressed
// embedding that produced it. Once inserted, Vector and Answer never change;
// a near-duplicate request resolves to the existing cluster via the
// similarity scan, it never overwrites.
type Cluster struct {
	// Representative is the normalized text that created the cluster
	// (kept for diagnostics).
	Representative string `json:"representative"`
	// Answer is the cached emoji string. May be empty: the model is allowed
	// to produce no emoji.
	Answer string `json:"answer"`
	// Vector is the compressed embedding in base64 text encoding.
	Vector string `json:"vector"`
	// CreatedAt is the insertion time.
	CreatedAt time.Time `json:"created_at"`
}

// DeriveKey returns a stable content-derived key: the first KeyLen hex
// characters of the md5 of the leading prefixLen components joined by commas.
// Semantically different inputs whose embeddings share a numeric prefix can
// collide; the store surfaces that as ErrDuplicateKey rather than hiding it.
func DeriveKey(vec []float32, prefixLen int) string {
	if prefixLen > len(vec) {
		prefixLen = len(vec)
	}
	parts := make([]string, prefixLen)
	for i := 0; i < prefixLen; i++ {
		parts[i] = strconv.FormatFloat(float64(vec[i]), 'f', 2, 32)
	}
	sum := md5.Sum([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])[:KeyLen]
}

// RandomKey returns an opaque key generated at insertion time, for the
// "random" key strategy.
func RandomKey() string {
	return uuid.NewString()[:KeyLen]
}
