// Package codec compresses embeddings to fixed precision and converts them
// to and from a base64 text encoding for storage.
package codec

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidEncoding is returned when encoded vector text cannot be decoded.
var ErrInvalidEncoding = errors.New("invalid vector encoding")

// Precision is the decimal precision kept by Compress (2 decimal places).
const Precision = 2

const precisionScale = 100 // 10^Precision

// Compress rounds each component to Precision decimal places. The rounding
// is lossy on purpose: near-duplicate texts compress to closely matching
// vectors, and the stored payload shrinks. Compress is pure and idempotent.
func Compress(vec []float32) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(math.Round(float64(v)*precisionScale) / precisionScale)
	}
	return out
}

// Encode packs vec as little-endian float32 values and base64-encodes the
// buffer. Encode and Decode are byte-exact inverses.
func Encode(vec []float32) string {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// Decode is the inverse of Encode. It fails with ErrInvalidEncoding when the
// input is not valid base64 or the decoded payload is not a whole number of
// 32-bit floats.
func Decode(s string) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of float32s", ErrInvalidEncoding, len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : (i+1)*4]))
	}
	return out, nil
}
