package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256  HashAlgorithm = "sha256"
	BLAKE2B HashAlgorithm = "blake2b"
)

// ParseAlgorithm validates an algorithm name
func ParseAlgorithm(name string) (HashAlgorithm, error) {
	switch a := HashAlgorithm(strings.ToLower(name)); a {
	case SHA256, BLAKE2B:
		return a, nil
	case "":
		return SHA256, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", name)
	}
}

// Hasher provides content hashing for cache keys
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Algorithm returns the configured algorithm
func (h *Hasher) Algorithm() HashAlgorithm {
	return h.algorithm
}

// Hash computes a hex digest of data. Unknown algorithms fall back to SHA256.
func (h *Hasher) Hash(data []byte) string {
	var sum [32]byte
	switch h.algorithm {
	case BLAKE2B:
		sum = blake2b.Sum256(data)
	default:
		sum = sha256.Sum256(data)
	}
	return hex.EncodeToString(sum[:])
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashFields computes a hash from multiple fields. Field order does not
// matter.
func (h *Hasher) HashFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	return h.HashString(strings.Join(sorted, "|"))
}
