// Package skipledger contains the hash primitives, wire-format helpers and
// error taxonomy shared by every sub-package of the skip-ledger core.
package skipledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// HashSize is the width, in bytes, of every hash in the system. Only SHA-256
// is used anywhere in the core; there is no pluggable hash algorithm.
const HashSize = sha256.Size

// Hash is an opaque 32-byte SHA-256 digest. It is always passed by value:
// copying a Hash copies the bytes, there is no aliasing to guard against.
type Hash [HashSize]byte

// Sentinel is the all-zero hash representing the imaginary row 0.
var Sentinel Hash

// IsSentinel reports whether h is the all-zero sentinel hash.
func (h Hash) IsSentinel() bool {
	return h == Sentinel
}

// Bytes returns a freshly allocated copy of the hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Equal compares two hashes for byte equality.
func (h Hash) Equal(o Hash) bool {
	return h == o
}

// HashFromBytes copies b (which must be exactly HashSize long) into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, Errorf(ErrBadSourcePack, "hash must be %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Sum computes the SHA-256 digest of the concatenation of parts.
func Sum(parts ...[]byte) Hash {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write(p)
	}
	var out Hash
	copy(out[:], hasher.Sum(nil))
	return out
}

// SumHashes is a convenience over Sum for when the parts are themselves
// hashes (the common row-hash / crumtrail case).
func SumHashes(parts ...Hash) Hash {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write(p[:])
	}
	var out Hash
	copy(out[:], hasher.Sum(nil))
	return out
}

// CompareHash orders two hashes lexicographically; used for deterministic
// sorting of row numbers/hashes in places that need stable iteration order.
func CompareHash(a, b Hash) int {
	return bytes.Compare(a[:], b[:])
}
