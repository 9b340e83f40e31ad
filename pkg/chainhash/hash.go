// Package chainhash defines the two digest types used throughout
// driftnode: Hash256 for blocks and transactions, Hash160 for addresses.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Size256 is the length in bytes of a Hash256.
const Size256 = 32

// Size160 is the length in bytes of a Hash160.
const Size160 = 20

// Hash256 is a 32-byte SHA-256 digest, totally ordered lexicographically
// so it can double as a proof-of-work difficulty target.
type Hash256 [Size256]byte

// Hash160 is a 20-byte digest derived from a public key (an address).
type Hash160 [Size160]byte

// ZeroHash256 is the all-zero digest used as the genesis block's parent.
var ZeroHash256 Hash256

// Hash256FromBytes builds a Hash256 from a byte slice. Returns an error
// if the slice is not exactly 32 bytes.
func Hash256FromBytes(b []byte) (Hash256, error) {
	if len(b) != Size256 {
		return Hash256{}, fmt.Errorf("chainhash: want %d bytes, got %d", Size256, len(b))
	}
	var h Hash256
	copy(h[:], b)
	return h, nil
}

// Hash160FromBytes builds a Hash160 from a byte slice.
func Hash160FromBytes(b []byte) (Hash160, error) {
	if len(b) != Size160 {
		return Hash160{}, fmt.Errorf("chainhash: want %d bytes, got %d", Size160, len(b))
	}
	var h Hash160
	copy(h[:], b)
	return h, nil
}

// Hash256FromHex parses a hex-encoded string into a Hash256.
func Hash256FromHex(s string) (Hash256, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash256{}, fmt.Errorf("chainhash: invalid hex: %w", err)
	}
	return Hash256FromBytes(b)
}

// Hash160FromHex parses a hex-encoded string into a Hash160.
func Hash160FromHex(s string) (Hash160, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash160{}, fmt.Errorf("chainhash: invalid hex: %w", err)
	}
	return Hash160FromBytes(b)
}

// Bytes returns the digest as a byte slice.
func (h Hash256) Bytes() []byte { return h[:] }

// Hex returns the lowercase hex encoding of the digest.
func (h Hash256) Hex() string { return hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash256) String() string { return h.Hex() }

// IsZero reports whether every byte is 0x00.
func (h Hash256) IsZero() bool { return h == ZeroHash256 }

// LessOrEqual reports whether h, read as a big-endian integer, is
// no greater than target — the proof-of-work acceptance test.
func (h Hash256) LessOrEqual(target Hash256) bool {
	for i := 0; i < Size256; i++ {
		if h[i] < target[i] {
			return true
		}
		if h[i] > target[i] {
			return false
		}
	}
	return true
}

// Bytes returns the digest as a byte slice.
func (h Hash160) Bytes() []byte { return h[:] }

// Hex returns the lowercase hex encoding of the digest.
func (h Hash160) Hex() string { return hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash160) String() string { return h.Hex() }

// SumSHA256 hashes arbitrary data with SHA-256 and returns it as a Hash256.
func SumSHA256(data []byte) Hash256 {
	return sha256.Sum256(data)
}

// AddressFromPublicKey derives a Hash160 address from a raw public key by
// truncating its SHA-256 digest to the leading 20 bytes.
func AddressFromPublicKey(pubKey []byte) Hash160 {
	full := sha256.Sum256(pubKey)
	var h Hash160
	copy(h[:], full[:Size160])
	return h
}

// MerkleRoot computes the root of a binary hash tree over leafHashes,
// duplicating the last leaf when a level has an odd count. An empty
// sequence yields the zero hash.
func MerkleRoot(leafHashes []Hash256) Hash256 {
	if len(leafHashes) == 0 {
		return ZeroHash256
	}
	level := make([]Hash256, len(leafHashes))
	copy(level, leafHashes)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash256, len(level)/2)
		for i := range next {
			buf := make([]byte, 0, Size256*2)
			buf = append(buf, level[2*i][:]...)
			buf = append(buf, level[2*i+1][:]...)
			next[i] = SumSHA256(buf)
		}
		level = next
	}
	return level[0]
}
