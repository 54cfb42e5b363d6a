// Package causalityhash implements the 32-byte content hash used to
// identify every entity in the causality core: resources, capabilities,
// facts, operations, and transactions are all named by the hash of their
// canonical bytes (see pkg/codec).
//
// BLAKE3 is the chosen algorithm; the leading algorithm byte lets the
// format evolve without breaking existing stored hashes.
package causalityhash

import (
	"encoding/hex"
	"errors"
	"fmt"

	"lukechampine.com/blake3"
)

// Algorithm identifies which hash function produced a Hash's digest.
type Algorithm byte

const (
	// AlgorithmBLAKE3 is the only algorithm the core produces today.
	AlgorithmBLAKE3 Algorithm = 0x01
)

// Size is the digest length in bytes, independent of algorithm tag.
const Size = 32

// ErrUnsupportedAlgorithm is returned when decoding a hash with an unknown
// algorithm tag.
var ErrUnsupportedAlgorithm = errors.New("causalityhash: unsupported algorithm")

// ErrWrongLength is returned when decoding a digest that isn't exactly Size
// bytes.
var ErrWrongLength = errors.New("causalityhash: digest must be 32 bytes")

// Hash is a content address: a fixed-width digest plus the algorithm tag
// that produced it. Equality is by byte value.
type Hash struct {
	Algo   Algorithm
	Digest [Size]byte
}

// Zero reports whether h is the zero value (used as the sentinel
// "no predecessor" history_ref on a creation-version ResourceRegister).
func (h Hash) Zero() bool {
	return h.Algo == 0 && h.Digest == [Size]byte{}
}

// Equal reports byte-for-byte equality, including the algorithm tag.
func (h Hash) Equal(other Hash) bool {
	return h.Algo == other.Algo && h.Digest == other.Digest
}

// Bytes returns the algorithm-tagged wire form: one tag byte followed by
// the 32-byte digest.
func (h Hash) Bytes() []byte {
	out := make([]byte, 1+Size)
	out[0] = byte(h.Algo)
	copy(out[1:], h.Digest[:])
	return out
}

// String renders the hash as "01:<hex>" (tag byte in hex, a colon, then
// the digest in hex); useful for logs and error
// messages, not for wire encoding (use Bytes for that).
func (h Hash) String() string {
	return fmt.Sprintf("%02x:%s", byte(h.Algo), hex.EncodeToString(h.Digest[:]))
}

// FromBytes parses the tagged wire form produced by Bytes. An all-zero tag
// byte with an all-zero digest decodes to the zero Hash (the "no
// predecessor" / "no reference" sentinel used by e.g.
// ResourceRegister.HistoryRef on a creation version) without requiring the
// zero tag to be a registered algorithm.
func FromBytes(b []byte) (Hash, error) {
	if len(b) != 1+Size {
		return Hash{}, ErrWrongLength
	}
	algo := Algorithm(b[0])
	if algo == 0 && allZero(b[1:]) {
		return Hash{}, nil
	}
	if algo != AlgorithmBLAKE3 {
		return Hash{}, fmt.Errorf("%w: tag 0x%02x", ErrUnsupportedAlgorithm, b[0])
	}
	var h Hash
	h.Algo = algo
	copy(h.Digest[:], b[1:])
	return h, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// Sum hashes canonical bytes (as produced by pkg/codec) into a Hash.
func Sum(canonicalBytes []byte) Hash {
	digest := blake3.Sum256(canonicalBytes)
	return Hash{Algo: AlgorithmBLAKE3, Digest: digest}
}

// Nullifier derives the one-way consumption token for a resource:
// H(id || nullifier_key). Presenting the same nullifier twice is the
// double-spend signal.
func Nullifier(id Hash, nullifierKey []byte) Hash {
	buf := make([]byte, 0, len(id.Bytes())+len(nullifierKey))
	buf = append(buf, id.Bytes()...)
	buf = append(buf, nullifierKey...)
	return Sum(buf)
}
