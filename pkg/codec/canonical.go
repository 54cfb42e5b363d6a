// Package codec implements the canonical, byte-exact serialization format
// that content addressing depends on: fixed field order, little-endian
// fixed-width integers, length-prefixed UTF-8 strings, maps sorted by key,
// sum types tagged by a stable numeric discriminant, and a version byte at
// offset 0 of every entity encoding.
//
// The style follows the same shape as an RFC8785-ish canonical JSON helper
// (see pkg/commitment/commitment.go) but implemented as a real fixed binary
// layout rather than re-sorted JSON, for byte-for-byte determinism
// independent of any JSON library's quirks.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrTruncated is returned by Reader methods when the buffer runs out
// before a field can be fully decoded.
var ErrTruncated = errors.New("codec: truncated input")

// ErrVersionMismatch is returned when decoding an entity whose version
// byte does not match what the caller expected.
var ErrVersionMismatch = errors.New("codec: version mismatch")

// Writer accumulates a canonical byte stream. The zero value is ready to
// use.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns a Writer pre-sized for sizeHint bytes.
func NewWriter(sizeHint int) *Writer {
	w := &Writer{}
	w.buf.Grow(sizeHint)
	return w
}

// Bytes returns the accumulated canonical encoding.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Version writes the single version byte; callers write it first, at
// offset 0, per entity type.
func (w *Writer) Version(v uint8) { w.buf.WriteByte(v) }

// Tag writes a sum-type discriminant as a single byte.
func (w *Writer) Tag(t uint8) { w.buf.WriteByte(t) }

// Uint8 writes a single byte.
func (w *Writer) Uint8(v uint8) { w.buf.WriteByte(v) }

// Uint16 writes a little-endian uint16.
func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// Uint64 writes a little-endian uint64.
func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// Uint128 writes a 128-bit unsigned quantity as two little-endian uint64
// limbs (low, then high). The core's u128 quantities never need more
// precision than fits two machine words.
func (w *Writer) Uint128(lo, hi uint64) {
	w.Uint64(lo)
	w.Uint64(hi)
}

// RawBytes writes a length-prefixed (uint32 LE) byte slice.
func (w *Writer) RawBytes(b []byte) {
	var lb [4]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(b)))
	w.buf.Write(lb[:])
	w.buf.Write(b)
}

// String writes a length-prefixed UTF-8 string.
func (w *Writer) String(s string) {
	w.RawBytes([]byte(s))
}

// Bool writes a single byte, 0 or 1.
func (w *Writer) Bool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// StringMap writes a map[string]string with keys sorted ascending, so two
// equal maps always produce identical bytes regardless of build-time
// iteration order.
func (w *Writer) StringMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.Uint64(uint64(len(keys)))
	for _, k := range keys {
		w.String(k)
		w.String(m[k])
	}
}

// Reader walks a canonical byte stream produced by Writer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return ErrTruncated
	}
	return nil
}

// Version reads the version byte and compares it against want.
func (r *Reader) Version(want uint8) (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	got := r.buf[r.pos]
	r.pos++
	if got != want {
		return got, fmt.Errorf("%w: got %d want %d", ErrVersionMismatch, got, want)
	}
	return got, nil
}

// Tag reads a single discriminant byte.
func (r *Reader) Tag() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() (uint8, error) {
	return r.Tag()
}

// Uint16 reads a little-endian uint16.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// Uint64 reads a little-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Uint128 reads two little-endian uint64 limbs (low, high).
func (r *Reader) Uint128() (lo, hi uint64, err error) {
	lo, err = r.Uint64()
	if err != nil {
		return 0, 0, err
	}
	hi, err = r.Uint64()
	return lo, hi, err
}

// uint32LE reads the 4-byte length prefix written by Writer.RawBytes.
func (r *Reader) uint32LE() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// RawBytes reads a length-prefixed byte slice written by Writer.RawBytes.
func (r *Reader) RawBytes() ([]byte, error) {
	n, err := r.uint32LE()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

// String reads a length-prefixed UTF-8 string written by Writer.String.
func (r *Reader) String() (string, error) {
	b, err := r.RawBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StringMap reads a map[string]string written by Writer.StringMap. Keys
// are not re-sorted on decode (they were already written sorted); callers
// that mutate the map afterward are responsible for their own ordering.
func (r *Reader) StringMap() (map[string]string, error) {
	n, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, n)
	for i := uint64(0); i < n; i++ {
		k, err := r.String()
		if err != nil {
			return nil, err
		}
		v, err := r.String()
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Bool reads a single byte as a boolean.
func (r *Reader) Bool() (bool, error) {
	v, err := r.Tag()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Remaining reports how many unread bytes are left in the buffer.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }
