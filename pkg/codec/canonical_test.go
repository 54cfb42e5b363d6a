package codec

import (
	"reflect"
	"testing"
)

func TestRoundTripScalars(t *testing.T) {
	w := NewWriter(64)
	w.Version(1)
	w.Tag(7)
	w.Uint16(1234)
	w.Uint64(9876543210)
	w.Bool(true)
	w.String("hello")
	w.RawBytes([]byte{0xde, 0xad, 0xbe, 0xef})

	r := NewReader(w.Bytes())
	if _, err := r.Version(1); err != nil {
		t.Fatalf("Version: %v", err)
	}
	tag, err := r.Tag()
	if err != nil || tag != 7 {
		t.Fatalf("Tag: got %d err %v", tag, err)
	}
	u16, err := r.Uint16()
	if err != nil || u16 != 1234 {
		t.Fatalf("Uint16: got %d err %v", u16, err)
	}
	u64, err := r.Uint64()
	if err != nil || u64 != 9876543210 {
		t.Fatalf("Uint64: got %d err %v", u64, err)
	}
	b, err := r.Bool()
	if err != nil || !b {
		t.Fatalf("Bool: got %v err %v", b, err)
	}
	s, err := r.String()
	if err != nil || s != "hello" {
		t.Fatalf("String: got %q err %v", s, err)
	}
	raw, err := r.RawBytes()
	if err != nil || !reflect.DeepEqual(raw, []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("RawBytes: got %x err %v", raw, err)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected no remaining bytes, got %d", r.Remaining())
	}
}

func TestStringMapSortedDeterministic(t *testing.T) {
	m := map[string]string{"zeta": "1", "alpha": "2", "mid": "3"}
	w1 := NewWriter(32)
	w1.StringMap(m)
	w2 := NewWriter(32)
	w2.StringMap(m)
	if !reflect.DeepEqual(w1.Bytes(), w2.Bytes()) {
		t.Fatalf("expected deterministic encoding regardless of map iteration order")
	}

	r := NewReader(w1.Bytes())
	got, err := r.StringMap()
	if err != nil {
		t.Fatalf("StringMap: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("round-trip mismatch: got %v want %v", got, m)
	}
}

func TestVersionMismatch(t *testing.T) {
	w := NewWriter(1)
	w.Version(2)
	r := NewReader(w.Bytes())
	if _, err := r.Version(1); err == nil {
		t.Fatalf("expected version mismatch error")
	}
}

func TestTruncated(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.Uint64(); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
