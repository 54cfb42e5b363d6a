package operation

import (
	"fmt"

	"github.com/causalityco/causality/pkg/codec"
)

// ValueKind discriminates the tagged union Value carries inside an
// Operation's parameters map. A closed, numerically-tagged sum type
// (rather than interface{}) keeps the canonical encoding deterministic.
type ValueKind uint8

const (
	ValueString ValueKind = iota
	ValueInt
	ValueUint
	ValueBytes
	ValueBool
)

// Value is a single operation parameter value.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	UInt  uint64
	Bytes []byte
	Bool  bool
}

func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }
func IntValue(i int64) Value     { return Value{Kind: ValueInt, Int: i} }
func UintValue(u uint64) Value   { return Value{Kind: ValueUint, UInt: u} }
func BytesValue(b []byte) Value  { return Value{Kind: ValueBytes, Bytes: b} }
func BoolValue(b bool) Value     { return Value{Kind: ValueBool, Bool: b} }

func (v Value) encode(w *codec.Writer) {
	w.Tag(uint8(v.Kind))
	switch v.Kind {
	case ValueString:
		w.String(v.Str)
	case ValueInt:
		w.Uint64(uint64(v.Int))
	case ValueUint:
		w.Uint64(v.UInt)
	case ValueBytes:
		w.RawBytes(v.Bytes)
	case ValueBool:
		w.Bool(v.Bool)
	}
}

func decodeValue(r *codec.Reader) (Value, error) {
	tag, err := r.Tag()
	if err != nil {
		return Value{}, err
	}
	kind := ValueKind(tag)
	switch kind {
	case ValueString:
		s, err := r.String()
		return Value{Kind: kind, Str: s}, err
	case ValueInt:
		u, err := r.Uint64()
		return Value{Kind: kind, Int: int64(u)}, err
	case ValueUint:
		u, err := r.Uint64()
		return Value{Kind: kind, UInt: u}, err
	case ValueBytes:
		b, err := r.RawBytes()
		return Value{Kind: kind, Bytes: b}, err
	case ValueBool:
		b, err := r.Bool()
		return Value{Kind: kind, Bool: b}, err
	default:
		return Value{}, fmt.Errorf("%w %d", ErrUnknownValueKind, tag)
	}
}

// encodeParameters writes a map[string]Value sorted by key.
func encodeParameters(w *codec.Writer, params map[string]Value) {
	keys := sortedKeys(params)
	w.Uint64(uint64(len(keys)))
	for _, k := range keys {
		w.String(k)
		params[k].encode(w)
	}
}

func decodeParameters(r *codec.Reader) (map[string]Value, error) {
	n, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	out := make(map[string]Value, n)
	for i := uint64(0); i < n; i++ {
		k, err := r.String()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(r)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	insertionSort(keys)
	return keys
}

// insertionSort keeps this file dependency-free on sort for the small
// parameter maps operations typically carry; correctness, not
// micro-benchmarked speed, is the point.
func insertionSort(keys []string) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
}
