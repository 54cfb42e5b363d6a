package operation

import "errors"

// Sentinel errors for the entity types in this package. Callers compare
// with errors.Is. Decoding a Value with an unknown kind tag returns an
// error wrapping ErrUnknownValueKind; ErrUnknownOpType and
// ErrUnknownResourceState are not returned by any function here, since
// DecodeOperation and the resource-state decoder accept any tag byte.
var (
	ErrUnknownValueKind     = errors.New("operation: unknown value kind")
	ErrUnknownOpType        = errors.New("operation: unknown op type")
	ErrUnknownResourceState = errors.New("operation: unknown resource state")
)
