package operation

import (
	"github.com/causalityco/causality/pkg/causalityhash"
	"github.com/causalityco/causality/pkg/codec"
)

// ResourceStateKind discriminates ResourceState's sum type.
type ResourceStateKind uint8

const (
	StateInitializing ResourceStateKind = iota
	StateActive
	StateLocked
	StateFrozen
	StateConsumed
	StateArchived
)

func (k ResourceStateKind) String() string {
	switch k {
	case StateInitializing:
		return "Initializing"
	case StateActive:
		return "Active"
	case StateLocked:
		return "Locked"
	case StateFrozen:
		return "Frozen"
	case StateConsumed:
		return "Consumed"
	case StateArchived:
		return "Archived"
	default:
		return "Unknown"
	}
}

// ResourceState is the sum type `{ Initializing | Active | Locked{by,until}
// | Frozen{reason} | Consumed{nullifier} | Archived }`.
type ResourceState struct {
	Kind ResourceStateKind

	// Locked
	LockedBy    EntityId
	LockedUntil uint64 // 0 means no timeout

	// Frozen
	FrozenReason string

	// Consumed
	Nullifier ContentHash
}

func Initializing() ResourceState { return ResourceState{Kind: StateInitializing} }
func Active() ResourceState       { return ResourceState{Kind: StateActive} }
func Archived() ResourceState     { return ResourceState{Kind: StateArchived} }

func Locked(by EntityId, until uint64) ResourceState {
	return ResourceState{Kind: StateLocked, LockedBy: by, LockedUntil: until}
}

func Frozen(reason string) ResourceState {
	return ResourceState{Kind: StateFrozen, FrozenReason: reason}
}

func Consumed(nullifier ContentHash) ResourceState {
	return ResourceState{Kind: StateConsumed, Nullifier: nullifier}
}

func (s ResourceState) encode(w *codec.Writer) {
	w.Tag(uint8(s.Kind))
	switch s.Kind {
	case StateLocked:
		w.String(string(s.LockedBy))
		w.Uint64(s.LockedUntil)
	case StateFrozen:
		w.String(s.FrozenReason)
	case StateConsumed:
		w.RawBytes(s.Nullifier.Bytes())
	}
}

func decodeResourceState(r *codec.Reader) (ResourceState, error) {
	tag, err := r.Tag()
	if err != nil {
		return ResourceState{}, err
	}
	kind := ResourceStateKind(tag)
	switch kind {
	case StateLocked:
		by, err := r.String()
		if err != nil {
			return ResourceState{}, err
		}
		until, err := r.Uint64()
		if err != nil {
			return ResourceState{}, err
		}
		return Locked(EntityId(by), until), nil
	case StateFrozen:
		reason, err := r.String()
		if err != nil {
			return ResourceState{}, err
		}
		return Frozen(reason), nil
	case StateConsumed:
		raw, err := r.RawBytes()
		if err != nil {
			return ResourceState{}, err
		}
		h, err := causalityhash.FromBytes(raw)
		if err != nil {
			return ResourceState{}, err
		}
		return Consumed(h), nil
	default:
		return ResourceState{Kind: kind}, nil
	}
}

// ResourceRegister is the unified resource object. Mutation never edits a
// register in place: it produces a new register with a new Id, chained to
// the previous version via HistoryRef.
type ResourceRegister struct {
	Id                ContentHash
	ResourceType       ResourceType
	FungibilityDomain  FungibilityDomain
	Quantity           uint64 // low 64 bits of a 128-bit quantity; QuantityHi holds the rest
	QuantityHi         uint64 // high 64 bits
	Payload            []byte
	State              ResourceState
	NullifierKey       []byte // nil if none set yet
	Controller         EntityId
	ObservedAt         TemporalSnapshot
	CapabilitiesRef    ContentHash
	HistoryRef         ContentHash // zero value for a creation version
}

const resourceRegisterVersion = 1

// CanonicalBytes produces the deterministic encoding whose hash is this
// register's Id. The Id field itself is excluded, since it is derived
// from everything else.
func (r *ResourceRegister) CanonicalBytes() []byte {
	w := codec.NewWriter(256 + len(r.Payload))
	w.Version(resourceRegisterVersion)
	w.String(string(r.ResourceType))
	w.String(string(r.FungibilityDomain))
	w.Uint128(r.Quantity, r.QuantityHi)
	w.RawBytes(r.Payload)
	r.State.encode(w)
	w.RawBytes(r.NullifierKey)
	w.String(string(r.Controller))
	encodeSnapshot(w, r.ObservedAt)
	w.RawBytes(r.CapabilitiesRef.Bytes())
	w.RawBytes(r.HistoryRef.Bytes())
	return w.Bytes()
}

// Rehash recomputes Id from CanonicalBytes; callers use this after
// constructing or mutating a register and before storing it.
func (r *ResourceRegister) Rehash() {
	r.Id = causalityhash.Sum(r.CanonicalBytes())
}

func encodeSnapshot(w *codec.Writer, s TemporalSnapshot) {
	keys := make([]string, 0, len(s.Positions))
	for k := range s.Positions {
		keys = append(keys, string(k))
	}
	insertionSort(keys)
	w.Uint64(uint64(len(keys)))
	for _, k := range keys {
		w.String(k)
		w.Uint64(s.Positions[DomainId(k)])
	}
	w.Uint64(s.WallClock)
}

func decodeSnapshot(r *codec.Reader) (TemporalSnapshot, error) {
	n, err := r.Uint64()
	if err != nil {
		return TemporalSnapshot{}, err
	}
	positions := make(map[DomainId]uint64, n)
	for i := uint64(0); i < n; i++ {
		k, err := r.String()
		if err != nil {
			return TemporalSnapshot{}, err
		}
		v, err := r.Uint64()
		if err != nil {
			return TemporalSnapshot{}, err
		}
		positions[DomainId(k)] = v
	}
	wall, err := r.Uint64()
	if err != nil {
		return TemporalSnapshot{}, err
	}
	return TemporalSnapshot{Positions: positions, WallClock: wall}, nil
}

// DecodeResourceRegister parses the bytes produced by CanonicalBytes back
// into a register and sets Id by re-hashing the decoded fields (Rehash).
// It does not compare that Id with any hash the caller looked the bytes
// up by.
func DecodeResourceRegister(b []byte) (*ResourceRegister, error) {
	r := codec.NewReader(b)
	if _, err := r.Version(resourceRegisterVersion); err != nil {
		return nil, err
	}
	rt, err := r.String()
	if err != nil {
		return nil, err
	}
	fd, err := r.String()
	if err != nil {
		return nil, err
	}
	qlo, qhi, err := r.Uint128()
	if err != nil {
		return nil, err
	}
	payload, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	state, err := decodeResourceState(r)
	if err != nil {
		return nil, err
	}
	nullifierKey, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	controller, err := r.String()
	if err != nil {
		return nil, err
	}
	observedAt, err := decodeSnapshot(r)
	if err != nil {
		return nil, err
	}
	capsRaw, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	capsRef, err := causalityhash.FromBytes(capsRaw)
	if err != nil {
		return nil, err
	}
	histRaw, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	histRef, err := causalityhash.FromBytes(histRaw)
	if err != nil {
		return nil, err
	}
	reg := &ResourceRegister{
		ResourceType:      ResourceType(rt),
		FungibilityDomain: FungibilityDomain(fd),
		Quantity:          qlo,
		QuantityHi:        qhi,
		Payload:           payload,
		State:             state,
		NullifierKey:      nullifierKey,
		Controller:        EntityId(controller),
		ObservedAt:        observedAt,
		CapabilitiesRef:   capsRef,
		HistoryRef:        histRef,
	}
	reg.Rehash()
	return reg, nil
}
