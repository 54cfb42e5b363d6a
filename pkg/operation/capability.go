package operation

import (
	"github.com/causalityco/causality/pkg/causalityhash"
	"github.com/causalityco/causality/pkg/codec"
)

// RightKind discriminates a Right's sum type; Execute and Custom carry a
// name, the rest are bare.
type RightKind uint8

const (
	RightRead RightKind = iota
	RightWrite
	RightTransfer
	RightDelete
	RightDelegate
	RightExecute
	RightCustom
)

// Right is a single grantable privilege.
type Right struct {
	Kind RightKind
	Name string // populated for RightExecute / RightCustom
}

func (r Right) String() string {
	switch r.Kind {
	case RightRead:
		return "Read"
	case RightWrite:
		return "Write"
	case RightTransfer:
		return "Transfer"
	case RightDelete:
		return "Delete"
	case RightDelegate:
		return "Delegate"
	case RightExecute:
		return "Execute(" + r.Name + ")"
	case RightCustom:
		return "Custom(" + r.Name + ")"
	default:
		return "Unknown"
	}
}

// Equal compares two Rights by kind and (when applicable) name.
func (r Right) Equal(other Right) bool {
	return r.Kind == other.Kind && r.Name == other.Name
}

func encodeRights(w *codec.Writer, rights []Right) {
	w.Uint64(uint64(len(rights)))
	for _, r := range rights {
		w.Tag(uint8(r.Kind))
		w.String(r.Name)
	}
}

func decodeRights(r *codec.Reader) ([]Right, error) {
	n, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	out := make([]Right, 0, n)
	for i := uint64(0); i < n; i++ {
		tag, err := r.Tag()
		if err != nil {
			return nil, err
		}
		name, err := r.String()
		if err != nil {
			return nil, err
		}
		out = append(out, Right{Kind: RightKind(tag), Name: name})
	}
	return out, nil
}

// RightsSubset reports whether every right in subset is present in
// superset.
func RightsSubset(subset, superset []Right) bool {
	for _, want := range subset {
		found := false
		for _, have := range superset {
			if want.Equal(have) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// TargetKind discriminates Capability.Target: either a specific resource
// or a type-matching pattern.
type TargetKind uint8

const (
	TargetResource TargetKind = iota
	TargetTypePattern
)

// Target is the capability's scope: a specific resource content hash, or
// a pattern matching a ResourceType.
type Target struct {
	Kind     TargetKind
	Resource ContentHash
	Pattern  ResourceType
}

func encodeTarget(w *codec.Writer, t Target) {
	w.Tag(uint8(t.Kind))
	w.RawBytes(t.Resource.Bytes())
	w.String(string(t.Pattern))
}

func decodeTarget(r *codec.Reader) (Target, error) {
	tag, err := r.Tag()
	if err != nil {
		return Target{}, err
	}
	resRaw, err := r.RawBytes()
	if err != nil {
		return Target{}, err
	}
	res, err := causalityhash.FromBytes(resRaw)
	if err != nil {
		return Target{}, err
	}
	pattern, err := r.String()
	if err != nil {
		return Target{}, err
	}
	return Target{Kind: TargetKind(tag), Resource: res, Pattern: ResourceType(pattern)}, nil
}

// Capability is an unforgeable, signed, possibly-delegated grant.
type Capability struct {
	Id          ContentHash
	Rights      []Right
	Target      Target
	Issuer      EntityId
	Holder      EntityId
	Constraints map[string]string
	Parent      ContentHash // zero value for a root issuance
	Signature   []byte
}

const capabilityVersion = 1

// SignedBytes produces the canonical encoding the issuer signs over: every
// field except Id and Signature itself.
func (c *Capability) SignedBytes() []byte {
	w := codec.NewWriter(128)
	w.Version(capabilityVersion)
	encodeRights(w, c.Rights)
	encodeTarget(w, c.Target)
	w.String(string(c.Issuer))
	w.String(string(c.Holder))
	w.StringMap(c.Constraints)
	w.RawBytes(c.Parent.Bytes())
	return w.Bytes()
}

// CanonicalBytes is SignedBytes plus the trailing signature; this is what
// gets content-hashed into Id.
func (c *Capability) CanonicalBytes() []byte {
	w := codec.NewWriter(160)
	w.RawBytes(c.SignedBytes())
	w.RawBytes(c.Signature)
	return w.Bytes()
}

// Rehash recomputes Id from CanonicalBytes.
func (c *Capability) Rehash() {
	c.Id = causalityhash.Sum(c.CanonicalBytes())
}

// DecodeCapability parses bytes produced by CanonicalBytes.
func DecodeCapability(b []byte) (*Capability, error) {
	outer := codec.NewReader(b)
	signedBytes, err := outer.RawBytes()
	if err != nil {
		return nil, err
	}
	sig, err := outer.RawBytes()
	if err != nil {
		return nil, err
	}

	r := codec.NewReader(signedBytes)
	if _, err := r.Version(capabilityVersion); err != nil {
		return nil, err
	}
	rights, err := decodeRights(r)
	if err != nil {
		return nil, err
	}
	target, err := decodeTarget(r)
	if err != nil {
		return nil, err
	}
	issuer, err := r.String()
	if err != nil {
		return nil, err
	}
	holder, err := r.String()
	if err != nil {
		return nil, err
	}
	constraints, err := r.StringMap()
	if err != nil {
		return nil, err
	}
	parentRaw, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	parent, err := causalityhash.FromBytes(parentRaw)
	if err != nil {
		return nil, err
	}

	c := &Capability{
		Rights:      rights,
		Target:      target,
		Issuer:      EntityId(issuer),
		Holder:      EntityId(holder),
		Constraints: constraints,
		Parent:      parent,
		Signature:   sig,
	}
	c.Rehash()
	return c, nil
}
