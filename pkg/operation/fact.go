package operation

import (
	"github.com/causalityco/causality/pkg/causalityhash"
	"github.com/causalityco/causality/pkg/codec"
)

// FactKind discriminates the append-only log's entry types. Custom
// carries a tag naming the caller-defined kind.
type FactKind uint8

const (
	FactStateChange FactKind = iota
	FactOperation
	FactTransaction
	FactCrossDomain
	FactValidation
	FactCustom
)

// ProofKind discriminates Fact.Proof; Proof itself is opaque bytes because
// the concrete scheme (signature, Merkle inclusion, zero-knowledge proof)
// is supplied by collaborators outside the core.
type ProofKind uint8

const (
	ProofNone ProofKind = iota
	ProofSignature
	ProofMerkleInclusion
	ProofZeroKnowledge
)

// Proof wraps an optional attestation attached to a Fact.
type Proof struct {
	Kind ProofKind
	Data []byte
}

// Fact is an immutable entry in the temporal log.
type Fact struct {
	Id           ContentHash
	Kind         FactKind
	CustomTag    string // set when Kind == FactCustom
	Subject      ContentHash
	Timestamp    TemporalSnapshot
	OriginDomain DomainId
	Dependencies []ContentHash
	Payload      []byte
	Proof        Proof
}

const factVersion = 1

// CanonicalBytes is the encoding hashed into Id.
func (f *Fact) CanonicalBytes() []byte {
	w := codec.NewWriter(192 + len(f.Payload))
	w.Version(factVersion)
	w.Tag(uint8(f.Kind))
	w.String(f.CustomTag)
	w.RawBytes(f.Subject.Bytes())
	encodeSnapshot(w, f.Timestamp)
	w.String(string(f.OriginDomain))
	w.Uint64(uint64(len(f.Dependencies)))
	for _, d := range f.Dependencies {
		w.RawBytes(d.Bytes())
	}
	w.RawBytes(f.Payload)
	w.Tag(uint8(f.Proof.Kind))
	w.RawBytes(f.Proof.Data)
	return w.Bytes()
}

// Rehash recomputes Id from CanonicalBytes.
func (f *Fact) Rehash() {
	f.Id = causalityhash.Sum(f.CanonicalBytes())
}

// DecodeFact parses bytes produced by CanonicalBytes.
func DecodeFact(b []byte) (*Fact, error) {
	r := codec.NewReader(b)
	if _, err := r.Version(factVersion); err != nil {
		return nil, err
	}
	kindTag, err := r.Tag()
	if err != nil {
		return nil, err
	}
	customTag, err := r.String()
	if err != nil {
		return nil, err
	}
	subjRaw, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	subj, err := causalityhash.FromBytes(subjRaw)
	if err != nil {
		return nil, err
	}
	ts, err := decodeSnapshot(r)
	if err != nil {
		return nil, err
	}
	domain, err := r.String()
	if err != nil {
		return nil, err
	}
	n, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	deps := make([]ContentHash, 0, n)
	for i := uint64(0); i < n; i++ {
		depRaw, err := r.RawBytes()
		if err != nil {
			return nil, err
		}
		dep, err := causalityhash.FromBytes(depRaw)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	payload, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	proofKind, err := r.Tag()
	if err != nil {
		return nil, err
	}
	proofData, err := r.RawBytes()
	if err != nil {
		return nil, err
	}

	f := &Fact{
		Kind:         FactKind(kindTag),
		CustomTag:    customTag,
		Subject:      subj,
		Timestamp:    ts,
		OriginDomain: DomainId(domain),
		Dependencies: deps,
		Payload:      payload,
		Proof:        Proof{Kind: ProofKind(proofKind), Data: proofData},
	}
	f.Rehash()
	return f, nil
}
