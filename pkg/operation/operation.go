package operation

import (
	"github.com/causalityco/causality/pkg/causalityhash"
	"github.com/causalityco/causality/pkg/codec"
)

// OpTypeKind discriminates Operation.OpType; Custom carries a name.
type OpTypeKind uint8

const (
	OpCreate OpTypeKind = iota
	OpUpdate
	OpTransfer
	OpConsume
	OpFreeze
	OpUnfreeze
	OpDelegate
	OpCrossDomainTransfer
	OpCustom
)

// OpType is the operation's discriminated kind.
type OpType struct {
	Kind OpTypeKind
	Name string // populated when Kind == OpCustom
}

func (t OpType) String() string {
	switch t.Kind {
	case OpCreate:
		return "Create"
	case OpUpdate:
		return "Update"
	case OpTransfer:
		return "Transfer"
	case OpConsume:
		return "Consume"
	case OpFreeze:
		return "Freeze"
	case OpUnfreeze:
		return "Unfreeze"
	case OpDelegate:
		return "Delegate"
	case OpCrossDomainTransfer:
		return "CrossDomainTransfer"
	case OpCustom:
		return "Custom(" + t.Name + ")"
	default:
		return "Unknown"
	}
}

// Phase tracks where an operation sits in its own lifecycle: constructed
// → validated → executing → committed | rejected | failed.
type Phase uint8

const (
	PhaseConstructed Phase = iota
	PhaseValidated
	PhaseExecuting
	PhaseCommitted
	PhaseRejected
	PhaseFailed
)

// OperationContext carries routing and temporal metadata alongside an
// Operation: phase, domain, an optional transaction id, and the temporal
// snapshot observed at submission time.
type OperationContext struct {
	Phase                    Phase
	Domain                   DomainId
	TransactionId            ContentHash // zero value if not part of a transaction
	ObservedTemporalSnapshot TemporalSnapshot
}

// Operation is a proposed state change.
type Operation struct {
	Id                   ContentHash
	OpType               OpType
	Inputs               []ContentHash
	Outputs              []ResourceRegister
	Parameters           map[string]Value
	Capabilities         []Capability
	Initiator            EntityId
	Context              OperationContext
	TemporalDependencies []ContentHash
}

const operationVersion = 1

// CanonicalBytes is the encoding hashed into Id. Re-submitting
// byte-identical content yields the same Id, which is the idempotency
// mechanism content addressing gives for free.
func (o *Operation) CanonicalBytes() []byte {
	w := codec.NewWriter(512)
	w.Version(operationVersion)
	w.Tag(uint8(o.OpType.Kind))
	w.String(o.OpType.Name)

	w.Uint64(uint64(len(o.Inputs)))
	for _, in := range o.Inputs {
		w.RawBytes(in.Bytes())
	}

	w.Uint64(uint64(len(o.Outputs)))
	for i := range o.Outputs {
		w.RawBytes(o.Outputs[i].CanonicalBytes())
	}

	encodeParameters(w, o.Parameters)

	w.Uint64(uint64(len(o.Capabilities)))
	for i := range o.Capabilities {
		w.RawBytes(o.Capabilities[i].CanonicalBytes())
	}

	w.String(string(o.Initiator))

	w.Tag(uint8(o.Context.Phase))
	w.String(string(o.Context.Domain))
	w.RawBytes(o.Context.TransactionId.Bytes())
	encodeSnapshot(w, o.Context.ObservedTemporalSnapshot)

	w.Uint64(uint64(len(o.TemporalDependencies)))
	for _, d := range o.TemporalDependencies {
		w.RawBytes(d.Bytes())
	}
	return w.Bytes()
}

// Rehash recomputes Id from CanonicalBytes.
func (o *Operation) Rehash() {
	o.Id = causalityhash.Sum(o.CanonicalBytes())
}

// DecodeOperation parses bytes produced by CanonicalBytes.
func DecodeOperation(b []byte) (*Operation, error) {
	r := codec.NewReader(b)
	if _, err := r.Version(operationVersion); err != nil {
		return nil, err
	}
	opKindTag, err := r.Tag()
	if err != nil {
		return nil, err
	}
	opName, err := r.String()
	if err != nil {
		return nil, err
	}

	nIn, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	inputs := make([]ContentHash, 0, nIn)
	for i := uint64(0); i < nIn; i++ {
		raw, err := r.RawBytes()
		if err != nil {
			return nil, err
		}
		h, err := causalityhash.FromBytes(raw)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, h)
	}

	nOut, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	outputs := make([]ResourceRegister, 0, nOut)
	for i := uint64(0); i < nOut; i++ {
		raw, err := r.RawBytes()
		if err != nil {
			return nil, err
		}
		reg, err := DecodeResourceRegister(raw)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, *reg)
	}

	params, err := decodeParameters(r)
	if err != nil {
		return nil, err
	}

	nCaps, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	caps := make([]Capability, 0, nCaps)
	for i := uint64(0); i < nCaps; i++ {
		raw, err := r.RawBytes()
		if err != nil {
			return nil, err
		}
		c, err := DecodeCapability(raw)
		if err != nil {
			return nil, err
		}
		caps = append(caps, *c)
	}

	initiator, err := r.String()
	if err != nil {
		return nil, err
	}

	phaseTag, err := r.Tag()
	if err != nil {
		return nil, err
	}
	domain, err := r.String()
	if err != nil {
		return nil, err
	}
	txRaw, err := r.RawBytes()
	if err != nil {
		return nil, err
	}
	txId, err := causalityhash.FromBytes(txRaw)
	if err != nil {
		return nil, err
	}
	snap, err := decodeSnapshot(r)
	if err != nil {
		return nil, err
	}

	nDeps, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	deps := make([]ContentHash, 0, nDeps)
	for i := uint64(0); i < nDeps; i++ {
		raw, err := r.RawBytes()
		if err != nil {
			return nil, err
		}
		h, err := causalityhash.FromBytes(raw)
		if err != nil {
			return nil, err
		}
		deps = append(deps, h)
	}

	op := &Operation{
		OpType:       OpType{Kind: OpTypeKind(opKindTag), Name: opName},
		Inputs:       inputs,
		Outputs:      outputs,
		Parameters:   params,
		Capabilities: caps,
		Initiator:    EntityId(initiator),
		Context: OperationContext{
			Phase:                    Phase(phaseTag),
			Domain:                   DomainId(domain),
			TransactionId:            txId,
			ObservedTemporalSnapshot: snap,
		},
		TemporalDependencies: deps,
	}
	op.Rehash()
	return op, nil
}

// Transaction is an ordered list of operations that must commit
// atomically.
type Transaction struct {
	Operations []Operation
}

// Id is the content hash of the ordered operation ids; two transactions
// with the same operations in the same order are the same transaction.
func (t *Transaction) Id() ContentHash {
	w := codec.NewWriter(32 * (len(t.Operations) + 1))
	w.Uint64(uint64(len(t.Operations)))
	for i := range t.Operations {
		w.RawBytes(t.Operations[i].Id.Bytes())
	}
	return causalityhash.Sum(w.Bytes())
}
