package validator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/causalityco/causality/pkg/capability"
	"github.com/causalityco/causality/pkg/factlog"
	"github.com/causalityco/causality/pkg/operation"
	"github.com/causalityco/causality/pkg/resource"
)

// declaredBurnParam is the Parameters key an operation sets to declare
// value destroyed within a fungibility domain rather than moved to an
// output, per the conservation invariant.
const declaredBurnParam = "declared_burn"

// quantity128 combines a register's split 128-bit quantity into one
// big.Int so conservation sums can't overflow a machine word.
func quantity128(lo, hi uint64) *big.Int {
	v := new(big.Int).SetUint64(hi)
	v.Lsh(v, 64)
	return v.Add(v, new(big.Int).SetUint64(lo))
}

// requiredRight maps an operation's op_type to the capability right it
// must be authorized for, for the op types that touch an existing
// resource. Create needs no prior grant since it mints a new lineage.
var requiredRight = map[operation.OpTypeKind]operation.Right{
	operation.OpUpdate:              {Kind: operation.RightWrite},
	operation.OpTransfer:            {Kind: operation.RightTransfer},
	operation.OpConsume:             {Kind: operation.RightTransfer},
	operation.OpFreeze:              {Kind: operation.RightWrite},
	operation.OpUnfreeze:            {Kind: operation.RightWrite},
	operation.OpDelegate:            {Kind: operation.RightDelegate},
	operation.OpCrossDomainTransfer: {Kind: operation.RightTransfer},
}

// RequiredRight exposes the capability right an op_type requires, so
// callers outside the pipeline (the router's commit-time re-check) can
// redo the same authorization test without duplicating the table.
func RequiredRight(kind operation.OpTypeKind) (operation.Right, bool) {
	right, ok := requiredRight[kind]
	return right, ok
}

// OpValidatorFunc is a per-op_type semantic extra check, registered
// alongside the pipeline's built-in arity rules.
type OpValidatorFunc func(op *operation.Operation) []Issue

// Pipeline is the six-stage operation validator. Each stage runs in
// order and short-circuits the rest on any SeverityError issue, returning
// Valid or Invalid{reasons}.
type Pipeline struct {
	Capabilities *capability.Registry
	Resources    *resource.Manager
	Facts        *factlog.Log

	opValidators map[operation.OpTypeKind]OpValidatorFunc
}

// NewPipeline wires a Pipeline against the core's C2/C4/C3 components.
func NewPipeline(caps *capability.Registry, res *resource.Manager, facts *factlog.Log) *Pipeline {
	return &Pipeline{
		Capabilities: caps,
		Resources:    res,
		Facts:        facts,
		opValidators: make(map[operation.OpTypeKind]OpValidatorFunc),
	}
}

// RegisterOpValidator adds an extra semantic check run during the
// Semantic stage for operations of the given kind, beyond the built-in
// arity rules.
func (p *Pipeline) RegisterOpValidator(kind operation.OpTypeKind, fn OpValidatorFunc) {
	p.opValidators[kind] = fn
}

// Validate runs every stage against op in order, stopping at the first
// stage that produces an error-severity issue.
func (p *Pipeline) Validate(ctx context.Context, op *operation.Operation) Report {
	var issues []Issue

	issues = append(issues, p.structural(op)...)
	if hasError(issues) {
		return Report{Valid: false, Issues: issues}
	}

	issues = append(issues, p.semantic(op)...)
	if hasError(issues) {
		return Report{Valid: false, Issues: issues}
	}

	issues = append(issues, p.authorization(op)...)
	if hasError(issues) {
		return Report{Valid: false, Issues: issues}
	}

	issues = append(issues, p.resourceStage(ctx, op)...)
	if hasError(issues) {
		return Report{Valid: false, Issues: issues}
	}

	issues = append(issues, p.temporal(ctx, op)...)
	return Report{Valid: !hasError(issues), Issues: issues}
}

// ValidateTransaction runs Validate over every operation in txn, then the
// Transaction stage's cross-operation checks.
func (p *Pipeline) ValidateTransaction(ctx context.Context, txn *operation.Transaction) Report {
	var issues []Issue
	for i := range txn.Operations {
		r := p.Validate(ctx, &txn.Operations[i])
		issues = append(issues, r.Issues...)
	}
	if hasError(issues) {
		return Report{Valid: false, Issues: issues}
	}

	issues = append(issues, p.transactionStage(txn)...)
	return Report{Valid: !hasError(issues), Issues: issues}
}

func issue(stage Stage, code operation.Code, location, format string, args ...interface{}) Issue {
	return Issue{Severity: SeverityError, Stage: stage, Code: code, Message: fmt.Sprintf(format, args...), Location: location}
}

func (p *Pipeline) structural(op *operation.Operation) []Issue {
	var out []Issue
	want := *op
	want.Rehash()
	if !want.Id.Equal(op.Id) {
		out = append(out, issue(StageStructural, operation.CodeValidatorStructural, "id",
			"operation id does not match its canonical bytes"))
	}
	if op.Initiator == "" {
		out = append(out, issue(StageStructural, operation.CodeValidatorStructural, "initiator",
			"initiator must be set"))
	}
	for i, in := range op.Inputs {
		if in.Zero() {
			out = append(out, issue(StageStructural, operation.CodeValidatorStructural,
				fmt.Sprintf("inputs[%d]", i), "input content hash is zero"))
		}
	}
	return out
}

func (p *Pipeline) semantic(op *operation.Operation) []Issue {
	var out []Issue
	switch op.OpType.Kind {
	case operation.OpCreate:
		if len(op.Inputs) != 0 {
			out = append(out, issue(StageSemantic, operation.CodeValidatorSemantic, "inputs",
				"Create must have no inputs"))
		}
		if len(op.Outputs) == 0 {
			out = append(out, issue(StageSemantic, operation.CodeValidatorSemantic, "outputs",
				"Create must produce at least one output"))
		}
	case operation.OpConsume:
		if len(op.Inputs) == 0 {
			out = append(out, issue(StageSemantic, operation.CodeValidatorSemantic, "inputs",
				"Consume must have at least one input"))
		}
		if len(op.Outputs) != 0 {
			out = append(out, issue(StageSemantic, operation.CodeValidatorSemantic, "outputs",
				"Consume must produce no outputs"))
		}
	case operation.OpTransfer, operation.OpCrossDomainTransfer:
		if len(op.Inputs) == 0 || len(op.Outputs) == 0 {
			out = append(out, issue(StageSemantic, operation.CodeValidatorSemantic, "inputs/outputs",
				"Transfer requires at least one input and one output"))
		}
	case operation.OpUpdate, operation.OpFreeze, operation.OpUnfreeze:
		if len(op.Inputs) != 1 {
			out = append(out, issue(StageSemantic, operation.CodeValidatorSemantic, "inputs",
				"%s requires exactly one input", op.OpType))
		}
	}

	if fn, ok := p.opValidators[op.OpType.Kind]; ok {
		out = append(out, fn(op)...)
	}
	return out
}

func (p *Pipeline) authorization(op *operation.Operation) []Issue {
	right, needed := requiredRight[op.OpType.Kind]
	if !needed {
		return nil
	}

	var out []Issue
	for i, in := range op.Inputs {
		authorized := false
		for _, c := range op.Capabilities {
			if p.Capabilities.Verify(c.Id, capability.VerifyRequest{
				Rights:    []operation.Right{right},
				Resource:  in,
				Domain:    op.Context.Domain,
				WallClock: op.Context.ObservedTemporalSnapshot.WallClock,
			}) == nil {
				authorized = true
				break
			}
		}
		if !authorized {
			out = append(out, issue(StageAuthorization, operation.CodeValidatorAuth,
				fmt.Sprintf("inputs[%d]", i), "no presented capability authorizes %s over %s", right, in))
		}
	}
	return out
}

func (p *Pipeline) resourceStage(ctx context.Context, op *operation.Operation) []Issue {
	var out []Issue
	inputRegs := make([]*operation.ResourceRegister, 0, len(op.Inputs))
	for i, in := range op.Inputs {
		cur, err := p.Resources.Latest(ctx, in)
		if err != nil {
			out = append(out, issue(StageResource, operation.CodeResourceNotFound,
				fmt.Sprintf("inputs[%d]", i), "resource not found: %v", err))
			continue
		}
		inputRegs = append(inputRegs, cur)
		if cur.State.Kind == operation.StateConsumed || cur.State.Kind == operation.StateArchived {
			out = append(out, issue(StageResource, operation.CodeResourceConsumed,
				fmt.Sprintf("inputs[%d]", i), "resource is in terminal state %s", cur.State.Kind))
		}
		if cur.State.Kind == operation.StateLocked && cur.State.LockedBy != op.Initiator {
			out = append(out, issue(StageResource, operation.CodeResourceContended,
				fmt.Sprintf("inputs[%d]", i), "resource locked by %s", cur.State.LockedBy))
		}
	}
	out = append(out, p.conservation(op, inputRegs)...)
	return out
}

// conservation checks, per fungibility domain touched by op, that the sum
// of input quantities equals the sum of output quantities plus any
// declared burn: Σ quantity(inputs) == Σ quantity(outputs) + declared_burn.
// Domains absent from both inputs and outputs are untouched and skipped.
// declared_burn is subtracted only when exactly one domain is touched;
// with more than one it is ignored. An op spanning more than one domain is checked
// domain-by-domain, so a domain-pure Transfer balances on its own domain
// regardless of what else the op happens to carry.
func (p *Pipeline) conservation(op *operation.Operation, inputRegs []*operation.ResourceRegister) []Issue {
	balances := make(map[operation.FungibilityDomain]*big.Int)
	balanceFor := func(domain operation.FungibilityDomain) *big.Int {
		b, ok := balances[domain]
		if !ok {
			b = new(big.Int)
			balances[domain] = b
		}
		return b
	}

	for _, reg := range inputRegs {
		if reg.FungibilityDomain == "" {
			continue
		}
		balanceFor(reg.FungibilityDomain).Add(balanceFor(reg.FungibilityDomain), quantity128(reg.Quantity, reg.QuantityHi))
	}
	for i := range op.Outputs {
		out := &op.Outputs[i]
		if out.FungibilityDomain == "" {
			continue
		}
		balanceFor(out.FungibilityDomain).Sub(balanceFor(out.FungibilityDomain), quantity128(out.Quantity, out.QuantityHi))
	}
	if burn, ok := op.Parameters[declaredBurnParam]; ok && len(balances) == 1 {
		for domain := range balances {
			balanceFor(domain).Sub(balanceFor(domain), big.NewInt(0).SetUint64(burn.UInt))
		}
	}

	var out []Issue
	for domain, balance := range balances {
		if balance.Sign() != 0 {
			out = append(out, issue(StageResource, operation.CodeResourceConservation, "outputs",
				"fungibility domain %s does not conserve quantity: inputs - outputs - burn = %s", domain, balance.String()))
		}
	}
	return out
}

func (p *Pipeline) temporal(ctx context.Context, op *operation.Operation) []Issue {
	var out []Issue
	for i, dep := range op.TemporalDependencies {
		if _, err := p.Facts.Get(ctx, dep); err != nil {
			out = append(out, issue(StageTemporal, operation.CodeFactDependency,
				fmt.Sprintf("temporal_dependencies[%d]", i), "dependency not found: %v", err))
		}
	}
	return out
}

// transactionStage checks cross-operation invariants that only make sense
// once every operation's own validation has already passed: no resource
// may be consumed as an input by more than one operation in the same
// transaction, which would otherwise double-spend within a single atomic
// commit.
func (p *Pipeline) transactionStage(txn *operation.Transaction) []Issue {
	var out []Issue
	seen := make(map[operation.ContentHash]int)
	for i, op := range txn.Operations {
		for _, in := range op.Inputs {
			if first, ok := seen[in]; ok {
				out = append(out, issue(StageTransaction, operation.CodeValidatorTxn,
					fmt.Sprintf("operations[%d]", i),
					"resource %s already consumed by operations[%d] in this transaction", in, first))
				continue
			}
			seen[in] = i
		}
	}
	return out
}
