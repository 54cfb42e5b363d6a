package capability

import (
	"fmt"
	"strconv"

	"github.com/causalityco/causality/pkg/operation"
)

// VerifyRequest describes the context a capability is being checked
// against: what rights are being exercised, against which resource, and
// under what ambient conditions the constraint interpreter can inspect.
type VerifyRequest struct {
	Rights      []operation.Right
	Resource    operation.ContentHash
	ResourceTy  operation.ResourceType
	Amount      uint64
	Domain      operation.DomainId
	OpTypeName  string
	Recipient   operation.EntityId
	WallClock   uint64 // current time, same units as constraints' expires_at/not_before
}

// checkConstraints runs every key in c.Constraints against req. An unknown
// key fails closed rather than being silently ignored, so a typo in a
// constraint never accidentally widens a grant.
func checkConstraints(c *operation.Capability, req VerifyRequest) error {
	for key, val := range c.Constraints {
		switch key {
		case "expires_at":
			limit, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: expires_at: %v", ErrConstraintViolated, err)
			}
			if req.WallClock > limit {
				return fmt.Errorf("%w: expires_at %d < now %d", ErrExpired, limit, req.WallClock)
			}
		case "not_before":
			start, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: not_before: %v", ErrConstraintViolated, err)
			}
			if req.WallClock < start {
				return fmt.Errorf("%w: not_before %d > now %d", ErrConstraintViolated, start, req.WallClock)
			}
		case "max_amount":
			max, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: max_amount: %v", ErrConstraintViolated, err)
			}
			if req.Amount > max {
				return fmt.Errorf("%w: max_amount %d < requested %d", ErrConstraintViolated, max, req.Amount)
			}
		case "domain":
			if string(req.Domain) != val {
				return fmt.Errorf("%w: domain %q != %q", ErrConstraintViolated, val, req.Domain)
			}
		case "operation":
			if req.OpTypeName != val {
				return fmt.Errorf("%w: operation %q != %q", ErrConstraintViolated, val, req.OpTypeName)
			}
		case "recipient":
			if string(req.Recipient) != val {
				return fmt.Errorf("%w: recipient %q != %q", ErrConstraintViolated, val, req.Recipient)
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnknownConstraint, key)
		}
	}
	return nil
}

// checkTarget reports whether req's resource matches c's target, either by
// exact content hash or by type pattern.
func checkTarget(c *operation.Capability, req VerifyRequest) error {
	switch c.Target.Kind {
	case operation.TargetResource:
		if !c.Target.Resource.Equal(req.Resource) {
			return fmt.Errorf("%w: target %s != resource %s", ErrTargetMismatch, c.Target.Resource, req.Resource)
		}
	case operation.TargetTypePattern:
		if c.Target.Pattern != req.ResourceTy {
			return fmt.Errorf("%w: pattern %q != type %q", ErrTargetMismatch, c.Target.Pattern, req.ResourceTy)
		}
	}
	return nil
}
