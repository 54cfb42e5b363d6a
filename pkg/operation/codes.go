package operation

// Code is a stable, namespaced identifier for an error or validation
// issue surfaced to callers, independent of the message text, so
// dashboards and alerts can match on code rather than parsing prose.
// Namespacing mirrors the component that raised it: "store.",
// "capability.", "factlog.", "resource.", "effect.", "validator.",
// "router.".
type Code string

const (
	CodeStoreIntegrity       Code = "store.integrity"
	CodeStoreNotFound        Code = "store.not_found"
	CodeCapInvalidSignature  Code = "capability.invalid_signature"
	CodeCapRevoked           Code = "capability.revoked"
	CodeCapExpired           Code = "capability.expired"
	CodeCapRightsExceeded    Code = "capability.rights_exceeded"
	CodeCapTargetMismatch    Code = "capability.target_mismatch"
	CodeCapConstraint        Code = "capability.constraint_violated"
	CodeFactDependency       Code = "factlog.dependency_missing"
	CodeFactTemporal         Code = "factlog.temporal_regression"
	CodeFactDuplicate        Code = "factlog.duplicate"
	CodeResourceNotFound     Code = "resource.not_found"
	CodeResourceTransition   Code = "resource.invalid_transition"
	CodeResourceContended    Code = "resource.contended"
	CodeResourceConsumed     Code = "resource.already_consumed"
	CodeResourceCycle        Code = "resource.cycle_detected"
	CodeResourceConservation Code = "resource.conservation_violated"
	CodeValidatorStructural  Code = "validator.structural"
	CodeValidatorSemantic    Code = "validator.semantic"
	CodeValidatorAuth        Code = "validator.authorization"
	CodeValidatorResource    Code = "validator.resource"
	CodeValidatorTemporal    Code = "validator.temporal"
	CodeValidatorTxn         Code = "validator.transaction"
	CodeRouterDomainDown     Code = "router.domain_unavailable"
	CodeRouterPrepareFailed  Code = "router.prepare_failed"
	CodeRouterCommitFailed   Code = "router.commit_failed"
)
