package factlog

import "errors"

// Sentinel errors for the temporal fact log.
var (
	ErrDependencyMissing  = errors.New("factlog: dependency not found in log")
	ErrTemporalRegression = errors.New("factlog: fact's temporal position does not dominate what it must follow")
	ErrDuplicateFact      = errors.New("factlog: fact already appended")
	ErrNotFound           = errors.New("factlog: fact not found")
	ErrEmptyBatch         = errors.New("factlog: cannot compute root of an empty batch")
)
