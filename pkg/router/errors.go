package router

import "errors"

// Sentinel errors for routing and commit.
var (
	ErrDomainUnavailable = errors.New("router: domain unavailable")
	ErrPrepareFailed     = errors.New("router: prepare phase failed")
	ErrCommitFailed      = errors.New("router: commit phase failed")
	ErrValidationFailed  = errors.New("router: operation failed validation")
)
