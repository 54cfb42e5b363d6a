// Package validator implements the multi-stage operation validator:
// Structural, Semantic, Authorization, Resource, Temporal, and
// Transaction stages, each short-circuiting the pipeline on failure.
package validator

import "github.com/causalityco/causality/pkg/operation"

// Stage names one phase of the validation pipeline, in the fixed order
// the pipeline always runs them.
type Stage uint8

const (
	StageStructural Stage = iota
	StageSemantic
	StageAuthorization
	StageResource
	StageTemporal
	StageTransaction
)

func (s Stage) String() string {
	switch s {
	case StageStructural:
		return "Structural"
	case StageSemantic:
		return "Semantic"
	case StageAuthorization:
		return "Authorization"
	case StageResource:
		return "Resource"
	case StageTemporal:
		return "Temporal"
	case StageTransaction:
		return "Transaction"
	default:
		return "Unknown"
	}
}

// Severity distinguishes a hard validation failure from an advisory note.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Issue is one finding raised during validation.
type Issue struct {
	Severity Severity
	Stage    Stage
	Code     operation.Code
	Message  string
	Location string // e.g. "inputs[2]", "capabilities[0]"
}

// Report is the outcome of validating one operation or transaction.
type Report struct {
	Valid  bool
	Issues []Issue
}

// hasError reports whether issues contains any SeverityError entry.
func hasError(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
