package validator

import "errors"

// ErrRejected names a rejected operation. Validate does not return it:
// Validate and ValidateTransaction report rejection through Report.Valid
// and Report.Issues, and no function in this package returns this error.
var ErrRejected = errors.New("validator: operation rejected")
