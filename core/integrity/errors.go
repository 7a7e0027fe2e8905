package integrity

import (
	"errors"
	"fmt"
)

// ErrIntegrity is matched by the error Validate returns for an invalid
// report.
var ErrIntegrity = errors.New("integrity check failed")

// ReportError carries the invalid report.
type ReportError struct {
	Report *Report
}

func (e *ReportError) Error() string {
	errs := e.Report.Errors()
	if len(errs) == 0 {
		return ErrIntegrity.Error()
	}
	return fmt.Sprintf("%s: %d error(s), first: %s", ErrIntegrity, len(errs), errs[0].Message)
}

func (e *ReportError) Unwrap() error {
	return ErrIntegrity
}
