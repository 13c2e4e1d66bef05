package rule

import "fmt"

// CompilationError reports a structurally invalid rule definition. It
// always names the offending rule. Compilation is all-or-nothing: when
// any definition fails, no Set is produced.
type CompilationError struct {
	Rule   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule %q: %s: %v", e.Rule, e.Reason, e.Err)
	}
	return fmt.Sprintf("rule %q: %s", e.Rule, e.Reason)
}

// Unwrap exposes the underlying cause, if any.
func (e *CompilationError) Unwrap() error {
	return e.Err
}

func compileErr(rule, reason string, err error) *CompilationError {
	return &CompilationError{Rule: rule, Reason: reason, Err: err}
}
