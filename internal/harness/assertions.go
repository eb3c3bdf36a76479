package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
	"github.com/roach88/querify/internal/sqlcheck"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Outputs  []Output // Every rendering, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Outputs) > 0 {
		fmt.Fprintf(&buf, "\nOutputs:\n")
		for _, o := range e.Outputs {
			if o.Code != "" {
				fmt.Fprintf(&buf, "  [%s] error %s\n", o.Target, o.Code)
				continue
			}
			fmt.Fprintf(&buf, "  [%s] %s\n", o.Target, o.Text)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Ctx       context.Context
	Expr      queryir.Expr
	Statement queryir.Statement
	Scenario  *Scenario
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertIdentifiers:
			err = assertIdentifiers(actx.Expr, a)
		case AssertNormalized:
			err = assertNormalized(actx.Scenario, a)
		case AssertContains:
			err = assertContains(result, a)
		case AssertSQLValid:
			err = assertSQLValid(actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			if ae, ok := err.(*AssertionError); ok {
				ae.Outputs = result.Outputs
			}
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertIdentifiers checks the distinct field names of the filter, in
// order of first appearance.
func assertIdentifiers(e queryir.Expr, a Assertion) error {
	got := queryir.Identifiers(e)
	if slices.Equal(got, a.Names) || (len(got) == 0 && len(a.Names) == 0) {
		return nil
	}
	return &AssertionError{
		Type:     AssertIdentifiers,
		Expected: fmt.Sprintf("%v", a.Names),
		Actual:   fmt.Sprintf("%v", got),
	}
}

// assertNormalized compares the normalized filter with the expected one
// by canonical JSON.
func assertNormalized(s *Scenario, a Assertion) error {
	if s.Filter == nil {
		return fmt.Errorf("%s requires a filter scenario", AssertNormalized)
	}
	normalized, err := queryir.Normalize(s.Filter.V)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	got, err := ir.MarshalCanonical(normalized)
	if err != nil {
		return err
	}
	want, err := canonical(a.Expect.V)
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}
	if string(got) != string(want) {
		return &AssertionError{
			Type:     AssertNormalized,
			Expected: string(want),
			Actual:   string(got),
		}
	}
	return nil
}

func canonical(v any) ([]byte, error) {
	c, err := ir.Canonicalize(v)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(c)
}

// assertContains checks that a target rendered successfully and that its
// output contains the expected text.
func assertContains(result *Result, a Assertion) error {
	target := queryir.Target(a.Target)
	out, ok := result.Output(target)
	switch {
	case !ok:
		return &AssertionError{
			Type:     AssertContains,
			Expected: fmt.Sprintf("%s output containing %q", a.Target, a.Text),
			Actual:   "target not rendered",
		}
	case out.Code != "":
		return &AssertionError{
			Type:     AssertContains,
			Expected: fmt.Sprintf("%s output containing %q", a.Target, a.Text),
			Actual:   "error " + out.Code,
		}
	case !strings.Contains(out.Text, a.Text):
		return &AssertionError{
			Type:     AssertContains,
			Expected: fmt.Sprintf("%s output containing %q", a.Target, a.Text),
			Actual:   out.Text,
		}
	}
	return nil
}

// assertSQLValid prepares the MySQL rendering against SQLite.
func assertSQLValid(actx *AssertionContext) error {
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	if actx.Statement != nil {
		err = sqlcheck.Check(ctx, actx.Statement)
	} else {
		err = sqlcheck.CheckFilter(ctx, actx.Expr)
	}
	if err != nil {
		return &AssertionError{
			Type:     AssertSQLValid,
			Expected: "SQL accepted by SQLite",
			Actual:   err.Error(),
		}
	}
	return nil
}
