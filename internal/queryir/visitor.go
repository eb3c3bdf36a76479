package queryir

import "fmt"

// Visitor renders each node type into R. A backend implements every method;
// a node it cannot express returns an error from Unsupported.
type Visitor[R any] interface {
	Literal(*Literal) (R, error)
	Not(*Not) (R, error)
	Comparison(*Comparison) (R, error)
	RegexMatch(*RegexMatch) (R, error)
	NullTest(*NullTest) (R, error)
	Logical(*Logical) (R, error)
}

// Accept dispatches e to the matching Visitor method.
func Accept[R any](e Expr, v Visitor[R]) (R, error) {
	switch n := e.(type) {
	case *Literal:
		return v.Literal(n)
	case *Not:
		return v.Not(n)
	case *Comparison:
		return v.Comparison(n)
	case *RegexMatch:
		return v.RegexMatch(n)
	case *NullTest:
		return v.NullTest(n)
	case *Logical:
		return v.Logical(n)
	case nil:
		var zero R
		return zero, fmt.Errorf("accept: %w", invalidQuery(nil, "nil expression"))
	default:
		var zero R
		return zero, fmt.Errorf("accept: unknown node type %T", e)
	}
}
