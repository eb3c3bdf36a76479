package queryir

import (
	"fmt"
	"slices"
	"strings"
)

// Expr is a node of a filter expression tree.
//
// The set of implementations is closed: *Literal, *Not, *Comparison,
// *RegexMatch, *NullTest and *Logical. Nodes are immutable.
type Expr interface {
	Kind() *Kind
	Children() []Expr
	String() string
	exprNode()
}

// Not negates a boolean operand.
type Not struct {
	kind    *Kind
	operand Expr
}

// NewNot negates operand, which must be a boolean expression.
func NewNot(operand Expr) (*Not, error) {
	if operand == nil || !KindBoolean.Covers(operand.Kind()) {
		return nil, invalidQuery(nil, "the operand of %q must be a boolean expression, got %v", KeyNot, operand)
	}
	return &Not{kind: KindNot, operand: operand}, nil
}

func (n *Not) Kind() *Kind      { return n.kind }
func (n *Not) Operand() Expr    { return n.operand }
func (n *Not) Children() []Expr { return []Expr{n.operand} }
func (n *Not) String() string   { return fmt.Sprintf("%s(%s)", n.kind.Name, n.operand) }
func (*Not) exprNode()          {}

// binary holds the operands shared by the binary node types. Left is always
// an identifier.
type binary struct {
	kind  *Kind
	left  *Literal
	right *Literal
}

func (b *binary) Kind() *Kind { return b.kind }

// Field returns the identifier on the left hand side.
func (b *binary) Field() *Literal { return b.left }

// Value returns the operand on the right hand side.
func (b *binary) Value() *Literal { return b.right }

func (b *binary) Children() []Expr { return []Expr{b.left, b.right} }

func (b *binary) String() string {
	return fmt.Sprintf("%s(left=%s, right=%s)", b.kind.Name, b.left, b.right)
}

// Comparison is one of eq, ne, gt, gte, lt and lte.
type Comparison struct{ binary }

func (*Comparison) exprNode() {}

// RegexMatch is regex or nregex. Its value is a RegexLiteral.
type RegexMatch struct{ binary }

// Inverse reports whether the match is negated (nregex).
func (r *RegexMatch) Inverse() bool { return r.kind.Key == KeyNotMatchRegex }

func (*RegexMatch) exprNode() {}

// NullTest is null or missing. Its value is a BooleanLiteral: true asks
// for null (or missing) fields, false for present ones.
type NullTest struct{ binary }

// Missing reports whether the test is for field existence rather than null.
func (n *NullTest) Missing() bool { return n.kind.Key == KeyMissing }

// Want returns the boolean operand.
func (n *NullTest) Want() bool {
	b, _ := n.right.value.(bool)
	return b
}

func (*NullTest) exprNode() {}

// Logical combines boolean operands with and/or. Operand order is kept and
// duplicates are allowed.
type Logical struct {
	kind  *Kind
	exprs []Expr
}

// NewLogical combines exprs under k, which must be a Logical kind.
func NewLogical(k *Kind, exprs []Expr) (*Logical, error) {
	if k == nil || !KindLogical.Covers(k) || !k.Final {
		return nil, invalidQuery(nil, "%v is not a logical kind", k)
	}
	if len(exprs) == 0 {
		return nil, invalidQuery([]any{}, "%q needs at least one operand", k.Key)
	}
	for _, e := range exprs {
		if e == nil || !KindBoolean.Covers(e.Kind()) {
			return nil, invalidQuery(nil, "operands of %q must be boolean expressions, got %v", k.Key, e)
		}
	}
	return &Logical{kind: k, exprs: slices.Clone(exprs)}, nil
}

func (l *Logical) Kind() *Kind { return l.kind }

// Exprs returns a copy of the operands.
func (l *Logical) Exprs() []Expr { return slices.Clone(l.exprs) }

func (l *Logical) Len() int { return len(l.exprs) }

func (l *Logical) Children() []Expr { return slices.Clone(l.exprs) }

func (l *Logical) String() string {
	parts := make([]string, len(l.exprs))
	for i, e := range l.exprs {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%s(%s)", l.kind.Name, strings.Join(parts, ", "))
}

func (*Logical) exprNode() {}

// NewComparison builds field <op> value for a comparison kind.
func NewComparison(k *Kind, field string, value any) (*Comparison, error) {
	b, err := newBinary(k, field, value)
	if err != nil {
		return nil, err
	}
	return &Comparison{b}, nil
}

func newBinary(k *Kind, field string, value any) (binary, error) {
	if k == nil || !KindBinary.Covers(k) || !k.Final {
		return binary{}, invalidQuery(nil, "%v is not a binary kind", k)
	}
	left, err := NewIdentifier(field)
	if err != nil {
		return binary{}, err
	}
	right, ok := value.(*Literal)
	if !ok {
		key := scalarKey(value)
		if key == "" {
			return binary{}, invalidQuery(value, "the operand of %q must be a scalar, got %T", k.Key, value)
		}
		lk, err := defaultRegistry.Lookup(ScopeLiteral, key)
		if err != nil {
			return binary{}, err
		}
		if right, err = NewLiteral(lk, value); err != nil {
			return binary{}, err
		}
	}
	return binary{kind: k, left: left, right: right}, nil
}

// Inspect traverses e depth-first, calling fn for each node. If fn returns
// false, the children of that node are skipped.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range e.Children() {
		Inspect(c, fn)
	}
}

// Identifiers returns the distinct field names referenced by e, in order of
// first appearance.
func Identifiers(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	Inspect(e, func(n Expr) bool {
		if lit, ok := n.(*Literal); ok && lit.kind.Key == KeyIdentifier {
			if name := lit.Text(); !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		return true
	})
	return names
}
