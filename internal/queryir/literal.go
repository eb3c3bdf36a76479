package queryir

import (
	"fmt"
	"math"
	"time"

	"github.com/roach88/querify/internal/ir"
)

// Literal is a typed leaf value.
type Literal struct {
	kind  *Kind
	value any
}

// NewLiteral wraps v as a literal of kind k. The canonical value must
// satisfy the kind's acceptance predicate: a BooleanLiteral wraps a bool,
// never an integer.
func NewLiteral(k *Kind, v any) (*Literal, error) {
	if k == nil || !k.Final || k.Accepts == nil {
		return nil, invalidQuery(v, "%v is not a literal kind", k)
	}
	c, err := ir.Canonicalize(v)
	if err != nil {
		return nil, invalidQuery(v, "invalid %s: %v", k.Name, err)
	}
	if !k.Accepts(c) {
		if f, ok := c.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return nil, invalidQuery(c, "invalid %s: non-finite float %v", k.Name, f)
		}
		return nil, &Error{
			Code:     ErrCodeInvalidQuery,
			Message:  fmt.Sprintf("invalid type of literal %s: expected %s, got %s", ir.Format(c), k.Name, ir.TypeName(c)),
			Fragment: c,
			Kind:     k.Name,
		}
	}
	return &Literal{kind: k, value: c}, nil
}

// NewIdentifier returns an IdentifierLiteral naming a field or column.
func NewIdentifier(name string) (*Literal, error) {
	return NewLiteral(KindIdentifier, name)
}

func (l *Literal) Kind() *Kind { return l.kind }

// Value returns the canonical native value.
func (l *Literal) Value() any { return l.value }

// Text returns the value of a string, regex or identifier literal.
func (l *Literal) Text() string {
	s, _ := l.value.(string)
	return s
}

func (l *Literal) Children() []Expr { return nil }

func (l *Literal) String() string {
	return fmt.Sprintf("%s(%s)", l.kind.Name, ir.Format(l.value))
}

func (*Literal) exprNode() {}

func constructLiteral(_ *Builder, k *Kind, v any) Attempt {
	lit, err := NewLiteral(k, v)
	if err != nil {
		return Fatal(err)
	}
	return Found(lit)
}

// scalarKey names the literal key for a canonical scalar, or "".
func scalarKey(v any) string {
	switch v.(type) {
	case string:
		return KeyString
	case bool:
		return KeyBool
	case int64:
		return KeyInt
	case float64:
		return KeyFloat
	case time.Time:
		return KeyTime
	default:
		return ""
	}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isInt(v any) bool {
	_, ok := v.(int64)
	return ok
}

func isFloat(v any) bool {
	f, ok := v.(float64)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isTime(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func isIdentifier(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}
