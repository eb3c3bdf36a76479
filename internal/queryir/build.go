package queryir

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/querify/internal/ir"
)

// Builder constructs expression trees from canonical JSON using a Registry.
// A Builder holds no mutable state and may be shared between goroutines.
type Builder struct {
	registry *Registry
	logger   *slog.Logger
}

// NewBuilder returns a builder over reg. A nil reg selects the default
// registry; a nil logger discards debug output.
func NewBuilder(reg *Registry, logger *slog.Logger) *Builder {
	if reg == nil {
		reg = defaultRegistry
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Builder{registry: reg, logger: logger}
}

// Registry returns the registry the builder resolves keys in.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Build constructs a node of family k from v using the default registry.
func Build(k *Kind, v any) (Expr, error) {
	return defaultBuilder.Build(k, v)
}

// BuildWhere builds the root of a where clause using the default registry.
func BuildWhere(v any) (Expr, error) {
	return defaultBuilder.BuildWhere(v)
}

// Build constructs a node of family k from v.
//
// v may be raw filter JSON when k is in the operator family; it is
// normalized first. Below that, v must already be canonical. An Expr of
// family k is returned unchanged.
func (b *Builder) Build(k *Kind, v any) (Expr, error) {
	if e, ok := v.(Expr); ok {
		return passThrough(k, e)
	}
	c, err := ir.Canonicalize(v)
	if err != nil {
		return nil, invalidQuery(v, "invalid filter: %v", err)
	}
	return b.build(k, c, false)
}

// BuildWhere builds the root of a where clause. An absent or empty filter
// yields a nil Expr and no error.
func (b *Builder) BuildWhere(v any) (Expr, error) {
	if v == nil {
		return nil, nil
	}
	if e, ok := v.(Expr); ok {
		return passThrough(KindBoolean, e)
	}
	c, err := ir.Canonicalize(v)
	if err != nil {
		return nil, invalidQuery(v, "invalid filter: %v", err)
	}
	m, ok := c.(map[string]any)
	if !ok {
		return nil, invalidQuery(c, "a filter must be a mapping, got %s", ir.TypeName(c))
	}
	n, err := normalizeMap(m)
	if err != nil {
		return nil, err
	}
	if len(n) == 0 {
		return nil, nil
	}
	return b.build(KindBoolean, n, true)
}

// BuildOperand builds a child node inside a constructor. v must be canonical
// and already normalized.
func (b *Builder) BuildOperand(k *Kind, v any) (Expr, error) {
	return b.build(k, v, true)
}

func (b *Builder) build(k *Kind, v any, prepared bool) (Expr, error) {
	if k == nil || !b.registry.Contains(k) {
		return nil, staticConfig("kind %v is not registered", k)
	}
	if e, ok := v.(Expr); ok {
		return passThrough(k, e)
	}

	var a Attempt
	if lk := b.literalFor(k, v); lk != nil {
		a = lk.Construct(b, lk, v)
	} else {
		a = b.construct(k, v, prepared)
	}

	switch a.Outcome {
	case OutcomeFound:
		if !k.Covers(a.Expr.Kind()) {
			return nil, &Error{
				Code:     ErrCodeInvalidQuery,
				Message:  fmt.Sprintf("unexpected expression type for %s: got %s", k.Name, a.Expr),
				Fragment: v,
				Kind:     k.Name,
			}
		}
		return a.Expr, nil
	case OutcomeFatal:
		return nil, a.Err
	default:
		cause := unrecognized(k, v)
		msg := cause.Message
		if _, ok := v.(map[string]any); ok {
			msg += " (known operators: " + strings.Join(b.registry.Keys(ScopeOperator), ", ") + ")"
		}
		return nil, &Error{
			Code:     ErrCodeInvalidQuery,
			Message:  msg,
			Fragment: v,
			Kind:     k.Name,
			cause:    cause,
		}
	}
}

// literalFor returns the literal kind a scalar maps to directly when k is an
// abstract literal family covering it.
func (b *Builder) literalFor(k *Kind, v any) *Kind {
	if !k.Abstract || !KindLiteral.Covers(k) {
		return nil
	}
	key := scalarKey(v)
	if key == "" {
		return nil
	}
	lk, err := b.registry.Lookup(ScopeLiteral, key)
	if err != nil || !k.Covers(lk) || !lk.Final {
		return nil
	}
	return lk
}

// construct runs the candidate trial loop for k.
func (b *Builder) construct(k *Kind, v any, prepared bool) Attempt {
	if !prepared {
		if prep := k.prepareFunc(); prep != nil {
			p, err := prep(v)
			if err != nil {
				return Fatal(err)
			}
			v, prepared = p, true
		}
	}
	if k.Final {
		return k.Construct(b, k, v)
	}

	keys := k.keysFunc()
	if keys == nil {
		return TryNext()
	}
	scope := k.lookupScope()
	for _, key := range keys(v) {
		sub, err := b.registry.Lookup(scope, key)
		if err != nil {
			b.logger.Debug("no kind for candidate key", "family", k.Name, "scope", scope, "key", key)
			continue
		}
		if sub == k {
			continue
		}
		a := b.construct(sub, v, prepared)
		if a.Outcome == OutcomeTryNext {
			b.logger.Debug("candidate kind did not match", "family", k.Name, "candidate", sub.Name)
			continue
		}
		return a
	}
	return TryNext()
}

func passThrough(k *Kind, e Expr) (Expr, error) {
	if k.Covers(e.Kind()) {
		return e, nil
	}
	return nil, &Error{
		Code:    ErrCodeInvalidQuery,
		Message: fmt.Sprintf("unexpected expression type for %s: got %s", k.Name, e),
		Kind:    k.Name,
	}
}

// binaryOperands splits {field: {op: right}} when op is k's key.
func binaryOperands(k *Kind, v any) (string, any, bool) {
	field, inner, ok := singleEntry(v)
	if !ok {
		return "", nil, false
	}
	op, right, ok := singleEntry(inner)
	if !ok || op != k.Key {
		return "", nil, false
	}
	return field, right, true
}

func buildLiteral(b *Builder, k *Kind, v any) (*Literal, error) {
	e, err := b.BuildOperand(k, v)
	if err != nil {
		return nil, err
	}
	lit, ok := e.(*Literal)
	if !ok {
		return nil, invalidQuery(v, "expected a literal, got %s", e)
	}
	return lit, nil
}

func buildBinary(b *Builder, k *Kind, v any, rightKind *Kind) (binary, Attempt, bool) {
	field, right, ok := binaryOperands(k, v)
	if !ok {
		return binary{}, TryNext(), false
	}
	left, err := buildLiteral(b, KindIdentifier, field)
	if err != nil {
		return binary{}, Fatal(err), false
	}
	r, err := buildLiteral(b, rightKind, right)
	if err != nil {
		return binary{}, Fatal(err), false
	}
	return binary{kind: k, left: left, right: r}, Attempt{}, true
}

func constructComparison(b *Builder, k *Kind, v any) Attempt {
	bin, a, ok := buildBinary(b, k, v, KindLiteral)
	if !ok {
		return a
	}
	return Found(&Comparison{bin})
}

// constructRegexMatch coerces the right operand to a RegexLiteral even
// though canonical JSON carries it as a plain string.
func constructRegexMatch(b *Builder, k *Kind, v any) Attempt {
	field, right, ok := binaryOperands(k, v)
	if !ok {
		return TryNext()
	}
	if lit, ok := right.(*Literal); ok && lit.Kind().Key == KeyString {
		right = lit.Text()
	}
	left, err := buildLiteral(b, KindIdentifier, field)
	if err != nil {
		return Fatal(err)
	}
	pattern, err := buildLiteral(b, KindRegex, right)
	if err != nil {
		return Fatal(err)
	}
	return Found(&RegexMatch{binary{kind: k, left: left, right: pattern}})
}

func constructNullTest(b *Builder, k *Kind, v any) Attempt {
	_, right, ok := binaryOperands(k, v)
	if !ok {
		return TryNext()
	}
	if _, isBool := right.(bool); !isBool {
		return Fatal(invalidQuery(v, "the operand of %q must be either true or false, got %s", k.Key, ir.Format(right)))
	}
	bin, a, ok := buildBinary(b, k, v, KindBool)
	if !ok {
		return a
	}
	return Found(&NullTest{bin})
}

func constructNot(b *Builder, k *Kind, v any) Attempt {
	key, operand, ok := singleEntry(v)
	if !ok || key != k.Key {
		return TryNext()
	}
	e, err := b.BuildOperand(KindBoolean, operand)
	if err != nil {
		return Fatal(fmt.Errorf("%s: %w", k.Key, err))
	}
	return Found(&Not{kind: k, operand: e})
}

func constructLogical(b *Builder, k *Kind, v any) Attempt {
	key, value, ok := singleEntry(v)
	if !ok || key != k.Key {
		return TryNext()
	}
	list, ok := value.([]any)
	if !ok {
		return Fatal(invalidQuery(v, "the %q operator is not applied on a list: %s", k.Key, ir.Format(v)))
	}
	if len(list) == 0 {
		return Fatal(invalidQuery(v, "%q needs at least one operand", k.Key))
	}
	exprs := make([]Expr, len(list))
	for i, item := range list {
		e, err := b.BuildOperand(KindBoolean, item)
		if err != nil {
			return Fatal(fmt.Errorf("%s[%d]: %w", k.Key, i, err))
		}
		exprs[i] = e
	}
	return Found(&Logical{kind: k, exprs: exprs})
}
