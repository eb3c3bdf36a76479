package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/querify/internal/ir"
)

// Normalize rewrites a filter into canonical form.
//
// Shorthand is expanded per field:
//
//	{"f": "/p/"}            → {"f": {"regex": "p"}}
//	{"f": v}                → {"f": {"eq": v}}
//	{"f": [a, b]}           → {"or": [{"f": {"eq": a}}, {"f": {"eq": b}}]}
//	{"f": {"in": [a, b]}}   → {"or": [{"f": {"eq": a}}, {"f": {"eq": b}}]}
//	{"f": {"gt": 1, "lt": 9}} → {"and": [{"f": {"gt": 1}}, {"f": {"lt": 9}}]}
//
// Entries are processed in ir.SortedKeys order. Several resulting terms
// are combined under "and", a single term is returned as is, and no terms
// give an empty mapping, which means no filter at all. A nil filter is
// treated as empty.
func Normalize(filter any) (map[string]any, error) {
	c, err := ir.Canonicalize(filter)
	if err != nil {
		return nil, invalidQuery(filter, "invalid filter: %v", err)
	}
	if c == nil {
		return map[string]any{}, nil
	}
	m, ok := c.(map[string]any)
	if !ok {
		return nil, invalidQuery(c, "a filter must be a mapping, got %s", ir.TypeName(c))
	}
	return normalizeMap(m)
}

func normalizeMap(m map[string]any) (map[string]any, error) {
	var terms []any
	for _, key := range ir.SortedKeys(m) {
		t, err := normalizeEntry(key, m[key])
		if err != nil {
			return nil, err
		}
		terms = append(terms, t...)
	}
	return conjoin(terms), nil
}

func conjoin(terms []any) map[string]any {
	switch len(terms) {
	case 0:
		return map[string]any{}
	case 1:
		if m, ok := terms[0].(map[string]any); ok {
			return m
		}
	}
	return map[string]any{KeyAnd: terms}
}

// normalizeEntry returns the conjunction terms one entry contributes. Each
// term is a single-entry canonical mapping or an already-built Expr.
func normalizeEntry(key string, value any) ([]any, error) {
	switch key {
	case KeyAnd:
		return normalizeAnd(value)
	case KeyOr:
		return normalizeOr(value)
	case KeyNot:
		return normalizeNot(value)
	default:
		return normalizeField(key, value)
	}
}

func normalizeAnd(value any) ([]any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, invalidQuery(value, "%q expects a list of filters, got %s", KeyAnd, ir.TypeName(value))
	}
	var terms []any
	for i, item := range list {
		if e, ok := item.(Expr); ok {
			terms = append(terms, e)
			continue
		}
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, invalidQuery(item, "%s[%d]: expected a filter mapping, got %s", KeyAnd, i, ir.TypeName(item))
		}
		n, err := normalizeMap(sub)
		if err != nil {
			return nil, err
		}
		if len(n) == 0 {
			return nil, invalidQuery(item, "%s[%d]: empty filter", KeyAnd, i)
		}
		// Elements keep their own normalized form, nested "and" included.
		terms = append(terms, n)
	}
	return terms, nil
}

func normalizeOr(value any) ([]any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, invalidQuery(value, "%q expects a list of filters, got %s", KeyOr, ir.TypeName(value))
	}
	if len(list) == 0 {
		return nil, invalidQuery(value, "%q needs at least one filter", KeyOr)
	}
	children := make([]any, 0, len(list))
	for i, item := range list {
		if e, ok := item.(Expr); ok {
			children = append(children, e)
			continue
		}
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, invalidQuery(item, "%s[%d]: expected a filter mapping, got %s", KeyOr, i, ir.TypeName(item))
		}
		n, err := normalizeMap(sub)
		if err != nil {
			return nil, err
		}
		if len(n) == 0 {
			return nil, invalidQuery(item, "%s[%d]: empty filter", KeyOr, i)
		}
		children = append(children, n)
	}
	return []any{map[string]any{KeyOr: children}}, nil
}

func normalizeNot(value any) ([]any, error) {
	if e, ok := value.(Expr); ok {
		return []any{map[string]any{KeyNot: e}}, nil
	}
	sub, ok := value.(map[string]any)
	if !ok {
		return nil, invalidQuery(value, "%q expects a filter mapping, got %s", KeyNot, ir.TypeName(value))
	}
	n, err := normalizeMap(sub)
	if err != nil {
		return nil, err
	}
	if len(n) == 0 {
		return nil, invalidQuery(value, "%q of an empty filter", KeyNot)
	}
	return []any{map[string]any{KeyNot: n}}, nil
}

func normalizeField(field string, value any) ([]any, error) {
	if s, ok := value.(string); ok && isRegexShorthand(s) {
		return []any{leaf(field, KeyMatchRegex, regexShorthandPattern(s))}, nil
	}
	if ir.IsScalar(value) {
		return []any{leaf(field, KeyEqual, value)}, nil
	}

	switch val := value.(type) {
	case []any:
		or, err := equalityDisjunction(field, val)
		if err != nil {
			return nil, err
		}
		return []any{or}, nil
	case map[string]any:
		if len(val) == 0 {
			return nil, invalidQuery(map[string]any{field: val}, "empty operator mapping for field %q", field)
		}
		terms := make([]any, 0, len(val))
		for _, op := range ir.SortedKeys(val) {
			operand := val[op]
			switch {
			case ir.IsScalar(operand):
				terms = append(terms, leaf(field, op, operand))
			case isList(operand) && op == KeyIn:
				or, err := equalityDisjunction(field, operand.([]any))
				if err != nil {
					return nil, err
				}
				terms = append(terms, or)
			case isList(operand):
				return nil, invalidQuery(map[string]any{field: val},
					"%q operator cannot be applied on a list", op)
			default:
				return nil, invalidQuery(map[string]any{op: operand},
					"query condition is unrecognized: %s", ir.Format(map[string]any{op: operand}))
			}
		}
		return terms, nil
	}

	return nil, invalidQuery(map[string]any{field: value},
		"invalid filter %s: a field accepts a \"/regex/\" string, a scalar, a list of scalars or an {operator: operand} mapping",
		ir.Format(map[string]any{field: value}))
}

// equalityDisjunction expands a list of values into an "or" of equalities.
func equalityDisjunction(field string, values []any) (map[string]any, error) {
	if len(values) == 0 {
		return nil, invalidQuery(map[string]any{field: values}, "empty list for field %q matches nothing", field)
	}
	children := make([]any, len(values))
	for i, v := range values {
		if !ir.IsScalar(v) {
			return nil, invalidQuery(v, "%s[%d]: list elements must be scalars, got %s", field, i, ir.TypeName(v))
		}
		children[i] = leaf(field, KeyEqual, v)
	}
	return map[string]any{KeyOr: children}, nil
}

func leaf(field, op string, operand any) map[string]any {
	return map[string]any{field: map[string]any{op: operand}}
}

func isRegexShorthand(s string) bool {
	return strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/")
}

// regexShorthandPattern strips the slashes. A lone "/" is an empty pattern.
func regexShorthandPattern(s string) string {
	if len(s) < 2 {
		return ""
	}
	return s[1 : len(s)-1]
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}

// MustNormalize is like Normalize but panics on error. For tests and
// static filters.
func MustNormalize(filter any) map[string]any {
	n, err := Normalize(filter)
	if err != nil {
		panic(fmt.Sprintf("normalize %s: %v", ir.Format(filter), err))
	}
	return n
}
