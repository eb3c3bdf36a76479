// Package queryinflux compiles expression trees and statements to InfluxQL.
//
// Identifiers are always double quoted, strings single quoted, and regex
// patterns slash delimited. InfluxQL has no negation operator and no null
// test, so Not and NullTest nodes are rejected.
package queryinflux

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
)

// TimeFormat is the layout of timestamp literals, always in UTC.
const TimeFormat = "2006-01-02T15:04:05Z"

// Compiler compiles to InfluxQL. The zero value is ready to use.
type Compiler struct{}

// NewCompiler creates a Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

var _ queryir.Visitor[string] = (*Compiler)(nil)

// Compile converts a statement to InfluxQL.
func (c *Compiler) Compile(s queryir.Statement) (string, error) {
	switch stmt := s.(type) {
	case *queryir.Select:
		return c.compileSelect(stmt)
	case *queryir.ShowTagKeys:
		return c.compileShowTagKeys(stmt)
	case *queryir.ShowColumns:
		return "SHOW TAG KEYS" + onClause(stmt.Database) + " FROM " + Identifier(stmt.Table.Text()), nil
	case nil:
		return "", fmt.Errorf("cannot compile nil statement")
	default:
		return "", fmt.Errorf("unsupported statement type: %T", s)
	}
}

// CompileExpr renders e as a WHERE fragment. A nil expression renders as "".
func (c *Compiler) CompileExpr(e queryir.Expr) (string, error) {
	if e == nil {
		return "", nil
	}
	return queryir.Accept[string](e, c)
}

func (c *Compiler) compileSelect(q *queryir.Select) (string, error) {
	selectClause := "*"
	if len(q.Columns) > 0 {
		cols := make([]string, len(q.Columns))
		for i, col := range q.Columns {
			cols[i] = Identifier(col.Text())
		}
		selectClause = strings.Join(cols, ",")
	}

	where, err := c.whereClause(q.Where)
	if err != nil {
		return "", err
	}
	return "SELECT " + selectClause + " FROM " + source(q.Database, q.RetentionPolicy, q.Table) + where, nil
}

func (c *Compiler) compileShowTagKeys(q *queryir.ShowTagKeys) (string, error) {
	var from string
	if q.Measurement != nil {
		from = " FROM " + source(nil, q.RetentionPolicy, q.Measurement)
	}
	where, err := c.whereClause(q.Where)
	if err != nil {
		return "", err
	}
	return "SHOW TAG KEYS" + onClause(q.Database) + from + where, nil
}

func (c *Compiler) whereClause(e queryir.Expr) (string, error) {
	where, err := c.CompileExpr(e)
	if err != nil {
		return "", fmt.Errorf("compile filter: %w", err)
	}
	if where == "" {
		return "", nil
	}
	return " WHERE " + where, nil
}

// source qualifies a measurement: db.rp.m, db..m, rp.m or m.
func source(db, rp, m *queryir.Literal) string {
	name := Identifier(m.Text())
	switch {
	case db != nil && rp != nil:
		return Identifier(db.Text()) + "." + Identifier(rp.Text()) + "." + name
	case db != nil:
		return Identifier(db.Text()) + ".." + name
	case rp != nil:
		return Identifier(rp.Text()) + "." + name
	default:
		return name
	}
}

func onClause(db *queryir.Literal) string {
	if db == nil {
		return ""
	}
	return " ON " + Identifier(db.Text())
}

func (c *Compiler) Literal(lit *queryir.Literal) (string, error) {
	switch v := lit.Value().(type) {
	case string:
		switch lit.Kind() {
		case queryir.KindIdentifier:
			return Identifier(v), nil
		case queryir.KindRegex:
			return Regex(v), nil
		default:
			return String(v), nil
		}
	case bool:
		if v {
			return "True", nil
		}
		return "False", nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return ir.FormatFloat(v), nil
	case time.Time:
		return "'" + v.UTC().Format(TimeFormat) + "'", nil
	default:
		return "", queryir.Unsupported(queryir.TargetInflux, lit)
	}
}

func (c *Compiler) Not(n *queryir.Not) (string, error) {
	return "", queryir.Unsupported(queryir.TargetInflux, n)
}

func (c *Compiler) Comparison(cmp *queryir.Comparison) (string, error) {
	return c.binary(cmp.Kind(), cmp.Field(), cmp.Value())
}

func (c *Compiler) RegexMatch(r *queryir.RegexMatch) (string, error) {
	return c.binary(r.Kind(), r.Field(), r.Value())
}

func (c *Compiler) NullTest(n *queryir.NullTest) (string, error) {
	// InfluxQL has no null or existence test.
	return "", queryir.Unsupported(queryir.TargetInflux, n)
}

func (c *Compiler) Logical(l *queryir.Logical) (string, error) {
	op, ok := l.Kind().Op(queryir.TargetInflux)
	if !ok {
		return "", queryir.Unsupported(queryir.TargetInflux, l)
	}
	parts := make([]string, 0, l.Len())
	for _, e := range l.Exprs() {
		s, err := queryir.Accept[string](e, c)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+s+")")
	}
	slices.Sort(parts)
	return strings.Join(parts, " "+op+" "), nil
}

func (c *Compiler) binary(k *queryir.Kind, left, right *queryir.Literal) (string, error) {
	op, ok := k.Op(queryir.TargetInflux)
	if !ok {
		return "", queryir.Unsupportedf(queryir.TargetInflux, "%s has no InfluxQL operator", k.Name)
	}
	rhs, err := c.Literal(right)
	if err != nil {
		return "", err
	}
	return Identifier(left.Text()) + " " + op + " " + rhs, nil
}

// Identifier double quotes an identifier.
func Identifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `\"`) + `"`
}

// String single quotes a string literal.
func String(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

// Regex slash delimits a pattern, escaping slashes that are not already
// escaped.
func Regex(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern) + 2)
	b.WriteByte('/')
	escaped := false
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '/':
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	b.WriteByte('/')
	return b.String()
}
