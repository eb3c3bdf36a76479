package querysql

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
)

// MySQLTimeFormat is the layout of timestamp literals, always in UTC.
const MySQLTimeFormat = "2006-01-02 15:04:05"

// Compiler compiles expression trees and statements to MySQL.
//
// By default values are written inline as SQL literals. With Parameterize
// set, every value literal becomes a ? placeholder and is returned in the
// params slice, in placeholder order.
type Compiler struct {
	Parameterize bool
}

// NewCompiler creates a Compiler that inlines values.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile converts a statement to SQL.
// Returns (sql, params, error); params is nil unless Parameterize is set.
func (c *Compiler) Compile(s queryir.Statement) (string, []any, error) {
	if s == nil {
		return "", nil, fmt.Errorf("cannot compile nil statement")
	}

	switch stmt := s.(type) {
	case *queryir.Select:
		return c.compileSelect(stmt)
	case *queryir.ShowColumns:
		return "SHOW COLUMNS FROM " + qualified(stmt.Database, stmt.Table), nil, nil
	case *queryir.ShowTagKeys:
		return "", nil, queryir.Unsupportedf(queryir.TargetMySQL, "SHOW TAG KEYS has no MySQL form")
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", s)
	}
}

// CompileExpr renders e as a WHERE fragment. A nil expression renders as "".
func (c *Compiler) CompileExpr(e queryir.Expr) (string, []any, error) {
	if e == nil {
		return "", nil, nil
	}
	f, err := queryir.Accept[fragment](e, &renderer{parameterize: c.Parameterize})
	if err != nil {
		return "", nil, err
	}
	return f.sql, f.params, nil
}

func (c *Compiler) compileSelect(q *queryir.Select) (string, []any, error) {
	selectClause := "*"
	if len(q.Columns) > 0 {
		cols := make([]string, len(q.Columns))
		for i, col := range q.Columns {
			cols[i] = QuoteIdentifier(col.Text())
		}
		selectClause = strings.Join(cols, ",")
	}

	var whereClause string
	where, params, err := c.CompileExpr(q.Where)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	if where != "" {
		whereClause = " WHERE " + where
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s",
		selectClause,
		qualified(q.Database, q.Table),
		whereClause)

	return sql, params, nil
}

func qualified(db, table *queryir.Literal) string {
	if db != nil {
		return QuoteIdentifier(db.Text()) + "." + QuoteIdentifier(table.Text())
	}
	return QuoteIdentifier(table.Text())
}

// fragment is rendered SQL plus the params its placeholders bind.
type fragment struct {
	sql    string
	params []any
}

type renderer struct {
	parameterize bool
}

var _ queryir.Visitor[fragment] = (*renderer)(nil)

func (r *renderer) Literal(lit *queryir.Literal) (fragment, error) {
	if lit.Kind() == queryir.KindIdentifier {
		return fragment{sql: QuoteIdentifier(lit.Text())}, nil
	}
	if r.parameterize {
		return fragment{sql: "?", params: []any{paramValue(lit)}}, nil
	}
	s, err := Literal(lit)
	return fragment{sql: s}, err
}

func (r *renderer) Not(n *queryir.Not) (fragment, error) {
	inner, err := queryir.Accept[fragment](n.Operand(), r)
	if err != nil {
		return fragment{}, err
	}
	op, _ := n.Kind().Op(queryir.TargetMySQL)
	return fragment{sql: op + " (" + inner.sql + ")", params: inner.params}, nil
}

func (r *renderer) Comparison(c *queryir.Comparison) (fragment, error) {
	return r.binary(c.Kind(), c.Field(), c.Value())
}

func (r *renderer) RegexMatch(m *queryir.RegexMatch) (fragment, error) {
	return r.binary(m.Kind(), m.Field(), m.Value())
}

func (r *renderer) NullTest(n *queryir.NullTest) (fragment, error) {
	op, ok := n.Kind().Op(queryir.TargetMySQL)
	if !ok {
		return fragment{}, queryir.Unsupported(queryir.TargetMySQL, n)
	}
	if !n.Want() {
		not, _ := queryir.KindNot.Op(queryir.TargetMySQL)
		op += " " + not
	}
	return fragment{sql: QuoteIdentifier(n.Field().Text()) + " " + op + " NULL"}, nil
}

func (r *renderer) Logical(l *queryir.Logical) (fragment, error) {
	op, ok := l.Kind().Op(queryir.TargetMySQL)
	if !ok {
		return fragment{}, queryir.Unsupported(queryir.TargetMySQL, l)
	}

	parts := make([]fragment, 0, l.Len())
	for _, e := range l.Exprs() {
		f, err := queryir.Accept[fragment](e, r)
		if err != nil {
			return fragment{}, err
		}
		parts = append(parts, fragment{sql: "(" + f.sql + ")", params: f.params})
	}

	// Children are ordered by rendered text so equal trees render equally
	// regardless of operand order. Stable, so params stay with their text.
	slices.SortStableFunc(parts, func(a, b fragment) int {
		return strings.Compare(a.sql, b.sql)
	})

	out := fragment{}
	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.sql
		out.params = append(out.params, p.params...)
	}
	out.sql = strings.Join(texts, " "+op+" ")
	return out, nil
}

func (r *renderer) binary(k *queryir.Kind, left, right *queryir.Literal) (fragment, error) {
	op, ok := k.Op(queryir.TargetMySQL)
	if !ok {
		return fragment{}, queryir.Unsupportedf(queryir.TargetMySQL, "%s has no MySQL operator", k.Name)
	}
	rhs, err := r.Literal(right)
	if err != nil {
		return fragment{}, err
	}
	return fragment{
		sql:    QuoteIdentifier(left.Text()) + " " + op + " " + rhs.sql,
		params: rhs.params,
	}, nil
}

// Literal renders a value literal as inline MySQL text.
func Literal(lit *queryir.Literal) (string, error) {
	switch v := lit.Value().(type) {
	case string:
		if lit.Kind() == queryir.KindIdentifier {
			return QuoteIdentifier(v), nil
		}
		return QuoteString(v), nil
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
		return "'" + v.UTC().Format(MySQLTimeFormat) + "'", nil
	default:
		return "", queryir.Unsupportedf(queryir.TargetMySQL, "cannot render %s", lit)
	}
}

func paramValue(lit *queryir.Literal) any {
	if t, ok := lit.Value().(time.Time); ok {
		return t.UTC().Format(MySQLTimeFormat)
	}
	return lit.Value()
}

// QuoteString quotes s as a MySQL string literal.
func QuoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteIdentifier returns name bare when it is a plain identifier and
// wrapped in backticks otherwise.
func QuoteIdentifier(name string) string {
	if needsQuoting(name) {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return name
}

func needsQuoting(name string) bool {
	if len(name) == 0 {
		return true
	}

	c := name[0]
	if !isLetter(c) && c != '_' {
		return true
	}
	for i := 1; i < len(name); i++ {
		c = name[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return true
		}
	}

	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"INSERT", "UPDATE", "DELETE", "CREATE", "DROP", "ALTER", "TABLE", "INDEX",
		"JOIN", "LEFT", "RIGHT", "INNER", "OUTER", "ON", "AS", "IN", "IS", "LIKE",
		"BETWEEN", "EXISTS", "CASE", "WHEN", "THEN", "ELSE", "END", "ORDER", "BY",
		"GROUP", "HAVING", "LIMIT", "UNION", "ALL", "DISTINCT", "VALUES", "SET",
		"INTO", "PRIMARY", "KEY", "REGEXP", "RLIKE", "SHOW", "COLUMNS", "DESC":
		return true
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
