// Package querypandas compiles expression trees to pandas boolean-mask
// expressions, as accepted by DataFrame.query and DataFrame.eval.
package querypandas

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
)

// TimeFormat is the layout of timestamp literals, always in UTC.
const TimeFormat = "2006-01-02 15:04:05"

// Compiler compiles to pandas expressions. The zero value is ready to use.
type Compiler struct{}

// NewCompiler creates a Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

var _ queryir.Visitor[string] = (*Compiler)(nil)

// CompileExpr renders e as a mask expression. A nil expression renders as "".
func (c *Compiler) CompileExpr(e queryir.Expr) (string, error) {
	if e == nil {
		return "", nil
	}
	return queryir.Accept[string](e, c)
}

func (c *Compiler) Literal(lit *queryir.Literal) (string, error) {
	switch v := lit.Value().(type) {
	case string:
		switch lit.Kind() {
		case queryir.KindIdentifier:
			return Identifier(v), nil
		case queryir.KindRegex:
			return "", queryir.Unsupported(queryir.TargetPandas, lit)
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
		return "", queryir.Unsupported(queryir.TargetPandas, lit)
	}
}

func (c *Compiler) Not(n *queryir.Not) (string, error) {
	inner, err := queryir.Accept[string](n.Operand(), c)
	if err != nil {
		return "", err
	}
	op, _ := n.Kind().Op(queryir.TargetPandas)
	return op + "(" + inner + ")", nil
}

func (c *Compiler) Comparison(cmp *queryir.Comparison) (string, error) {
	op, ok := cmp.Kind().Op(queryir.TargetPandas)
	if !ok {
		return "", queryir.Unsupportedf(queryir.TargetPandas, "%s has no pandas operator", cmp.Kind().Name)
	}
	rhs, err := c.Literal(cmp.Value())
	if err != nil {
		return "", err
	}
	return Identifier(cmp.Field().Text()) + " " + op + " " + rhs, nil
}

func (c *Compiler) RegexMatch(r *queryir.RegexMatch) (string, error) {
	return "", queryir.Unsupported(queryir.TargetPandas, r)
}

func (c *Compiler) NullTest(n *queryir.NullTest) (string, error) {
	fn, ok := n.Kind().Op(queryir.TargetPandas)
	if !ok {
		return "", queryir.Unsupported(queryir.TargetPandas, n)
	}
	call := fn + "(" + Identifier(n.Field().Text()) + ")"
	if !n.Want() {
		not, _ := queryir.KindNot.Op(queryir.TargetPandas)
		call = not + call
	}
	return call, nil
}

func (c *Compiler) Logical(l *queryir.Logical) (string, error) {
	op, ok := l.Kind().Op(queryir.TargetPandas)
	if !ok {
		return "", queryir.Unsupported(queryir.TargetPandas, l)
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

// Identifier returns name bare when it is a valid Python identifier and
// backtick quoted otherwise.
func Identifier(name string) string {
	if isPythonIdentifier(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// String quotes s as a single-quoted Python string literal.
func String(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				b.WriteString(`\x`)
				b.WriteString(hex2(byte(r)))
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func hex2(c byte) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[c>>4], digits[c&0x0f]})
}

func isPythonIdentifier(name string) bool {
	if name == "" || pythonKeywords[name] {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}
