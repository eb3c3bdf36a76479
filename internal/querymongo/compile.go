// Package querymongo compiles expression trees to MongoDB filter documents.
//
// Filters are bson.M values built from native Go values: timestamps stay
// time.Time and regex literals become primitive.Regex. Negation is pushed
// down onto the field ({f: {$not: expr}}) because MongoDB has no top-level
// $not.
package querymongo

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
)

// Find is the MongoDB form of a Select: a find() call on one collection.
type Find struct {
	Database   string `bson:"database,omitempty"`
	Collection string `bson:"collection"`
	Filter     bson.M `bson:"filter"`
	Projection bson.M `bson:"projection,omitempty"`
}

// Compiler compiles to MongoDB filters. The zero value is ready to use.
type Compiler struct{}

// NewCompiler creates a Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

var _ queryir.Visitor[any] = (*Compiler)(nil)

// Compile converts a Select into a Find.
func (c *Compiler) Compile(s queryir.Statement) (*Find, error) {
	switch stmt := s.(type) {
	case *queryir.Select:
		filter, err := c.CompileExpr(stmt.Where)
		if err != nil {
			return nil, fmt.Errorf("compile filter: %w", err)
		}
		find := &Find{Collection: stmt.Table.Text(), Filter: filter}
		if stmt.Database != nil {
			find.Database = stmt.Database.Text()
		}
		if len(stmt.Columns) > 0 {
			find.Projection = bson.M{}
			for _, col := range stmt.Columns {
				find.Projection[col.Text()] = 1
			}
		}
		return find, nil
	case nil:
		return nil, fmt.Errorf("cannot compile nil statement")
	default:
		return nil, queryir.Unsupportedf(queryir.TargetMongo, "%T has no MongoDB form", s)
	}
}

// CompileExpr renders e as a filter document. A nil expression gives an
// empty filter, which matches every document.
func (c *Compiler) CompileExpr(e queryir.Expr) (bson.M, error) {
	if e == nil {
		return bson.M{}, nil
	}
	v, err := queryir.Accept[any](e, c)
	if err != nil {
		return nil, err
	}
	doc, ok := v.(bson.M)
	if !ok {
		return nil, queryir.Unsupportedf(queryir.TargetMongo, "%s is not a filter", e)
	}
	return doc, nil
}

func (c *Compiler) Literal(lit *queryir.Literal) (any, error) {
	switch v := lit.Value().(type) {
	case string:
		if lit.Kind() == queryir.KindRegex {
			return primitive.Regex{Pattern: v}, nil
		}
		return v, nil
	case bool, int64, float64:
		return v, nil
	case time.Time:
		return v.UTC(), nil
	default:
		return nil, queryir.Unsupported(queryir.TargetMongo, lit)
	}
}

// Not pushes the negation onto the single field of its operand. A
// double negation cancels out. Operands keyed by an operator ($and, $or)
// are negated with $nor.
func (c *Compiler) Not(n *queryir.Not) (any, error) {
	doc, err := c.CompileExpr(n.Operand())
	if err != nil {
		return nil, err
	}
	not, _ := n.Kind().Op(queryir.TargetMongo)

	field, value, ok := single(doc)
	if !ok || strings.HasPrefix(field, "$") {
		return bson.M{"$nor": bson.A{doc}}, nil
	}
	if inner, ok := value.(bson.M); ok {
		if k, v, ok := single(inner); ok && k == not {
			return bson.M{field: v}, nil
		}
	}
	return bson.M{field: bson.M{not: value}}, nil
}

func (c *Compiler) Comparison(cmp *queryir.Comparison) (any, error) {
	op, ok := cmp.Kind().Op(queryir.TargetMongo)
	if !ok {
		return nil, queryir.Unsupportedf(queryir.TargetMongo, "%s has no MongoDB operator", cmp.Kind().Name)
	}
	v, err := c.Literal(cmp.Value())
	if err != nil {
		return nil, err
	}
	return bson.M{cmp.Field().Text(): bson.M{op: v}}, nil
}

func (c *Compiler) RegexMatch(r *queryir.RegexMatch) (any, error) {
	re, err := c.Literal(r.Value())
	if err != nil {
		return nil, err
	}
	if r.Inverse() {
		not, _ := r.Kind().Op(queryir.TargetMongo)
		return bson.M{r.Field().Text(): bson.M{not: re}}, nil
	}
	return bson.M{r.Field().Text(): re}, nil
}

func (c *Compiler) NullTest(n *queryir.NullTest) (any, error) {
	op, ok := n.Kind().Op(queryir.TargetMongo)
	if !ok {
		return nil, queryir.Unsupported(queryir.TargetMongo, n)
	}
	field := n.Field().Text()
	if n.Missing() {
		flag := -1
		if n.Want() {
			flag = 1
		}
		return bson.M{field: bson.M{op: flag}}, nil
	}
	if !n.Want() {
		op, _ = queryir.KindNotEqual.Op(queryir.TargetMongo)
	}
	return bson.M{field: bson.M{op: nil}}, nil
}

func (c *Compiler) Logical(l *queryir.Logical) (any, error) {
	op, ok := l.Kind().Op(queryir.TargetMongo)
	if !ok {
		return nil, queryir.Unsupported(queryir.TargetMongo, l)
	}
	children := make(bson.A, 0, l.Len())
	for _, e := range l.Exprs() {
		doc, err := c.CompileExpr(e)
		if err != nil {
			return nil, err
		}
		children = append(children, doc)
	}
	return bson.M{op: children}, nil
}

func single(doc bson.M) (string, any, bool) {
	if len(doc) != 1 {
		return "", nil, false
	}
	for k, v := range doc {
		return k, v, true
	}
	return "", nil, false
}

// MarshalJSON encodes a filter or Find as relaxed MongoDB extended JSON
// with keys in canonical order, so equal documents encode identically.
func MarshalJSON(v any) ([]byte, error) {
	data, err := bson.MarshalExtJSON(v, false, false)
	if err != nil {
		return nil, fmt.Errorf("marshal extended json: %w", err)
	}
	decoded, err := ir.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(decoded)
}
