package compiler

import (
	_ "embed"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/roach88/querify/internal/ir"
	"github.com/roach88/querify/internal/queryir"
)

//go:embed schema.cue
var schemaSource string

// Statement keys of a query definition. Exactly one must be present.
const (
	keySelect      = "select"
	keyShowTagKeys = "show_tag_keys"
	keyShowColumns = "show_columns"
)

// Query is a named statement together with the targets it compiles for.
type Query struct {
	Name      string
	Targets   []queryir.Target
	Statement queryir.Statement
}

// CompileQuery parses a CUE value into a Query.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the query struct itself, validated against #Query first:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`query: cpu: { select: { table: "cpu" } }`)
//	q, err := CompileQuery(v.LookupPath(cue.ParsePath("query.cpu")))
func CompileQuery(v cue.Value) (*Query, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := validate(v); err != nil {
		return nil, err
	}

	var name string
	if labels := v.Path().Selectors(); len(labels) > 0 {
		name = labels[len(labels)-1].String()
		if unquoted, err := strconv.Unquote(name); err == nil {
			name = unquoted
		}
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	def, err := ir.DecodeJSON(data)
	if err != nil {
		return nil, &CompileError{Field: "cue", Message: err.Error(), Pos: v.Pos(), Err: err}
	}

	body, ok := def.(map[string]any)
	if !ok {
		return nil, &CompileError{Field: "query", Message: "a query must be a struct", Pos: v.Pos()}
	}
	q, err := fromDefinition(name, body)
	if err != nil {
		if ce, ok := err.(*CompileError); ok && !ce.Pos.IsValid() {
			ce.Pos = v.LookupPath(cue.ParsePath(ce.Field)).Pos()
		}
		return nil, err
	}
	return q, nil
}

// CompileDefinition builds a Query from a decoded definition, such as a
// YAML document. The definition is validated against the same schema as
// CUE input.
func CompileDefinition(ctx *cue.Context, name string, def map[string]any) (*Query, error) {
	v := ctx.Encode(def)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := validate(v); err != nil {
		return nil, err
	}
	return fromDefinition(name, def)
}

func validate(v cue.Value) error {
	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &CompileError{Field: "schema", Message: err.Error(), Err: err}
	}
	def := schema.LookupPath(cue.ParsePath("#Query"))
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

func fromDefinition(name string, def map[string]any) (*Query, error) {
	q := &Query{Name: name}

	var present []string
	for _, k := range []string{keySelect, keyShowTagKeys, keyShowColumns} {
		if _, ok := def[k]; ok {
			present = append(present, k)
		}
	}
	if len(present) != 1 {
		return nil, &CompileError{
			Field:   "query",
			Message: fmt.Sprintf("exactly one of %s, %s or %s is required, got %d", keySelect, keyShowTagKeys, keyShowColumns, len(present)),
		}
	}

	body, _ := def[present[0]].(map[string]any)
	var err error
	switch present[0] {
	case keySelect:
		q.Statement, err = queryir.NewSelect(queryir.SelectArgs{
			Table:           str(body, "table"),
			RetentionPolicy: str(body, "retention_policy"),
			Database:        str(body, "database"),
			Columns:         strs(body, "columns"),
			Where:           body["where"],
		})
	case keyShowTagKeys:
		q.Statement, err = queryir.NewShowTagKeys(queryir.ShowTagKeysArgs{
			Measurement:     str(body, "measurement"),
			RetentionPolicy: str(body, "retention_policy"),
			Database:        str(body, "database"),
			Where:           body["where"],
		})
	case keyShowColumns:
		q.Statement, err = queryir.NewShowColumns(queryir.ShowColumnsArgs{
			Table:    str(body, "table"),
			Database: str(body, "database"),
		})
	}
	if err != nil {
		return nil, &CompileError{Field: present[0], Message: err.Error(), Err: err}
	}

	q.Targets, err = targets(def["targets"], present[0])
	if err != nil {
		return nil, err
	}
	return q, nil
}

// defaultTargets are the targets each statement compiles for when a query
// does not list its own.
var defaultTargets = map[string][]queryir.Target{
	keySelect:      {queryir.TargetInflux, queryir.TargetMySQL, queryir.TargetMongo},
	keyShowTagKeys: {queryir.TargetInflux},
	keyShowColumns: {queryir.TargetInflux, queryir.TargetMySQL},
}

func targets(v any, statement string) ([]queryir.Target, error) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return append([]queryir.Target(nil), defaultTargets[statement]...), nil
	}
	out := make([]queryir.Target, 0, len(list))
	for _, item := range list {
		s, _ := item.(string)
		t, err := queryir.ParseTarget(s)
		if err != nil {
			return nil, &CompileError{Field: "targets", Message: err.Error(), Err: err}
		}
		out = append(out, t)
	}
	return out, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func strs(m map[string]any, key string) []string {
	list, _ := m[key].([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
