package querymongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/querify/internal/queryir"
)

type m = map[string]any

func compile(t *testing.T, filter map[string]any) bson.M {
	t.Helper()
	e, err := queryir.BuildWhere(filter)
	require.NoError(t, err)
	doc, err := NewCompiler().CompileExpr(e)
	require.NoError(t, err)
	return doc
}

func TestCompileExpr(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))

	testCases := []struct {
		name   string
		filter map[string]any
		want   bson.M
	}{
		{
			name:   "equality",
			filter: m{"host": "web1"},
			want:   bson.M{"host": bson.M{"$eq": "web1"}},
		},
		{
			name:   "list is a disjunction",
			filter: m{"env": []any{"prod", "staging"}},
			want: bson.M{"$or": bson.A{
				bson.M{"env": bson.M{"$eq": "prod"}},
				bson.M{"env": bson.M{"$eq": "staging"}},
			}},
		},
		{
			name:   "conjunction keeps order",
			filter: m{"status": m{"gt": 200}, "host": "web1"},
			want: bson.M{"$and": bson.A{
				bson.M{"host": bson.M{"$eq": "web1"}},
				bson.M{"status": bson.M{"$gt": int64(200)}},
			}},
		},
		{
			name:   "time stays native",
			filter: m{"at": m{"lt": ts}},
			want:   bson.M{"at": bson.M{"$lt": ts.UTC()}},
		},
		{
			name:   "regex",
			filter: m{"name": "/^app-/"},
			want:   bson.M{"name": primitive.Regex{Pattern: "^app-"}},
		},
		{
			name:   "inverse regex",
			filter: m{"name": m{"nregex": "^tmp"}},
			want:   bson.M{"name": bson.M{"$not": primitive.Regex{Pattern: "^tmp"}}},
		},
		{
			name:   "null",
			filter: m{"owner": m{"null": true}},
			want:   bson.M{"owner": bson.M{"$eq": nil}},
		},
		{
			name:   "not null",
			filter: m{"owner": m{"null": false}},
			want:   bson.M{"owner": bson.M{"$ne": nil}},
		},
		{
			name:   "exists",
			filter: m{"owner": m{"missing": true}},
			want:   bson.M{"owner": bson.M{"$exists": 1}},
		},
		{
			name:   "not exists",
			filter: m{"owner": m{"missing": false}},
			want:   bson.M{"owner": bson.M{"$exists": -1}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, compile(t, tc.filter))
		})
	}
}

func TestNot_PushDown(t *testing.T) {
	testCases := []struct {
		name   string
		filter map[string]any
		want   bson.M
	}{
		{
			name:   "comparison",
			filter: m{"not": m{"f": m{"eq": "v"}}},
			want:   bson.M{"f": bson.M{"$not": bson.M{"$eq": "v"}}},
		},
		{
			name:   "regex",
			filter: m{"not": m{"f": "/x/"}},
			want:   bson.M{"f": bson.M{"$not": primitive.Regex{Pattern: "x"}}},
		},
		{
			name:   "double negation cancels",
			filter: m{"not": m{"not": m{"f": 1}}},
			want:   bson.M{"f": bson.M{"$eq": int64(1)}},
		},
		{
			name:   "inverse regex cancels",
			filter: m{"not": m{"f": m{"nregex": "x"}}},
			want:   bson.M{"f": primitive.Regex{Pattern: "x"}},
		},
		{
			name:   "logical operand uses nor",
			filter: m{"not": m{"a": 1, "b": 2}},
			want: bson.M{"$nor": bson.A{bson.M{"$and": bson.A{
				bson.M{"a": bson.M{"$eq": int64(1)}},
				bson.M{"b": bson.M{"$eq": int64(2)}},
			}}}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, compile(t, tc.filter))
		})
	}
}

func TestCompileExpr_NullTestUsesKindOperator(t *testing.T) {
	eq, _ := queryir.KindNull.Op(queryir.TargetMongo)
	ne, _ := queryir.KindNotEqual.Op(queryir.TargetMongo)
	exists, _ := queryir.KindMissing.Op(queryir.TargetMongo)

	assert.Equal(t, bson.M{"owner": bson.M{eq: nil}}, compile(t, m{"owner": m{"null": true}}))
	assert.Equal(t, bson.M{"owner": bson.M{ne: nil}}, compile(t, m{"owner": m{"null": false}}))
	assert.Equal(t, bson.M{"owner": bson.M{exists: 1}}, compile(t, m{"owner": m{"missing": true}}))
}

func TestCompileExpr_Nil(t *testing.T) {
	doc, err := NewCompiler().CompileExpr(nil)
	require.NoError(t, err)
	assert.Equal(t, bson.M{}, doc)
}

func TestCompileExpr_LiteralIsNotAFilter(t *testing.T) {
	lit, err := queryir.NewIdentifier("host")
	require.NoError(t, err)
	_, err = NewCompiler().CompileExpr(lit)
	assert.True(t, queryir.IsUnsupported(err))
}

func TestCompile_Find(t *testing.T) {
	stmt, err := queryir.NewSelect(queryir.SelectArgs{
		Table:    "events",
		Database: "app",
		Columns:  []string{"kind", "at"},
		Where:    m{"kind": "login"},
	})
	require.NoError(t, err)

	find, err := NewCompiler().Compile(stmt)
	require.NoError(t, err)
	assert.Equal(t, &Find{
		Database:   "app",
		Collection: "events",
		Filter:     bson.M{"kind": bson.M{"$eq": "login"}},
		Projection: bson.M{"kind": 1, "at": 1},
	}, find)

	stmt, err = queryir.NewSelect(queryir.SelectArgs{Table: "events"})
	require.NoError(t, err)
	find, err = NewCompiler().Compile(stmt)
	require.NoError(t, err)
	assert.Equal(t, bson.M{}, find.Filter)
	assert.Nil(t, find.Projection)
}

func TestCompile_Unsupported(t *testing.T) {
	stmt, err := queryir.NewShowColumns(queryir.ShowColumnsArgs{Table: "events"})
	require.NoError(t, err)
	_, err = NewCompiler().Compile(stmt)
	assert.True(t, queryir.IsUnsupported(err))

	_, err = NewCompiler().Compile(nil)
	assert.Error(t, err)
}

func TestMarshalJSON(t *testing.T) {
	doc := compile(t, m{"status": m{"gt": 200}, "host": "web1", "name": "/^app-/"})

	data, err := MarshalJSON(doc)
	require.NoError(t, err)
	assert.Equal(t,
		`{"$and":[{"host":{"$eq":"web1"}},{"name":{"$regularExpression":{"options":"","pattern":"^app-"}}},{"status":{"$gt":200}}]}`,
		string(data))

	find := &Find{Collection: "events", Filter: bson.M{"b": 1, "a": 2}}
	data, err = MarshalJSON(find)
	require.NoError(t, err)
	assert.Equal(t, `{"collection":"events","filter":{"a":2,"b":1}}`, string(data))
}
