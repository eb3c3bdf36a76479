package querypandas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querify/internal/queryir"
)

type m = map[string]any

func TestCompileExpr(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	testCases := []struct {
		name   string
		filter map[string]any
		want   string
	}{
		{"equality", m{"host": "web1"}, "host == 'web1'"},
		{"conjunction", m{"host": "web1", "status": m{"gt": 200}}, "(host == 'web1') & (status > 200)"},
		{"disjunction", m{"env": []any{"staging", "prod"}}, "(env == 'prod') | (env == 'staging')"},
		{"not", m{"not": m{"host": "web1"}}, "~(host == 'web1')"},
		{"null", m{"owner": m{"null": true}}, "pandas.isnull(owner)"},
		{"not null", m{"owner": m{"null": false}}, "~pandas.isnull(owner)"},
		{"float and bool", m{"load": m{"lte": 0.75}, "up": true}, "(load <= 0.75) & (up == True)"},
		{"time", m{"at": m{"gte": ts}}, "at >= '2024-03-01 12:30:00'"},
		{"not equal", m{"code": m{"ne": 3}}, "code != 3"},
		{"quoted identifier", m{"user name": "x"}, "`user name` == 'x'"},
		{"keyword identifier", m{"class": "x"}, "`class` == 'x'"},
		{"escaped string", m{"msg": "it's\n"}, `msg == 'it\'s\n'`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := queryir.BuildWhere(tc.filter)
			require.NoError(t, err)
			got, err := NewCompiler().CompileExpr(e)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompileExpr_SortedRendering(t *testing.T) {
	b, err := queryir.NewComparison(queryir.KindEqual, "b", 1)
	require.NoError(t, err)
	a, err := queryir.NewComparison(queryir.KindEqual, "a", 1)
	require.NoError(t, err)

	for _, order := range [][]queryir.Expr{{a, b}, {b, a}} {
		or, err := queryir.NewLogical(queryir.KindOr, order)
		require.NoError(t, err)
		got, err := NewCompiler().CompileExpr(or)
		require.NoError(t, err)
		assert.Equal(t, "(a == 1) | (b == 1)", got)
	}
}

func TestCompileExpr_Unsupported(t *testing.T) {
	filters := []map[string]any{
		{"name": "/^app-/"},
		{"name": m{"nregex": "x"}},
		{"owner": m{"missing": true}},
		{"not": m{"owner": m{"missing": false}}},
	}

	for _, f := range filters {
		e, err := queryir.BuildWhere(f)
		require.NoError(t, err)
		_, err = NewCompiler().CompileExpr(e)
		require.Error(t, err)
		assert.True(t, queryir.IsUnsupported(err), "filter %v", f)
	}
}

func TestCompileExpr_Nil(t *testing.T) {
	got, err := NewCompiler().CompileExpr(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestString(t *testing.T) {
	assert.Equal(t, `'a\\b'`, String(`a\b`))
	assert.Equal(t, `'\x01'`, String("\x01"))
	assert.Equal(t, `'é'`, String("é"))
}
