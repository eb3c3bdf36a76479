package sqlcheck

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querify/internal/queryir"
)

type m = map[string]any

func TestCheck_Select(t *testing.T) {
	testCases := []struct {
		name string
		args queryir.SelectArgs
	}{
		{"bare", queryir.SelectArgs{Table: "events"}},
		{"columns", queryir.SelectArgs{Table: "events", Columns: []string{"id", "kind"}}},
		{"database", queryir.SelectArgs{Table: "events", Database: "app"}},
		{"reserved names", queryir.SelectArgs{Table: "order", Columns: []string{"select"}, Where: m{"from": 1}}},
		{"comparisons", queryir.SelectArgs{Table: "events", Where: m{
			"host":   []any{"web1", "web2"},
			"status": m{"gte": 200, "lt": 300},
			"load":   m{"ne": 0.5},
		}}},
		{"regex", queryir.SelectArgs{Table: "events", Where: m{"name": "/^app-/", "path": m{"nregex": "tmp"}}}},
		{"null and not", queryir.SelectArgs{Table: "events", Where: m{
			"owner": m{"null": false},
			"not":   m{"kind": "debug"},
		}}},
		{"time", queryir.SelectArgs{Table: "events", Where: m{"at": m{"gt": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}}}},
		{"mixed case columns", queryir.SelectArgs{Table: "events", Columns: []string{"Host"}, Where: m{"host": "a"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := queryir.NewSelect(tc.args)
			require.NoError(t, err)
			assert.NoError(t, Check(context.Background(), stmt))
		})
	}
}

func TestCheckFilter(t *testing.T) {
	e, err := queryir.BuildWhere(m{"or": []any{m{"a": 1}, m{"b": m{"regex": "x"}}}})
	require.NoError(t, err)
	assert.NoError(t, CheckFilter(context.Background(), e))

	assert.NoError(t, CheckFilter(context.Background(), nil))
}

func TestCheck_NotCheckable(t *testing.T) {
	stmt, err := queryir.NewShowColumns(queryir.ShowColumnsArgs{Table: "events"})
	require.NoError(t, err)
	err = Check(context.Background(), stmt)
	assert.True(t, errors.Is(err, ErrNotCheckable))
}

func TestCheck_RenderError(t *testing.T) {
	stmt, err := queryir.NewSelect(queryir.SelectArgs{Table: "events", Where: m{"owner": m{"missing": true}}})
	require.NoError(t, err)
	err = Check(context.Background(), stmt)
	require.Error(t, err)
	assert.True(t, queryir.IsUnsupported(err))
}

func TestMatchRegexp(t *testing.T) {
	ok, err := matchRegexp("^app-", "app-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = matchRegexp("^app-", "web")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = matchRegexp("(", "x")
	assert.Error(t, err)
}

func TestRegexpRegistered(t *testing.T) {
	db, err := open()
	require.NoError(t, err)
	defer db.Close()

	var matched bool
	require.NoError(t, db.QueryRow("SELECT 'app-1' REGEXP '^app-'").Scan(&matched))
	assert.True(t, matched)
}

func TestError(t *testing.T) {
	db, err := open()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Prepare("SELEC 1")
	require.Error(t, err)

	wrapped := &Error{SQL: "SELEC 1", Err: err}
	assert.Contains(t, wrapped.Error(), `"SELEC 1"`)
	assert.ErrorIs(t, wrapped, err)
}
