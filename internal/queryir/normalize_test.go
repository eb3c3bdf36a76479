package queryir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type m = map[string]any
type l = []any

func TestNormalize(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name   string
		filter any
		want   map[string]any
	}{
		{
			name:   "nil is empty",
			filter: nil,
			want:   m{},
		},
		{
			name:   "empty",
			filter: m{},
			want:   m{},
		},
		{
			name:   "implicit equality",
			filter: m{"host": "web1"},
			want:   m{"host": m{"eq": "web1"}},
		},
		{
			name:   "bool and time equality",
			filter: m{"up": true, "at": ts},
			want: m{"and": l{
				m{"at": m{"eq": ts}},
				m{"up": m{"eq": true}},
			}},
		},
		{
			name:   "two entries combine under and",
			filter: m{"status": m{"gt": 200}, "host": "web1"},
			want: m{"and": l{
				m{"host": m{"eq": "web1"}},
				m{"status": m{"gt": int64(200)}},
			}},
		},
		{
			name:   "regex shorthand",
			filter: m{"name": "/^app-/"},
			want:   m{"name": m{"regex": "^app-"}},
		},
		{
			name:   "single slash is an empty regex",
			filter: m{"path": "/"},
			want:   m{"path": m{"regex": ""}},
		},
		{
			name:   "list is a disjunction of equalities",
			filter: m{"env": l{"prod", "staging"}},
			want: m{"or": l{
				m{"env": m{"eq": "prod"}},
				m{"env": m{"eq": "staging"}},
			}},
		},
		{
			name:   "in expands like a list",
			filter: m{"env": m{"in": l{"prod"}}},
			want:   m{"or": l{m{"env": m{"eq": "prod"}}}},
		},
		{
			name:   "several operators on one field",
			filter: m{"load": m{"lt": 0.9, "gt": 0.1}},
			want: m{"and": l{
				m{"load": m{"gt": 0.1}},
				m{"load": m{"lt": 0.9}},
			}},
		},
		{
			name:   "or keeps children nested",
			filter: m{"or": l{m{"a": 1, "b": 2}, m{"c": 3}}},
			want: m{"or": l{
				m{"and": l{m{"a": m{"eq": int64(1)}}, m{"b": m{"eq": int64(2)}}}},
				m{"c": m{"eq": int64(3)}},
			}},
		},
		{
			name:   "and keeps nested conjunctions",
			filter: m{"and": l{m{"a": 1}, m{"and": l{m{"b": 2}, m{"c": 3}}}}},
			want: m{"and": l{
				m{"a": m{"eq": int64(1)}},
				m{"and": l{m{"b": m{"eq": int64(2)}}, m{"c": m{"eq": int64(3)}}}},
			}},
		},
		{
			name:   "and keeps multi-key elements nested",
			filter: m{"and": l{m{"a": 1, "b": 2}, m{"c": 3}}},
			want: m{"and": l{
				m{"and": l{m{"a": m{"eq": int64(1)}}, m{"b": m{"eq": int64(2)}}}},
				m{"c": m{"eq": int64(3)}},
			}},
		},
		{
			name:   "single-element and unwraps",
			filter: m{"and": l{m{"a": 1}}},
			want:   m{"a": m{"eq": int64(1)}},
		},
		{
			name:   "empty and",
			filter: m{"and": l{}},
			want:   m{},
		},
		{
			name:   "not",
			filter: m{"not": m{"host": "web1"}},
			want:   m{"not": m{"host": m{"eq": "web1"}}},
		},
		{
			name:   "null and missing operands are kept",
			filter: m{"a": m{"null": true}, "b": m{"missing": false}},
			want: m{"and": l{
				m{"a": m{"null": true}},
				m{"b": m{"missing": false}},
			}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	filters := []map[string]any{
		{"host": "web1", "status": m{"gt": 200}},
		{"env": l{"prod", "staging"}},
		{"name": "/^app-/"},
		{"not": m{"or": l{m{"a": 1}, m{"b": m{"in": l{2, 3}}}}}},
		{"and": l{m{"a": m{"null": true}}, m{"t": m{"gte": 1.5, "lte": 9.5}}}},
	}

	for _, f := range filters {
		once, err := Normalize(f)
		require.NoError(t, err)
		twice, err := Normalize(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestNormalize_ListExpansion(t *testing.T) {
	shorthand, err := Normalize(m{"tag": l{"a", "b"}})
	require.NoError(t, err)
	explicit, err := Normalize(m{"or": l{m{"tag": m{"eq": "a"}}, m{"tag": m{"eq": "b"}}}})
	require.NoError(t, err)
	assert.Equal(t, explicit, shorthand)
}

func TestNormalize_RegexShorthand(t *testing.T) {
	shorthand, err := Normalize(m{"f": "/ab+c/"})
	require.NoError(t, err)
	explicit, err := Normalize(m{"f": m{"regex": "ab+c"}})
	require.NoError(t, err)
	assert.Equal(t, explicit, shorthand)
}

func TestNormalize_RoundTripShape(t *testing.T) {
	ops := []string{"eq", "ne", "gt", "gte", "lt", "lte"}
	values := []any{"x", int64(3), 2.5, true}

	for _, op := range ops {
		for _, v := range values {
			n, err := Normalize(m{"f": m{op: v}})
			require.NoError(t, err)
			_, err = Build(KindBoolean, n)
			require.NoError(t, err, "op %s value %v", op, v)
		}
	}
	for _, v := range values {
		n, err := Normalize(m{"f": v})
		require.NoError(t, err)
		_, err = Build(KindBoolean, n)
		require.NoError(t, err)
	}
}

func TestNormalize_PassesExprThrough(t *testing.T) {
	e, err := Build(KindBoolean, m{"a": 1})
	require.NoError(t, err)

	got, err := Normalize(m{"or": l{e, m{"b": 2}}, "not": e})
	require.NoError(t, err)

	want := m{"and": l{
		m{"not": e},
		m{"or": l{e, m{"b": m{"eq": int64(2)}}}},
	}}
	assert.Equal(t, want, got)
}

func TestNormalize_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		filter any
		want   string
	}{
		{"not a mapping", l{1}, "a filter must be a mapping"},
		{"list under comparison", m{"f": m{"gt": l{1, 2}}}, `"gt" operator cannot be applied on a list`},
		{"mapping operand", m{"f": m{"eq": m{"x": 1}}}, "query condition is unrecognized"},
		{"null value", m{"f": nil}, "a field accepts"},
		{"and not a list", m{"and": m{"a": 1}}, `"and" expects a list`},
		{"or not a list", m{"or": "x"}, `"or" expects a list`},
		{"not a mapping under not", m{"not": l{m{"a": 1}}}, `"not" expects a filter mapping`},
		{"empty list", m{"f": l{}}, "empty list"},
		{"empty in", m{"f": m{"in": l{}}}, "empty list"},
		{"empty or", m{"or": l{}}, "needs at least one filter"},
		{"empty filter inside or", m{"or": l{m{}}}, "empty filter"},
		{"empty filter inside and", m{"and": l{m{}, m{"c": 3}}}, "and[0]: empty filter"},
		{"only an empty filter inside and", m{"and": l{m{}}}, "and[0]: empty filter"},
		{"empty not", m{"not": m{}}, "empty filter"},
		{"empty operator mapping", m{"f": m{}}, "empty operator mapping"},
		{"nested list", m{"f": l{l{1}}}, "list elements must be scalars"},
		{"non-string key", map[any]any{1: "x"}, "only string keys"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.filter)
			require.Error(t, err)
			assert.True(t, IsInvalidQuery(err), "got %v", err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestMustNormalize_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNormalize(m{"f": nil}) })
	assert.Equal(t, m{"a": m{"eq": "b"}}, MustNormalize(m{"a": "b"}))
}
