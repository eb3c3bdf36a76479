package ir

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeys(t *testing.T) {
	v := map[string]any{
		"or":  []any{map[string]any{"b": 1}, map[string]any{"a": 2}},
		"and": []any{},
	}

	got, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"and":[],"or":[{"b":1},{"a":2}]}`, string(got))
}

func TestMarshalCanonical_Scalars(t *testing.T) {
	testCases := []struct {
		name  string
		input any
		want  string
	}{
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"float keeps point", 2.0, "2.0"},
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"time in utc", time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600)), `"2024-01-02T02:04:05Z"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MarshalCanonical(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed "é".
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": math.Inf(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite")
}

func TestMarshalCanonical_RejectsUnsupported(t *testing.T) {
	_, err := MarshalCanonical(make(chan int))
	require.Error(t, err)
}

func TestFormat_FallsBack(t *testing.T) {
	assert.Equal(t, `{"a":1}`, Format(map[string]any{"a": 1}))
	assert.Equal(t, "NaN", Format(math.NaN()))
}
