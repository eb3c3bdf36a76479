package ir

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_Numbers(t *testing.T) {
	testCases := []struct {
		name  string
		input any
		want  any
	}{
		{"int", 42, int64(42)},
		{"int32", int32(-7), int64(-7)},
		{"uint16", uint16(9), int64(9)},
		{"float32", float32(1.5), float64(1.5)},
		{"json number int", json.Number("200"), int64(200)},
		{"json number float", json.Number("2.5"), 2.5},
		{"json number exponent", json.Number("1e3"), 1000.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Canonicalize(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanonicalize_RejectsOverflow(t *testing.T) {
	_, err := Canonicalize(uint64(math.MaxUint64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of int64 range")

	_, err = Canonicalize(json.Number("99999999999999999999"))
	require.Error(t, err)
}

func TestCanonicalize_Nested(t *testing.T) {
	input := map[string]any{
		"and": []map[string]any{
			{"a": 1},
			{"b": []string{"x", "y"}},
		},
	}

	got, err := Canonicalize(input)
	require.NoError(t, err)

	want := map[string]any{
		"and": []any{
			map[string]any{"a": int64(1)},
			map[string]any{"b": []any{"x", "y"}},
		},
	}
	assert.Equal(t, want, got)
}

func TestCanonicalize_NonStringKey(t *testing.T) {
	_, err := Canonicalize(map[any]any{1: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only string keys")
}

func TestCanonicalize_PassesThroughUnknown(t *testing.T) {
	type opaque struct{ n int }
	v := opaque{n: 1}

	got, err := Canonicalize(v)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestDecodeJSON_KeepsIntFloatDistinct(t *testing.T) {
	got, err := DecodeJSON([]byte(`{"status": {"gt": 200}, "load": 1.0, "tags": ["a", true, null]}`))
	require.NoError(t, err)

	want := map[string]any{
		"status": map[string]any{"gt": int64(200)},
		"load":   1.0,
		"tags":   []any{"a", true, nil},
	}
	assert.Equal(t, want, got)
}

func TestDecodeJSON_Invalid(t *testing.T) {
	_, err := DecodeJSON([]byte(`{"a": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecodeYAML_Timestamps(t *testing.T) {
	got, err := DecodeYAML([]byte("time:\n  gte: 2024-03-01T12:30:00Z\nhost: web1\n"))
	require.NoError(t, err)

	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "web1", m["host"])

	inner, ok := m["time"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), inner["gte"])
}

func TestDecodeYAML_AcceptsJSON(t *testing.T) {
	got, err := DecodeYAML([]byte(`{"env": ["prod", "staging"], "n": 3}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"env": []any{"prod", "staging"}, "n": int64(3)}, got)
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+FF61 sorts after U+1F600 in UTF-8 byte order but before it in
	// UTF-16 code-unit order (the emoji encodes as a 0xD83D surrogate).
	m := map[string]any{"\U0001F600": 1, "｡": 2, "b": 3, "a": 4}
	assert.Equal(t, []string{"a", "b", "\U0001F600", "｡"}, SortedKeys(m))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "int", TypeName(int64(1)))
	assert.Equal(t, "float", TypeName(1.5))
	assert.Equal(t, "mapping", TypeName(map[string]any{}))
	assert.Equal(t, "list", TypeName([]any{}))
	assert.Equal(t, "time", TypeName(time.Time{}))
}

func TestFormatFloat(t *testing.T) {
	testCases := []struct {
		in   float64
		want string
	}{
		{2.0, "2.0"},
		{0.5, "0.5"},
		{-3.25, "-3.25"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1e16, "1e+16"},
		{123456789.0, "123456789.0"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatFloat(tc.in))
		})
	}
}
