// Package ir provides the JSON-compatible value model shared by the query
// packages.
//
// Filters arrive as loosely typed trees decoded from JSON, YAML or CUE. This
// package turns any of those into one canonical Go shape before the query
// layer looks at them:
//
//	string, bool, int64, float64, time.Time, nil, []any, map[string]any
//
// ir imports nothing internal. Every other internal package may import ir;
// ir imports none of them.
//
// Key design constraints:
//   - Integers and floats stay distinct (1 and 1.0 are different literals)
//   - Mapping iteration uses SortedKeys (RFC 8785 order) wherever output
//     must be deterministic
//   - MarshalCanonical is the only serialization used for comparisons and
//     golden snapshots
package ir
