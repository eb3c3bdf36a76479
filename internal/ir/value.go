package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/valyala/fastjson"
	"gopkg.in/yaml.v3"
)

// Canonicalize converts a decoded Go value tree into canonical shapes.
//
// Integer types become int64, float32 becomes float64, json.Number is split
// into int64 or float64 depending on its text, []T becomes []any and
// string-keyed maps become map[string]any. Values of any other type are
// returned unchanged so callers can embed already-built nodes in a tree;
// the query builder rejects anything it does not recognize.
func Canonicalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, float64, time.Time:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return uintToInt64(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return uintToInt64(val)
	case float32:
		return float64(val), nil
	case json.Number:
		return numberFromText(string(val))
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		return *val, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			c, err := Canonicalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case []string:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = elem
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(val))
		for i, elem := range val {
			c, err := Canonicalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			c, err := Canonicalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = c
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("mapping key %v is %T, only string keys are allowed", k, k)
			}
			c, err := Canonicalize(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", key, err)
			}
			out[key] = c
		}
		return out, nil
	default:
		return v, nil
	}
}

func uintToInt64(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer %d out of int64 range", u)
	}
	return int64(u), nil
}

// numberFromText parses a JSON number literal, keeping integers as int64.
func numberFromText(s string) (any, error) {
	if !strings.ContainsAny(s, ".eE") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer %s out of int64 range", s)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %s: %w", s, err)
	}
	return f, nil
}

// DecodeJSON parses JSON text into canonical shapes.
// Numbers written without a fraction or exponent decode as int64.
func DecodeJSON(data []byte) (any, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return fromFastJSON(v)
}

func fromFastJSON(v *fastjson.Value) (any, error) {
	switch v.Type() {
	case fastjson.TypeNull:
		return nil, nil
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	case fastjson.TypeString:
		return string(v.GetStringBytes()), nil
	case fastjson.TypeNumber:
		return numberFromText(string(v.MarshalTo(nil)))
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]any, len(arr))
		for i, elem := range arr {
			c, err := fromFastJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case fastjson.TypeObject:
		obj, _ := v.Object()
		out := make(map[string]any, obj.Len())
		var visitErr error
		obj.Visit(func(key []byte, elem *fastjson.Value) {
			if visitErr != nil {
				return
			}
			c, err := fromFastJSON(elem)
			if err != nil {
				visitErr = fmt.Errorf("[%q]: %w", key, err)
				return
			}
			out[string(key)] = c
		})
		if visitErr != nil {
			return nil, visitErr
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value type %s", v.Type())
	}
}

// DecodeYAML parses YAML (or JSON, which YAML accepts) into canonical shapes.
// Unquoted timestamps decode as time.Time; quoted ones stay strings.
func DecodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if doc.Kind == 0 {
		return nil, nil
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts a decoded YAML node into canonical shapes.
func FromYAMLNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, len(n.Content))
		for i, elem := range n.Content {
			c, err := FromYAMLNode(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = c
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode || key.ShortTag() != "!!str" {
				return nil, fmt.Errorf("line %d: mapping key %q must be a string", key.Line, key.Value)
			}
			c, err := FromYAMLNode(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", key.Value, err)
			}
			out[key.Value] = c
		}
		return out, nil
	case yaml.ScalarNode:
		return yamlScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func yamlScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, fmt.Errorf("line %d: integer %s out of int64 range", n.Line, n.Value)
		}
		return i, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return f, nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return t, nil
	default:
		return n.Value, nil
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which orders supplementary-plane
// characters differently.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// TypeName names the canonical shape of v for diagnostics.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case time.Time:
		return "time"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsScalar reports whether v is a canonical leaf value usable as an operand.
func IsScalar(v any) bool {
	switch v.(type) {
	case string, bool, int64, float64, time.Time:
		return true
	default:
		return false
	}
}

// FormatFloat renders f in its shortest round-trip form, keeping a decimal
// point or exponent so the text never reads back as an integer.
// Fixed notation is used for decimal exponents in [-4, 16).
func FormatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
