package queryir

// Reserved filter keys.
const (
	KeyAnd = "and"
	KeyOr  = "or"
	KeyNot = "not"

	KeyEqual              = "eq"
	KeyNotEqual           = "ne"
	KeyGreaterThan        = "gt"
	KeyGreaterThanOrEqual = "gte"
	KeyLessThan           = "lt"
	KeyLessThanOrEqual    = "lte"
	KeyMatchRegex         = "regex"
	KeyNotMatchRegex      = "nregex"
	KeyNull               = "null"
	KeyMissing            = "missing"

	// KeyIn is only meaningful to Normalize, which expands it into a
	// disjunction of equalities. No kind is registered under it.
	KeyIn = "in"
)

// Literal keys.
const (
	KeyString     = "string"
	KeyBool       = "bool"
	KeyInt        = "int"
	KeyFloat      = "float"
	KeyTime       = "time"
	KeyRegex      = "regex"
	KeyIdentifier = "identifier"

	keyLiteral  = "literal"
	keyOperator = "operator"
)

// Abstract roots and intermediate families.
var (
	KindExpr = &Kind{
		Name:     "Expr",
		Abstract: true,
		Scope:    ScopeExpr,
		Keys:     exprKeys,
	}

	KindLiteral = &Kind{
		Name:     "Literal",
		Key:      keyLiteral,
		Parent:   KindExpr,
		Abstract: true,
		Scope:    ScopeLiteral,
		Keys:     literalKeys,
	}

	KindOperator = &Kind{
		Name:     "OperatorExpr",
		Key:      keyOperator,
		Parent:   KindExpr,
		Abstract: true,
		Scope:    ScopeOperator,
		Keys:     operatorKeys,
		Prepare:  prepareFilter,
	}

	KindBoolean = &Kind{Name: "BooleanExpr", Parent: KindOperator}
	KindUnary   = &Kind{Name: "UnaryBooleanExpr", Parent: KindBoolean}
	KindBinary  = &Kind{Name: "BinaryBooleanExpr", Parent: KindBoolean}
	KindLogical = &Kind{Name: "LogicalExpr", Parent: KindBoolean}
)

// Literal kinds.
var (
	KindString = &Kind{
		Name:      "StringLiteral",
		Key:       KeyString,
		Parent:    KindLiteral,
		Final:     true,
		Accepts:   isString,
		Construct: constructLiteral,
	}

	KindBool = &Kind{
		Name:      "BooleanLiteral",
		Key:       KeyBool,
		Parent:    KindLiteral,
		Final:     true,
		Accepts:   isBool,
		Construct: constructLiteral,
	}

	KindInt = &Kind{
		Name:      "IntegerLiteral",
		Key:       KeyInt,
		Parent:    KindLiteral,
		Final:     true,
		Accepts:   isInt,
		Construct: constructLiteral,
	}

	KindFloat = &Kind{
		Name:      "FloatLiteral",
		Key:       KeyFloat,
		Parent:    KindLiteral,
		Final:     true,
		Accepts:   isFloat,
		Construct: constructLiteral,
	}

	KindTime = &Kind{
		Name:      "TimestampLiteral",
		Key:       KeyTime,
		Parent:    KindLiteral,
		Final:     true,
		Accepts:   isTime,
		Construct: constructLiteral,
	}

	KindRegex = &Kind{
		Name:      "RegexLiteral",
		Key:       KeyRegex,
		Parent:    KindLiteral,
		Final:     true,
		Keys:      fixedKeys(KeyRegex),
		Accepts:   isString,
		Construct: constructLiteral,
	}

	KindIdentifier = &Kind{
		Name:      "IdentifierLiteral",
		Key:       KeyIdentifier,
		Parent:    KindLiteral,
		Final:     true,
		Keys:      fixedKeys(KeyIdentifier),
		Accepts:   isIdentifier,
		Construct: constructLiteral,
	}
)

// Operator kinds.
var (
	KindNot = &Kind{
		Name:      "Not",
		Key:       KeyNot,
		Parent:    KindUnary,
		Final:     true,
		Construct: constructNot,
		Operators: Operators{TargetMySQL: "NOT", TargetMongo: "$not", TargetPandas: "~"},
	}

	KindEqual = &Kind{
		Name:      "Equal",
		Key:       KeyEqual,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructComparison,
		Operators: Operators{TargetInflux: "=", TargetMySQL: "=", TargetMongo: "$eq", TargetPandas: "=="},
	}

	KindNotEqual = &Kind{
		Name:      "NotEqual",
		Key:       KeyNotEqual,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructComparison,
		Operators: Operators{TargetInflux: "!=", TargetMySQL: "<>", TargetMongo: "$ne", TargetPandas: "!="},
	}

	KindGreaterThan = &Kind{
		Name:      "GreaterThan",
		Key:       KeyGreaterThan,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructComparison,
		Operators: Operators{TargetInflux: ">", TargetMySQL: ">", TargetMongo: "$gt", TargetPandas: ">"},
	}

	KindGreaterThanOrEqual = &Kind{
		Name:      "GreaterThanOrEqual",
		Key:       KeyGreaterThanOrEqual,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructComparison,
		Operators: Operators{TargetInflux: ">=", TargetMySQL: ">=", TargetMongo: "$gte", TargetPandas: ">="},
	}

	KindLessThan = &Kind{
		Name:      "LessThan",
		Key:       KeyLessThan,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructComparison,
		Operators: Operators{TargetInflux: "<", TargetMySQL: "<", TargetMongo: "$lt", TargetPandas: "<"},
	}

	KindLessThanOrEqual = &Kind{
		Name:      "LessThanOrEqual",
		Key:       KeyLessThanOrEqual,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructComparison,
		Operators: Operators{TargetInflux: "<=", TargetMySQL: "<=", TargetMongo: "$lte", TargetPandas: "<="},
	}

	KindMatchRegex = &Kind{
		Name:      "MatchRegex",
		Key:       KeyMatchRegex,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructRegexMatch,
		Operators: Operators{TargetInflux: "=~", TargetMySQL: "REGEXP"},
	}

	KindNotMatchRegex = &Kind{
		Name:      "InverseMatchRegex",
		Key:       KeyNotMatchRegex,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructRegexMatch,
		Operators: Operators{TargetInflux: "!~", TargetMySQL: "NOT REGEXP", TargetMongo: "$not"},
	}

	KindNull = &Kind{
		Name:      "IsNull",
		Key:       KeyNull,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructNullTest,
		Operators: Operators{TargetMySQL: "IS", TargetMongo: "$eq", TargetPandas: "pandas.isnull"},
	}

	KindMissing = &Kind{
		Name:      "IsMissing",
		Key:       KeyMissing,
		Parent:    KindBinary,
		Final:     true,
		Construct: constructNullTest,
		Operators: Operators{TargetMongo: "$exists"},
	}

	KindAnd = &Kind{
		Name:      "And",
		Key:       KeyAnd,
		Parent:    KindLogical,
		Final:     true,
		Construct: constructLogical,
		Operators: Operators{TargetInflux: "AND", TargetMySQL: "AND", TargetMongo: "$and", TargetPandas: "&"},
	}

	KindOr = &Kind{
		Name:      "Or",
		Key:       KeyOr,
		Parent:    KindLogical,
		Final:     true,
		Construct: constructLogical,
		Operators: Operators{TargetInflux: "OR", TargetMySQL: "OR", TargetMongo: "$or", TargetPandas: "|"},
	}
)

// DefaultKinds returns the built-in kinds in registration order. Callers
// extending the language append their own kinds and pass the result to
// NewRegistry.
func DefaultKinds() []*Kind {
	return []*Kind{
		KindExpr,
		KindLiteral,
		KindString, KindBool, KindInt, KindFloat, KindTime, KindRegex, KindIdentifier,
		KindOperator,
		KindBoolean,
		KindUnary, KindNot,
		KindBinary,
		KindEqual, KindNotEqual,
		KindGreaterThan, KindGreaterThanOrEqual, KindLessThan, KindLessThanOrEqual,
		KindMatchRegex, KindNotMatchRegex,
		KindNull, KindMissing,
		KindLogical, KindAnd, KindOr,
	}
}

var (
	defaultRegistry = MustNewRegistry(DefaultKinds()...)
	defaultBuilder  = NewBuilder(defaultRegistry, nil)
)

// DefaultRegistry returns the registry holding the built-in kinds.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func exprKeys(v any) []string {
	if _, ok := v.(map[string]any); ok {
		return []string{keyOperator}
	}
	return []string{keyLiteral}
}

// operatorKeys yields the key of a single-entry mapping and, when its value
// is itself a single-entry mapping, the inner key.
func operatorKeys(v any) []string {
	outer, value, ok := singleEntry(v)
	if !ok {
		return nil
	}
	keys := []string{outer}
	if inner, _, ok := singleEntry(value); ok {
		keys = append(keys, inner)
	}
	return keys
}

func literalKeys(v any) []string {
	if key := scalarKey(v); key != "" {
		return []string{key}
	}
	return nil
}

func fixedKeys(key string) func(any) []string {
	return func(any) []string { return []string{key} }
}

func prepareFilter(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	return normalizeMap(m)
}

func singleEntry(v any) (string, any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", nil, false
	}
	for k, val := range m {
		return k, val, true
	}
	return "", nil, false
}
