// Package queryir provides the filter expression model shared by every query
// backend: the kind registry, the filter normalizer, the expression builder,
// the sealed AST node family and the statement wrappers.
//
// ARCHITECTURE:
//
//	[filter JSON] → Normalize → [canonical JSON] → Build → [Expr tree]
//	                                                          → queryinflux
//	                                                          → querysql
//	                                                          → querymongo
//	                                                          → querypandas
//
// CANONICAL FORM:
//
// Every leaf comparison is written {field: {operator: operand}}. Combinators
// are {"and": [...]}, {"or": [...]} and {"not": {...}}. Normalize rewrites
// shorthand (implicit equality, implicit disjunction over a list, regex as a
// slash-delimited string) into this form.
//
// KINDS AND SCOPES:
//
// Each node kind is a *Kind registered in a Registry. Abstract kinds open a
// scope (a key namespace). Concrete kinds are final and register their key in
// the scope of their nearest abstract ancestor:
//
//	Expr (scope expr)
//	├── Literal "literal"   (scope literal: string bool int float time regex identifier)
//	└── Operator "operator" (scope operator)
//	    └── Boolean
//	        ├── Unary:   not
//	        ├── Binary:  eq ne gt gte lt lte regex nregex null missing
//	        └── Logical: and or
//
// Build derives candidate keys from the JSON shape and tries each kind in
// turn. A trial yields a node, asks for the next candidate, or fails.
//
// RENDERING:
//
// Backends implement Visitor[R]. Accept dispatches on the sealed node set, so
// a backend that forgets a node type does not compile.
//
// The default registry is built during package initialization and never
// mutated afterwards. All nodes are immutable; a tree may be rendered from
// many goroutines at once.
package queryir
