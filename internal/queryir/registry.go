package queryir

import (
	"fmt"
	"slices"
)

// Scope names a key namespace opened by an abstract kind.
type Scope string

const (
	ScopeExpr     Scope = "expr"
	ScopeLiteral  Scope = "literal"
	ScopeOperator Scope = "operator"
)

// Outcome is the result tag of one construction trial.
type Outcome int

const (
	// OutcomeTryNext means the kind does not match; the builder moves on.
	OutcomeTryNext Outcome = iota
	// OutcomeFound means the kind matched and produced Expr.
	OutcomeFound
	// OutcomeFatal means the kind matched but the fragment is invalid.
	OutcomeFatal
)

// Attempt is the outcome of trying one candidate kind against a fragment.
type Attempt struct {
	Outcome Outcome
	Expr    Expr
	Err     error
}

// Found reports a successful trial.
func Found(e Expr) Attempt { return Attempt{Outcome: OutcomeFound, Expr: e} }

// TryNext reports a trial that does not apply.
func TryNext() Attempt { return Attempt{} }

// Fatal reports a trial that matched and failed validation.
func Fatal(err error) Attempt { return Attempt{Outcome: OutcomeFatal, Err: err} }

// Kind describes one node kind.
//
// Constructors must not refer to the Kind variable they are assigned to;
// the kind is passed in as k instead. This keeps package initialization
// acyclic.
type Kind struct {
	Name   string
	Key    string
	Parent *Kind

	// Abstract kinds are never constructed. They open Scope.
	Abstract bool
	Scope    Scope

	// Final kinds are constructible and cannot be extended.
	Final bool

	// Keys derives candidate keys from a fragment. Inherited when nil.
	Keys func(v any) []string

	// Prepare rewrites raw input before candidate derivation. Inherited
	// when nil.
	Prepare func(v any) (any, error)

	// Accepts is the native value predicate of a literal kind.
	Accepts func(v any) bool

	// Construct builds a node of kind k from canonical JSON.
	Construct func(b *Builder, k *Kind, v any) Attempt

	Operators Operators
}

func (k *Kind) String() string {
	return k.Name
}

// Covers reports whether other is k or a descendant of k.
func (k *Kind) Covers(other *Kind) bool {
	for c := other; c != nil; c = c.Parent {
		if c == k {
			return true
		}
	}
	return false
}

// abstractAncestor returns the nearest abstract strict ancestor.
func (k *Kind) abstractAncestor() *Kind {
	for p := k.Parent; p != nil; p = p.Parent {
		if p.Abstract {
			return p
		}
	}
	return nil
}

// lookupScope is the scope candidate keys of k are resolved in: its own
// scope when abstract, its nearest abstract ancestor's otherwise.
func (k *Kind) lookupScope() Scope {
	if k.Abstract {
		return k.Scope
	}
	if a := k.abstractAncestor(); a != nil {
		return a.Scope
	}
	return ""
}

func (k *Kind) keysFunc() func(any) []string {
	for c := k; c != nil; c = c.Parent {
		if c.Keys != nil {
			return c.Keys
		}
	}
	return nil
}

func (k *Kind) prepareFunc() func(any) (any, error) {
	for c := k; c != nil; c = c.Parent {
		if c.Prepare != nil {
			return c.Prepare
		}
	}
	return nil
}

// Registry maps (scope, key) pairs to kinds. A Registry is immutable once
// NewRegistry returns, so it is safe for concurrent use.
type Registry struct {
	scopes map[Scope]map[string]*Kind
	owners map[Scope]*Kind
	kinds  map[*Kind]bool
}

// NewRegistry registers kinds in order. Parents must precede children.
func NewRegistry(kinds ...*Kind) (*Registry, error) {
	r := &Registry{
		scopes: make(map[Scope]map[string]*Kind),
		owners: make(map[Scope]*Kind),
		kinds:  make(map[*Kind]bool),
	}
	for _, k := range kinds {
		if err := r.register(k); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on a registration error.
func MustNewRegistry(kinds ...*Kind) *Registry {
	r, err := NewRegistry(kinds...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) register(k *Kind) error {
	if k == nil || k.Name == "" {
		return staticConfig("kind must have a name")
	}
	if r.kinds[k] {
		return staticConfig("kind %s registered twice", k.Name)
	}
	if p := k.Parent; p != nil {
		if p.Final {
			return staticConfig("kind %s cannot extend %s, which is final", k.Name, p.Name)
		}
		if !r.kinds[p] {
			return staticConfig("kind %s registered before its parent %s", k.Name, p.Name)
		}
	}
	if k.Abstract && k.Final {
		return staticConfig("kind %s cannot be both abstract and final", k.Name)
	}
	if k.Construct != nil && !k.Final {
		return staticConfig("kind %s has a constructor but is not final", k.Name)
	}
	if k.Final && k.Construct == nil {
		return staticConfig("final kind %s has no constructor", k.Name)
	}
	if k.Key != "" && !k.Abstract && !k.Final {
		return staticConfig("kind %s has key %q but is neither abstract nor final", k.Name, k.Key)
	}

	if k.Key != "" {
		anchor := k.abstractAncestor()
		if anchor == nil {
			return staticConfig("kind %s has key %q but no abstract ancestor", k.Name, k.Key)
		}
		keys := r.scopes[anchor.Scope]
		if prev, ok := keys[k.Key]; ok {
			return staticConfig("key %q in scope %s is claimed by both %s and %s",
				k.Key, anchor.Scope, prev.Name, k.Name)
		}
		keys[k.Key] = k
	}

	if k.Abstract {
		if k.Scope == "" {
			return staticConfig("abstract kind %s must open a scope", k.Name)
		}
		if prev, ok := r.owners[k.Scope]; ok {
			return staticConfig("scope %s is opened by both %s and %s", k.Scope, prev.Name, k.Name)
		}
		r.owners[k.Scope] = k
		r.scopes[k.Scope] = make(map[string]*Kind)
	}

	r.kinds[k] = true
	return nil
}

// Lookup returns the kind registered under key in scope.
func (r *Registry) Lookup(scope Scope, key string) (*Kind, error) {
	if k, ok := r.scopes[scope][key]; ok {
		return k, nil
	}
	return nil, &Error{
		Code:    ErrCodeUnknownKind,
		Message: fmt.Sprintf("no kind registered for key %q in scope %s", key, scope),
	}
}

// Keys returns the keys registered in scope, sorted.
func (r *Registry) Keys(scope Scope) []string {
	keys := make([]string, 0, len(r.scopes[scope]))
	for key := range r.scopes[scope] {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Contains reports whether k is registered.
func (r *Registry) Contains(k *Kind) bool {
	return r.kinds[k]
}
