package dialect

import (
	"maps"
	"slices"
)

// Resolver holds the dialect of every configured database type. It is
// immutable after construction and safe for concurrent use.
type Resolver struct {
	dialects map[DatabaseType]Dialect
}

// DialectFor derives the dialect of one type from rules and known.
func DialectFor(rules []Rule, known map[string]Dialect, t DatabaseType) (Dialect, error) {
	key := DeriveKey(rules, string(t))
	d, ok := known[key]
	if !ok {
		return Dialect{}, &UnresolvedDialectError{Type: t, Key: key}
	}
	return d, nil
}

// NewResolver resolves every type up front. A single unresolvable type fails
// the whole build.
func NewResolver(types []DatabaseType, rules []Rule, known map[string]Dialect) (*Resolver, error) {
	resolved := make(map[DatabaseType]Dialect, len(types))
	for _, t := range types {
		d, err := DialectFor(rules, known, t)
		if err != nil {
			return nil, err
		}
		resolved[t] = d
	}
	return &Resolver{dialects: resolved}, nil
}

// NewDefaultResolver builds a Resolver over KnownTypes with DefaultRules.
func NewDefaultResolver() (*Resolver, error) {
	return NewResolver(KnownTypes, DefaultRules(), Dialects())
}

// Get returns the dialect registered for t.
func (r *Resolver) Get(t DatabaseType) (Dialect, error) {
	d, ok := r.dialects[t]
	if !ok {
		return Dialect{}, &UnregisteredDialectError{Type: t}
	}
	return d, nil
}

// ConnectionString renders d's connection string. See the package-level
// ConnectionString.
func (r *Resolver) ConnectionString(d Descriptor) (string, error) {
	return ConnectionString(d)
}

// Types lists the registered database types, sorted.
func (r *Resolver) Types() []DatabaseType {
	return slices.Sorted(maps.Keys(r.dialects))
}
