package dialect

import (
	"errors"
	"fmt"
)

// UnsupportedDatabaseTypeError reports a descriptor type with no connection template.
type UnsupportedDatabaseTypeError struct {
	Type DatabaseType
}

func (e *UnsupportedDatabaseTypeError) Error() string {
	return fmt.Sprintf("unsupported database type %q", e.Type)
}

// UnresolvedDialectError reports a type whose derived dialect key names no
// known dialect. Raised while building a Resolver.
type UnresolvedDialectError struct {
	Type DatabaseType
	Key  string
}

func (e *UnresolvedDialectError) Error() string {
	return fmt.Sprintf("database type %q resolved to unknown dialect %q", e.Type, e.Key)
}

// UnregisteredDialectError reports a lookup for a type the Resolver was not built with.
type UnregisteredDialectError struct {
	Type DatabaseType
}

func (e *UnregisteredDialectError) Error() string {
	return fmt.Sprintf("no dialect registered for database type %q", e.Type)
}

// IsUnsupportedType reports whether err is (or wraps) an UnsupportedDatabaseTypeError.
func IsUnsupportedType(err error) bool {
	var ue *UnsupportedDatabaseTypeError
	return errors.As(err, &ue)
}
