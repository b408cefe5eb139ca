package definitions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// schemaSource constrains every definition document. Definitions are closed,
// so unknown fields are rejected.
const schemaSource = `
#Phase: {
	id:           int & >0
	key:          string & !=""
	name:         string & !=""
	description?: string
}

#Step: {
	id:           int & >0
	phase_id:     int & >0
	key:          string & !=""
	name:         string & !=""
	code:         string & !=""
	description?: string
	inactive?:    bool
}

#Document: {
	phases: [...#Phase]
	steps:  [...#Step]
}
`

// SchemaError reports a definition document that does not satisfy the schema.
type SchemaError struct {
	Path    string
	Details string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("definitions %s: %s", e.Path, e.Details)
}

// LoadFile reads a definition document and builds a Registry from it.
// The format is chosen by extension: .cue, .yaml/.yml or .json.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	doc, err := Decode(path, data)
	if err != nil {
		return nil, err
	}
	return Load(doc.Phases, doc.Steps)
}

// Decode validates data against the definition schema and decodes it.
// name is used both for error positions and to pick the format.
func Decode(name string, data []byte) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("definitions_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile definitions schema: %w", err)
	}

	value, err := compileDocument(ctx, name, data)
	if err != nil {
		return nil, err
	}

	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &SchemaError{Path: name, Details: strings.TrimSpace(cueerrors.Details(err, nil))}
	}

	var doc Document
	if err := unified.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode definitions %s: %w", name, err)
	}
	return &doc, nil
}

func compileDocument(ctx *cue.Context, name string, data []byte) (cue.Value, error) {
	var value cue.Value
	switch strings.ToLower(filepath.Ext(name)) {
	case ".cue":
		value = ctx.CompileBytes(data, cue.Filename(name))
	case ".yaml", ".yml":
		file, err := cueyaml.Extract(name, data)
		if err != nil {
			return cue.Value{}, fmt.Errorf("parse definitions %s: %w", name, err)
		}
		value = ctx.BuildFile(file)
	case ".json":
		expr, err := cuejson.Extract(name, data)
		if err != nil {
			return cue.Value{}, fmt.Errorf("parse definitions %s: %w", name, err)
		}
		value = ctx.BuildExpr(expr)
	default:
		return cue.Value{}, fmt.Errorf("definitions %s: unsupported format %q", name, filepath.Ext(name))
	}
	if err := value.Err(); err != nil {
		return cue.Value{}, &SchemaError{Path: name, Details: strings.TrimSpace(cueerrors.Details(err, nil))}
	}
	return value, nil
}
