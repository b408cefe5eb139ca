package queries

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var leafKeys = map[string]bool{"path": true, "description": true, "order": true}

// LoadFile reads a registry document and loads the named pipelines from it.
// See Load.
func LoadFile(path, root string, pipelines ...string) (map[string]Queries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query registry: %w", err)
	}
	return Parse(data, root, pipelines...)
}

// Parse decodes a YAML (or JSON) registry document and loads it.
func Parse(data []byte, root string, pipelines ...string) (map[string]Queries, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse query registry: %w", err)
	}
	return Load(&doc, root, pipelines...)
}

// Load flattens the registry rooted at doc. Query paths are resolved against
// root. With no pipeline names every pipeline in the document is loaded;
// otherwise only the named ones, and a name the document lacks is an
// UnknownPipelineError.
//
// Any file problem fails the whole load; no partial registry is returned.
func Load(doc *yaml.Node, root string, pipelines ...string) (map[string]Queries, error) {
	top := resolve(doc)
	if top.Kind == 0 {
		// yaml.Unmarshal leaves the node zero for an empty document.
		top = &yaml.Node{Kind: yaml.MappingNode}
	}
	if top.Kind == yaml.DocumentNode {
		if len(top.Content) == 0 {
			top = &yaml.Node{Kind: yaml.MappingNode}
		} else {
			top = resolve(top.Content[0])
		}
	}
	if top.Kind == yaml.ScalarNode && top.ShortTag() == "!!null" {
		top = &yaml.Node{Kind: yaml.MappingNode}
	}
	if top.Kind != yaml.MappingNode {
		return nil, &InvalidQueryError{Name: "", Line: top.Line, Reason: "registry document must be a mapping of pipeline names"}
	}

	byName := make(map[string]*yaml.Node, len(top.Content)/2)
	var order []string
	for i := 0; i+1 < len(top.Content); i += 2 {
		name := top.Content[i].Value
		if _, dup := byName[name]; dup {
			return nil, &InvalidQueryError{Name: name, Line: top.Content[i].Line, Reason: "pipeline declared twice"}
		}
		byName[name] = top.Content[i+1]
		order = append(order, name)
	}

	if len(pipelines) == 0 {
		pipelines = order
	}

	out := make(map[string]Queries, len(pipelines))
	for _, name := range pipelines {
		if _, done := out[name]; done {
			continue
		}
		node, ok := byName[name]
		if !ok {
			return nil, &UnknownPipelineError{Pipeline: name}
		}
		var items []QueryDefinition
		if err := flatten(node, root, nil, &items); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", name, err)
		}
		out[name] = newQueries(name, items)
	}
	return out, nil
}

// flatten walks node depth-first in document order, appending one
// QueryDefinition per leaf.
func flatten(node *yaml.Node, root string, prefix []string, out *[]QueryDefinition) error {
	node = resolve(node)
	name := strings.Join(prefix, ".")
	if node.Kind != yaml.MappingNode {
		return &InvalidQueryError{Name: name, Line: node.Line, Reason: "expected a mapping"}
	}

	if isLeaf(node) {
		q, err := decodeLeaf(node, root, name)
		if err != nil {
			return err
		}
		*out = append(*out, q)
		return nil
	}

	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		child := append(append([]string(nil), prefix...), key)
		if seen[key] {
			return &InvalidQueryError{Name: strings.Join(child, "."), Line: node.Content[i].Line, Reason: "declared twice"}
		}
		seen[key] = true
		if err := flatten(node.Content[i+1], root, child, out); err != nil {
			return err
		}
	}
	return nil
}

func isLeaf(node *yaml.Node) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "path" {
			return true
		}
	}
	return false
}

func decodeLeaf(node *yaml.Node, root, name string) (QueryDefinition, error) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if key := node.Content[i].Value; !leafKeys[key] {
			return QueryDefinition{}, &InvalidQueryError{Name: name, Line: node.Content[i].Line, Reason: fmt.Sprintf("unknown field %q", key)}
		}
	}

	var leaf struct {
		Path        string `yaml:"path"`
		Description string `yaml:"description"`
		Order       *int   `yaml:"order"`
	}
	if err := node.Decode(&leaf); err != nil {
		return QueryDefinition{}, &InvalidQueryError{Name: name, Line: node.Line, Reason: err.Error()}
	}
	if leaf.Path == "" {
		return QueryDefinition{}, &InvalidQueryError{Name: name, Line: node.Line, Reason: "path is empty"}
	}
	if leaf.Order == nil {
		return QueryDefinition{}, &InvalidQueryError{Name: name, Line: node.Line, Reason: "order is required"}
	}
	if name == "" {
		return QueryDefinition{}, &InvalidQueryError{Line: node.Line, Reason: "a pipeline cannot itself be a query leaf"}
	}

	return NewQueryDefinition(root, name, leaf.Path, leaf.Description, *leaf.Order)
}

func resolve(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
