package sweep

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Local YAML tags that expand a scalar range into Alternatives.
const (
	rangeTag    = "!range"
	intRangeTag = "!irange"
)

// ParseYAML decodes a sweep configuration. Mappings become Groups (key order
// kept), sequences become Alternatives and scalars become Values. It also
// returns the configuration as a plain document for recording in metadata.
func ParseYAML(data []byte) (ParamSpec, any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, err
	}
	if root.Kind == 0 {
		return nil, nil, errors.New("empty document")
	}
	spec, err := FromYAMLNode(&root)
	if err != nil {
		return nil, nil, err
	}
	doc, err := nodeDocument(&root)
	if err != nil {
		return nil, nil, err
	}
	return spec, doc, nil
}

// FromYAMLNode converts a decoded YAML node into a ParamSpec.
func FromYAMLNode(n *yaml.Node) (ParamSpec, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{}, nil
		}
		return FromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)
	case yaml.MappingNode:
		g := make(Group, 0, len(n.Content)/2)
		seen := make(map[string]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			key, err := mappingKey(k)
			if err != nil {
				return nil, err
			}
			if line, dup := seen[key]; dup {
				return nil, fmt.Errorf("line %d: key %q already defined at line %d", k.Line, key, line)
			}
			seen[key] = k.Line
			spec, err := FromYAMLNode(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			g = append(g, GroupEntry{Key: key, Spec: spec})
		}
		return positional(g), nil
	case yaml.SequenceNode:
		alts := make(Alternatives, 0, len(n.Content))
		for i, c := range n.Content {
			spec, err := FromYAMLNode(c)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			alts = append(alts, spec)
		}
		return alts, nil
	case yaml.ScalarNode:
		if n.Tag == rangeTag || n.Tag == intRangeTag {
			alts, err := rangeAlternatives(n.Tag, n.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, err)
			}
			return alts, nil
		}
		v, err := scalarValue(n)
		if err != nil {
			return nil, err
		}
		return Value{V: v}, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

func mappingKey(k *yaml.Node) (string, error) {
	if k.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
	}
	if k.Tag == "!!merge" {
		return "", fmt.Errorf("line %d: merge keys are not supported", k.Line)
	}
	return k.Value, nil
}

func scalarValue(n *yaml.Node) (any, error) {
	if strings.HasPrefix(n.Tag, "!") && !strings.HasPrefix(n.Tag, "!!") {
		// Unknown local tags keep their text.
		return n.Value, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return v, nil
}

// nodeDocument converts a node into plain maps, slices and scalars. Range
// tags are kept as written ("!range 0:1:0.1") rather than expanded.
func nodeDocument(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeDocument(n.Content[0])
	case yaml.AliasNode:
		return nodeDocument(n.Alias)
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, err := mappingKey(n.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := nodeDocument(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m[key] = v
		}
		return m, nil
	case yaml.SequenceNode:
		l := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeDocument(c)
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	case yaml.ScalarNode:
		if n.Tag == rangeTag || n.Tag == intRangeTag {
			return n.Tag + " " + n.Value, nil
		}
		return scalarValue(n)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}
