// Package sweep expands nested parameter sweep definitions into concrete
// parameter sets, either by exhaustive grid enumeration or by random sampling.
//
// A sweep definition is a ParamSpec tree:
//
//   - Group: every key is present in the result, each resolved independently.
//   - Alternatives: exactly one option is chosen.
//   - Value: a terminal value, returned unchanged.
//
// The tree is decided when the configuration is loaded (see ParseYAML), so the
// expansion code never has to guess whether a mapping or a list was meant.
package sweep

import (
	"encoding/json"
	"fmt"
)

// ParamSpec is one node of a sweep definition. The concrete types are Value,
// Alternatives and Group.
type ParamSpec interface {
	isParamSpec()
}

// Value is a terminal parameter value.
type Value struct {
	V any
}

// Alternatives chooses exactly one of its options.
type Alternatives []ParamSpec

// GroupEntry is one named member of a Group.
type GroupEntry struct {
	Key  string
	Spec ParamSpec
}

// Group resolves every entry and merges the results under their keys.
// Entry order is preserved from the configuration.
type Group []GroupEntry

func (Value) isParamSpec()        {}
func (Alternatives) isParamSpec() {}
func (Group) isParamSpec()        {}

// Lookup returns the spec stored under key.
func (g Group) Lookup(key string) (ParamSpec, bool) {
	for _, e := range g {
		if e.Key == key {
			return e.Spec, true
		}
	}
	return nil, false
}

// positional replaces a mapping whose only key is "" with that key's spec, so
// {"": x} and x expand identically at any depth.
func positional(g Group) ParamSpec {
	if len(g) == 1 && g[0].Key == "" {
		return g[0].Spec
	}
	return g
}

// ParamChoice is a top-level (key, choice) pair as submitted to the metadata
// service. The empty key denotes a positional group, used when the whole
// configuration is a bare list.
type ParamChoice struct {
	Key    string
	Choice ParamSpec
}

// Choices flattens a top-level spec into parameter choices. A Group yields one
// choice per entry; anything else yields a single positional choice.
func Choices(spec ParamSpec) []ParamChoice {
	g, ok := spec.(Group)
	if !ok {
		return []ParamChoice{{Key: "", Choice: spec}}
	}
	out := make([]ParamChoice, 0, len(g))
	for _, e := range g {
		out = append(out, ParamChoice{Key: e.Key, Choice: e.Spec})
	}
	return out
}

// ChoicesToSpec is the inverse of Choices. A single positional choice unwraps
// to its spec; otherwise the choices form a Group. Duplicate keys are an error.
func ChoicesToSpec(choices []ParamChoice) (ParamSpec, error) {
	if len(choices) == 1 && choices[0].Key == "" {
		return choices[0].Choice, nil
	}
	seen := make(map[string]struct{}, len(choices))
	g := make(Group, 0, len(choices))
	for _, c := range choices {
		if _, dup := seen[c.Key]; dup {
			return nil, fmt.Errorf("duplicate parameter key %q", c.Key)
		}
		seen[c.Key] = struct{}{}
		g = append(g, GroupEntry{Key: c.Key, Spec: c.Choice})
	}
	return g, nil
}

// ToDocument converts a spec back into a plain document: Group becomes
// map[string]any, Alternatives becomes []any, Value becomes its payload.
func ToDocument(spec ParamSpec) any {
	switch s := spec.(type) {
	case Group:
		m := make(map[string]any, len(s))
		for _, e := range s {
			m[e.Key] = ToDocument(e.Spec)
		}
		return m
	case Alternatives:
		l := make([]any, len(s))
		for i, o := range s {
			l[i] = ToDocument(o)
		}
		return l
	case Value:
		return s.V
	}
	return nil
}

// MarshalJSON encodes the group as a JSON object, keeping entry order.
func (g Group) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, e := range g {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Spec)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", e.Key, err)
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// MarshalJSON encodes the alternatives as a JSON array.
func (a Alternatives) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ParamSpec(a))
}

// MarshalJSON encodes the payload.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.V)
}

// Keys returns the group's keys in order.
func (g Group) Keys() []string {
	keys := make([]string, len(g))
	for i, e := range g {
		keys[i] = e.Key
	}
	return keys
}
