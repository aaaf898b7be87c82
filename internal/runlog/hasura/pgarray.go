package hasura

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/banshee-data/sweep-logger/internal/sweep"
)

// encodeChoice renders a choice as the Postgres array literal stored in
// parameter_choices.choice. Each alternative becomes one element holding its
// JSON text; a choice that is not an Alternatives is a single element.
func encodeChoice(spec sweep.ParamSpec) (string, error) {
	elems, ok := spec.(sweep.Alternatives)
	if !ok {
		elems = sweep.Alternatives{spec}
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range elems {
		if i > 0 {
			b.WriteByte(',')
		}
		text, err := json.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("encoding choice element %d: %w", i, err)
		}
		quotePG(&b, string(text))
	}
	b.WriteByte('}')
	return b.String(), nil
}

func quotePG(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
}

// parsePGArray splits a one-dimensional Postgres array literal into its
// element texts. Unquoted NULL becomes the JSON text "null".
func parsePGArray(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("not an array literal: %q", s)
	}
	body := s[1 : len(s)-1]
	out := []string{}
	if strings.TrimSpace(body) == "" {
		return out, nil
	}

	i := 0
	for {
		for i < len(body) && body[i] == ' ' {
			i++
		}
		if i < len(body) && body[i] == '"' {
			i++
			var elem strings.Builder
			closed := false
			for i < len(body) {
				c := body[i]
				i++
				if c == '\\' {
					if i >= len(body) {
						break
					}
					elem.WriteByte(body[i])
					i++
					continue
				}
				if c == '"' {
					closed = true
					break
				}
				elem.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated element in %q", s)
			}
			out = append(out, elem.String())
		} else {
			j := strings.IndexByte(body[i:], ',')
			if j < 0 {
				j = len(body) - i
			}
			elem := strings.TrimSpace(body[i : i+j])
			if strings.HasPrefix(elem, "{") {
				return nil, fmt.Errorf("nested arrays are not supported: %q", s)
			}
			if elem == "NULL" {
				elem = "null"
			}
			out = append(out, elem)
			i += j
		}

		for i < len(body) && body[i] == ' ' {
			i++
		}
		if i >= len(body) {
			return out, nil
		}
		if body[i] != ',' {
			return nil, fmt.Errorf("expected ',' at offset %d in %q", i+1, s)
		}
		i++
	}
}

// decodeChoice reads a choice column back into Alternatives. The column may
// arrive as an array literal string or as a JSON array of values.
func decodeChoice(raw json.RawMessage) (sweep.ParamSpec, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return sweep.DecodeJSON(raw)
	}

	var literal string
	if err := json.Unmarshal(raw, &literal); err != nil {
		return nil, fmt.Errorf("choice is neither a string nor an array: %w", err)
	}
	elems, err := parsePGArray(literal)
	if err != nil {
		return nil, err
	}
	alts := make(sweep.Alternatives, len(elems))
	for i, text := range elems {
		spec, err := sweep.DecodeJSON([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("choice element %d: %w", i, err)
		}
		alts[i] = spec
	}
	return alts, nil
}
