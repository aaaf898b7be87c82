package sweep

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeJSON decodes a JSON document into a ParamSpec. Object key order is
// kept, so a spec stored as JSON enumerates in the order it was written.
// Integral numbers decode to int64, all others to float64.
func DecodeJSON(data []byte) (ParamSpec, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	spec, err := decodeSpec(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return spec, nil
}

func decodeSpec(dec *json.Decoder) (ParamSpec, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			g := Group{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				if _, dup := g.Lookup(key); dup {
					return nil, fmt.Errorf("duplicate key %q", key)
				}
				v, err := decodeSpec(dec)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", key, err)
				}
				g = append(g, GroupEntry{Key: key, Spec: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return positional(g), nil
		case '[':
			alts := Alternatives{}
			for dec.More() {
				v, err := decodeSpec(dec)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", len(alts), err)
				}
				alts = append(alts, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return alts, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return Value{V: n}, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return Value{V: f}, nil
	}
	return Value{V: tok}, nil
}
