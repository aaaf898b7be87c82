package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxRangeValues bounds the number of values a single range may generate.
const maxRangeValues = 10000

// RangeSpec is an inclusive floating-point range, written "min:max:step".
type RangeSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// IntRangeSpec is an inclusive integer range, written "min:max:step".
type IntRangeSpec struct {
	Min  int
	Max  int
	Step int
}

func splitRange(s string) ([]string, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// ParseRangeSpec parses a "min:max:step" string into a RangeSpec.
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts, err := splitRange(s)
	if err != nil {
		return RangeSpec{}, err
	}
	var vals [3]float64
	for i, name := range []string{"min", "max", "step"} {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return RangeSpec{}, fmt.Errorf("invalid %s value %q: %w", name, parts[i], err)
		}
		vals[i] = v
	}
	r := RangeSpec{Min: vals[0], Max: vals[1], Step: vals[2]}
	if err := r.validate(); err != nil {
		return RangeSpec{}, err
	}
	return r, nil
}

// ParseIntRangeSpec parses a "min:max:step" string into an IntRangeSpec.
func ParseIntRangeSpec(s string) (IntRangeSpec, error) {
	parts, err := splitRange(s)
	if err != nil {
		return IntRangeSpec{}, err
	}
	var vals [3]int
	for i, name := range []string{"min", "max", "step"} {
		v, err := strconv.Atoi(parts[i])
		if err != nil {
			return IntRangeSpec{}, fmt.Errorf("invalid %s value %q: %w", name, parts[i], err)
		}
		vals[i] = v
	}
	r := IntRangeSpec{Min: vals[0], Max: vals[1], Step: vals[2]}
	if err := r.validate(); err != nil {
		return IntRangeSpec{}, err
	}
	return r, nil
}

func (r RangeSpec) validate() error {
	if !(r.Step > 0) {
		return fmt.Errorf("step must be positive, got %g", r.Step)
	}
	if r.Min > r.Max {
		return fmt.Errorf("min %g is greater than max %g", r.Min, r.Max)
	}
	return nil
}

func (r IntRangeSpec) validate() error {
	if r.Step <= 0 {
		return fmt.Errorf("step must be positive, got %d", r.Step)
	}
	if r.Min > r.Max {
		return fmt.Errorf("min %d is greater than max %d", r.Min, r.Max)
	}
	return nil
}

// Values generates the range, rounding to 1e-9 so accumulated float error
// does not add or drop the endpoint.
func (r RangeSpec) Values() ([]float64, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	count := math.Floor((r.Max-r.Min)/r.Step + 1e-9)
	if !(count < maxRangeValues) {
		return nil, fmt.Errorf("range %g:%g:%g would generate more than %d values", r.Min, r.Max, r.Step, maxRangeValues)
	}
	n := int(count) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v := r.Min + float64(i)*r.Step
		out = append(out, math.Round(v*1e9)/1e9)
	}
	return out, nil
}

// Values generates the range.
func (r IntRangeSpec) Values() ([]int, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	// The span of a valid range always fits in a uint64.
	span := uint64(r.Max) - uint64(r.Min)
	if span/uint64(r.Step) >= maxRangeValues {
		return nil, fmt.Errorf("range %d:%d:%d would generate more than %d values", r.Min, r.Max, r.Step, maxRangeValues)
	}
	n := int(span/uint64(r.Step)) + 1
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.Min+i*r.Step)
	}
	return out, nil
}

// rangeAlternatives expands a range tag's scalar into Alternatives.
func rangeAlternatives(tag, s string) (Alternatives, error) {
	switch tag {
	case rangeTag:
		spec, err := ParseRangeSpec(s)
		if err != nil {
			return nil, err
		}
		vals, err := spec.Values()
		if err != nil {
			return nil, err
		}
		alts := make(Alternatives, len(vals))
		for i, v := range vals {
			alts[i] = Value{V: v}
		}
		return alts, nil
	case intRangeTag:
		spec, err := ParseIntRangeSpec(s)
		if err != nil {
			return nil, err
		}
		vals, err := spec.Values()
		if err != nil {
			return nil, err
		}
		alts := make(Alternatives, len(vals))
		for i, v := range vals {
			alts[i] = Value{V: v}
		}
		return alts, nil
	}
	return nil, fmt.Errorf("unknown range tag %q", tag)
}
