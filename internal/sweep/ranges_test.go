package sweep

import (
	"math"
	"reflect"
	"testing"
)

func TestParseRangeSpec(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  RangeSpec
		expectErr bool
	}{
		{"valid_range", "1.0:5.0:0.5", RangeSpec{Min: 1.0, Max: 5.0, Step: 0.5}, false},
		{"with_spaces", " 1.0 : 5.0 : 0.5 ", RangeSpec{Min: 1.0, Max: 5.0, Step: 0.5}, false},
		{"negative_values", "-5.0:5.0:1.0", RangeSpec{Min: -5.0, Max: 5.0, Step: 1.0}, false},
		{"learning_rates", "0.001:0.005:0.001", RangeSpec{Min: 0.001, Max: 0.005, Step: 0.001}, false},
		{"missing_parts", "1.0:5.0", RangeSpec{}, true},
		{"too_many_parts", "1.0:5.0:0.5:2.0", RangeSpec{}, true},
		{"invalid_min", "abc:5.0:0.5", RangeSpec{}, true},
		{"invalid_step", "1.0:5.0:abc", RangeSpec{}, true},
		{"zero_step", "1.0:5.0:0", RangeSpec{}, true},
		{"negative_step", "1.0:5.0:-0.5", RangeSpec{}, true},
		{"min_above_max", "5.0:1.0:0.5", RangeSpec{}, true},
		{"nan_step", "0:1:NaN", RangeSpec{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseRangeSpec(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got nil", tc.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if result != tc.expected {
				t.Errorf("Expected %+v, got %+v", tc.expected, result)
			}
		})
	}
}

func TestParseIntRangeSpec(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  IntRangeSpec
		expectErr bool
	}{
		{"valid_range", "1:10:2", IntRangeSpec{Min: 1, Max: 10, Step: 2}, false},
		{"with_spaces", " 1 : 10 : 2 ", IntRangeSpec{Min: 1, Max: 10, Step: 2}, false},
		{"negative_values", "-10:10:5", IntRangeSpec{Min: -10, Max: 10, Step: 5}, false},
		{"float_value", "1.5:10:2", IntRangeSpec{}, true},
		{"zero_step", "1:10:0", IntRangeSpec{}, true},
		{"negative_step", "1:10:-2", IntRangeSpec{}, true},
		{"min_above_max", "10:1:2", IntRangeSpec{}, true},
		{"single_value", "3:3:1", IntRangeSpec{Min: 3, Max: 3, Step: 1}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseIntRangeSpec(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got nil", tc.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if result != tc.expected {
				t.Errorf("Expected %+v, got %+v", tc.expected, result)
			}
		})
	}
}

func TestRangeSpecValues(t *testing.T) {
	testCases := []struct {
		name     string
		spec     RangeSpec
		expected []float64
	}{
		{"simple", RangeSpec{Min: 0, Max: 1, Step: 0.25}, []float64{0, 0.25, 0.5, 0.75, 1}},
		{"float_accumulation", RangeSpec{Min: 0.1, Max: 0.3, Step: 0.1}, []float64{0.1, 0.2, 0.3}},
		{"single_value", RangeSpec{Min: 2, Max: 2, Step: 1}, []float64{2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.spec.Values()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestRangeSpecValues_TooMany(t *testing.T) {
	if _, err := (RangeSpec{Min: 0, Max: 1, Step: 1e-6}).Values(); err == nil {
		t.Error("Expected error for oversized float range")
	}
	if _, err := (IntRangeSpec{Min: 0, Max: 1000000, Step: 1}).Values(); err == nil {
		t.Error("Expected error for oversized int range")
	}
}

func TestIntRangeSpecValues(t *testing.T) {
	got, err := IntRangeSpec{Min: 1, Max: 10, Step: 3}.Values()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if want := []int{1, 4, 7, 10}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestIntRangeSpecValues_NearIntLimits(t *testing.T) {
	testCases := []struct {
		name     string
		spec     IntRangeSpec
		expected []int
	}{
		{"top_single_step", IntRangeSpec{Min: math.MaxInt - 1, Max: math.MaxInt, Step: math.MaxInt}, []int{math.MaxInt - 1}},
		{"top_endpoint", IntRangeSpec{Min: math.MaxInt - 2, Max: math.MaxInt, Step: 2}, []int{math.MaxInt - 2, math.MaxInt}},
		{"full_width", IntRangeSpec{Min: math.MinInt, Max: math.MaxInt, Step: math.MaxInt}, []int{math.MinInt, -1, math.MaxInt - 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.spec.Values()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}

	if _, err := (IntRangeSpec{Min: math.MinInt, Max: math.MaxInt, Step: 1}).Values(); err == nil {
		t.Error("Expected error for full-width unit-step range")
	}
}

func TestRangeValues_RejectInverted(t *testing.T) {
	if _, err := (RangeSpec{Min: 3, Max: 1, Step: 1}).Values(); err == nil {
		t.Error("Expected error for inverted float range")
	}
	if _, err := (IntRangeSpec{Min: 3, Max: 1, Step: 1}).Values(); err == nil {
		t.Error("Expected error for inverted int range")
	}
}
