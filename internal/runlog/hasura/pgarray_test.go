package hasura

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/banshee-data/sweep-logger/internal/sweep"
)

func TestParsePGArray(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  []string
		expectErr bool
	}{
		{"empty", "{}", []string{}, false},
		{"unquoted", "{1,2.5,true}", []string{"1", "2.5", "true"}, false},
		{"quoted", `{"\"a\"","\"b,c\""}`, []string{`"a"`, `"b,c"`}, false},
		{"null", "{NULL,1}", []string{"null", "1"}, false},
		{"object", `{"{\"k\": [1, 2]}"}`, []string{`{"k": [1, 2]}`}, false},
		{"escaped_backslash", `{"\"a\\\\nb\""}`, []string{`"a\\nb"`}, false},
		{"spaces", `{ "1" , 2 }`, []string{"1", "2"}, false},
		{"not_array", "[1,2]", nil, true},
		{"unterminated", `{"abc}`, nil, true},
		{"nested", "{{1,2},{3,4}}", nil, true},
		{"garbage_after_quote", `{"a"b}`, nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parsePGArray(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got %q", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeChoice(t *testing.T) {
	testCases := []struct {
		name     string
		spec     sweep.ParamSpec
		expected string
	}{
		{"list", sweep.Alternatives{sweep.Value{V: 1}, sweep.Value{V: "two"}}, `{"1","\"two\""}`},
		{"scalar", sweep.Value{V: 0.5}, `{"0.5"}`},
		{"group", sweep.Group{{Key: "b", Spec: sweep.Value{V: 1}}, {Key: "a", Spec: sweep.Value{V: nil}}}, `{"{\"b\":1,\"a\":null}"}`},
		{"empty", sweep.Alternatives{}, `{}`},
		{"backslash", sweep.Value{V: `C:\tmp`}, `{"\"C:\\\\tmp\""}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := encodeChoice(tc.spec)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestDecodeChoice_JSONArray(t *testing.T) {
	got, err := decodeChoice(json.RawMessage(`[1, "x", {"k": 2.5}]`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := sweep.Alternatives{
		sweep.Value{V: int64(1)},
		sweep.Value{V: "x"},
		sweep.Group{{Key: "k", Spec: sweep.Value{V: 2.5}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeChoice_Invalid(t *testing.T) {
	for _, raw := range []string{`42`, `"not an array"`, `"{\"{bad json\"}"`} {
		if _, err := decodeChoice(json.RawMessage(raw)); err == nil {
			t.Errorf("Expected error for %s", raw)
		}
	}
}

func TestChoiceRoundTrip(t *testing.T) {
	scalar := rapid.OneOf(
		rapid.Map(rapid.Int64Range(-1000, 1000), func(v int64) any { return v }),
		rapid.Map(rapid.String(), func(v string) any { return v }),
		rapid.Map(rapid.Bool(), func(v bool) any { return v }),
	)

	rapid.Check(t, func(t *rapid.T) {
		vals := rapid.SliceOfN(scalar, 0, 6).Draw(t, "values")
		alts := make(sweep.Alternatives, len(vals))
		for i, v := range vals {
			alts[i] = sweep.Value{V: v}
		}

		enc, err := encodeChoice(alts)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		raw, _ := json.Marshal(enc)
		got, err := decodeChoice(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", enc, err)
		}
		if diff := cmp.Diff(alts, got); diff != "" {
			t.Fatalf("round trip mismatch for %s (-want +got):\n%s", enc, diff)
		}
	})
}
