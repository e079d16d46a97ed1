package canon

import (
	"math"
	"testing"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	a := Map(map[string]Value{"z": Int(1), "a": Int(2)})
	b := Map(map[string]Value{"a": Int(2), "z": Int(1)})

	ab, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	bb, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if string(ab) != string(bb) {
		t.Fatalf("key order should not affect output: %q != %q", ab, bb)
	}
	if string(ab) != `{"a":2,"z":1}` {
		t.Fatalf("unexpected canonical bytes: %q", ab)
	}
}

func TestCanonicalizeNestedMapsRecursivelySorted(t *testing.T) {
	v := Map(map[string]Value{
		"outer": Map(map[string]Value{"y": Bool(true), "x": Null()}),
	})
	out, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(out) != `{"outer":{"x":null,"y":true}}` {
		t.Fatalf("unexpected nested ordering: %q", out)
	}
}

func TestCanonicalizeArrayOrderPreserved(t *testing.T) {
	v := Array([]Value{Int(3), Int(1), Int(2)})
	out, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(out) != `[3,1,2]` {
		t.Fatalf("array order should be preserved: %q", out)
	}
}

func TestCanonicalizeStringEscaping(t *testing.T) {
	v := String("a\"b\\c\nd\te\x01fé")
	out, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `"a\"b\\c\nd\te\u00` + `01f` + "é" + `"`
	if string(out) != want {
		t.Fatalf("escaping mismatch: got %q want %q", out, want)
	}
}

func TestCanonicalizeRejectsNonFiniteFloat(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := Canonicalize(Float(f))
		cerr, ok := err.(*CanonicalizationError)
		if !ok || cerr.Code != NonFiniteNumber {
			t.Fatalf("expected NonFiniteNumber, got %v", err)
		}
	}
}

func TestParseJSONRejectsDuplicateKeys(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a":1,"a":2}`))
	cerr, ok := err.(*CanonicalizationError)
	if !ok || cerr.Code != DuplicateKey {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}
}

func TestParseJSONRoundTrip(t *testing.T) {
	in := []byte(`{"a":2,"b":[1,2,3],"c":"hello","d":null,"e":true,"f":1.5}`)
	v, err := ParseJSON(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	v2, err := ParseJSON(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	out2, err := Canonicalize(v2)
	if err != nil {
		t.Fatalf("re-canonicalize: %v", err)
	}
	if string(out) != string(out2) {
		t.Fatalf("round trip mismatch: %q != %q", out, out2)
	}
}

func TestCanonicalizePermutationInvariance(t *testing.T) {
	perms := []map[string]Value{
		{"a": Int(1), "b": Int(2), "c": Int(3)},
		{"c": Int(3), "a": Int(1), "b": Int(2)},
		{"b": Int(2), "c": Int(3), "a": Int(1)},
	}
	var first string
	for i, m := range perms {
		out, err := Canonicalize(Map(m))
		if err != nil {
			t.Fatalf("canonicalize: %v", err)
		}
		if i == 0 {
			first = string(out)
			continue
		}
		if string(out) != first {
			t.Fatalf("permutation %d differs: %q != %q", i, out, first)
		}
	}
}
