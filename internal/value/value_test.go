package value

import "testing"

func TestCompareNumericPromotion(t *testing.T) {
	n, err := Compare(Int64(3), Float64(3.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Fatalf("want 0, got %d", n)
	}
}

func TestCompareCrossVariantMismatch(t *testing.T) {
	_, err := Compare(Str("3"), Int64(3))
	if err == nil {
		t.Fatalf("expected TypeMismatch")
	}
}

func TestAsInt64Coercion(t *testing.T) {
	cases := []struct {
		in   Value
		want int64
	}{
		{Int64(5), 5},
		{Float64(5.9), 5},
		{Str("42"), 42},
		{Null, 0},
	}
	for _, c := range cases {
		got, err := AsInt64(c.in)
		if err != nil {
			t.Fatalf("unexpected error for %v: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("want %d got %d", c.want, got)
		}
	}
}

func TestAsInt64TypeMismatch(t *testing.T) {
	if _, err := AsInt64(Str("abc")); err == nil {
		t.Fatalf("expected TypeMismatch for non-numeric string")
	}
}

func TestParseLiteral(t *testing.T) {
	if v := ParseLiteral("true"); v.Kind != KindBool || !v.Bool {
		t.Fatalf("expected bool true, got %+v", v)
	}
	if v := ParseLiteral("42"); v.Kind != KindInt64 || v.Int64 != 42 {
		t.Fatalf("expected int64 42, got %+v", v)
	}
	if v := ParseLiteral("[1,0.5,2]"); v.Kind != KindVector || len(v.Vector) != 3 {
		t.Fatalf("expected vector of 3, got %+v", v)
	}
	if v := ParseLiteral(`{"a":1}`); v.Kind != KindJSON {
		t.Fatalf("expected json, got %+v", v)
	}
}

func TestSortedMembersOrdering(t *testing.T) {
	v := Value{Kind: KindSortedSet, SortedSet: map[string]float64{
		"b": 1, "a": 1, "c": 0.5,
	}}
	members := v.SortedMembers()
	want := []string{"c", "a", "b"}
	for i, m := range members {
		if m.Member != want[i] {
			t.Fatalf("position %d: want %s got %s", i, want[i], m.Member)
		}
	}
}
