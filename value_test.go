package basil

import (
	"testing"
	"time"
)

func TestValuesEqualAcrossKinds(t *testing.T) {
	if !valuesEqual(IntVal(3), DblVal(3)) {
		t.Fatal("3 and 3.0 must compare equal")
	}
	if !valuesEqual(StrVal("ABC"), StrVal("abc")) {
		t.Fatal("string equality folds case")
	}
	if !valuesEqual(StrVal("10"), IntVal(10)) {
		t.Fatal("numeric strings compare numerically")
	}
	if valuesEqual(StrVal("x"), IntVal(10)) {
		t.Fatal("non-numeric string never equals a number")
	}
	if !valuesEqual(BoolVal(true), IntVal(-1)) {
		t.Fatal("True is -1 numerically")
	}
}

func TestSameReference(t *testing.T) {
	l := NewList()
	if !sameReference(ObjVal(l), ObjVal(l)) {
		t.Fatal("same object must be identical")
	}
	if sameReference(ObjVal(NewList()), ObjVal(NewList())) {
		t.Fatal("distinct objects must differ")
	}
	if !sameReference(Nothing, Nothing) {
		t.Fatal("Nothing is Nothing")
	}
}

func TestAsLongBankersRounding(t *testing.T) {
	for _, tc := range []struct {
		in   float64
		want int64
	}{
		{2.5, 2}, {3.5, 4}, {-2.5, -2}, {0.5, 0}, {1.5, 2},
	} {
		got, err := asLong(DblVal(tc.in))
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Fatalf("asLong(%g) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTruthyConversions(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{BoolVal(true), true},
		{IntVal(0), false},
		{IntVal(-3), true},
		{StrVal("True"), true},
		{StrVal("false"), false},
		{StrVal("0"), false},
		{StrVal("2.5"), true},
		{Nothing, false},
	}
	for _, tc := range cases {
		got, err := truthy(tc.v)
		if err != nil {
			t.Fatalf("truthy(%#v): %v", tc.v, err)
		}
		if got != tc.want {
			t.Fatalf("truthy(%#v) = %v, want %v", tc.v, got, tc.want)
		}
	}
	if _, err := truthy(StrVal("maybe")); err == nil {
		t.Fatal("non-boolean string must fail")
	}
}

func TestDisplayString(t *testing.T) {
	if s := displayString(DblVal(2.5)); s != "2.5" {
		t.Fatalf("got %q", s)
	}
	if s := displayString(BoolVal(false)); s != "False" {
		t.Fatalf("got %q", s)
	}
	if s := displayString(Nothing); s != "" {
		t.Fatalf("got %q", s)
	}
	a := NewArray([]int{2})
	a.Elems[0] = IntVal(1)
	a.Elems[1] = StrVal("x")
	if s := displayString(ArrVal(a)); s != "{1, x}" {
		t.Fatalf("got %q", s)
	}
}

func TestOADateRoundTrip(t *testing.T) {
	want := time.Date(2001, 7, 4, 10, 30, 0, 0, time.UTC)
	serial := timeToOADate(want)
	got := oaDateToTime(serial)
	if !got.Equal(want) {
		t.Fatalf("round trip: %v != %v", got, want)
	}
	// day zero of the serial format
	if d := timeToOADate(time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)); d != 0 {
		t.Fatalf("epoch serial = %g", d)
	}
}

func TestFormatOADate(t *testing.T) {
	noon := timeToOADate(time.Date(2001, 7, 4, 0, 0, 0, 0, time.UTC))
	if s := formatOADate(noon); s != "07/04/2001" {
		t.Fatalf("date-only: %q", s)
	}
	timeOnly := 0.5 // 12:00:00
	if s := formatOADate(timeOnly); s != "12:00:00 PM" {
		t.Fatalf("time-only: %q", s)
	}
}

func TestCompareValuesStringsFoldCase(t *testing.T) {
	cmp, err := compareValues(StrVal("Apple"), StrVal("apple"))
	if err != nil || cmp != 0 {
		t.Fatalf("cmp=%d err=%v", cmp, err)
	}
	cmp, err = compareValues(StrVal("a"), StrVal("B"))
	if err != nil || cmp >= 0 {
		t.Fatalf("cmp=%d err=%v", cmp, err)
	}
}
