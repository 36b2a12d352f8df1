package basil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind enumerates all runtime kinds a Value may hold.
type Kind int

const (
	KindNothing Kind = iota
	KindInteger      // int64 payload, Int32 semantics
	KindLong         // int64
	KindDouble       // float64
	KindString       // string
	KindBoolean      // bool
	KindDate         // float64 OLE serial (days since 1899-12-30)
	KindArray        // *Array
	KindObject       // Object (class instance, collection, builtin object)
	KindCallable     // *Closure
)

// Value is the universal runtime carrier. The Kind determines which Go type
// lives in Data. Arrays, objects and callables are reference values: copying
// a Value copies the handle, not the contents.
type Value struct {
	Kind Kind
	Data interface{}
}

// Nothing is the null reference.
var Nothing = Value{Kind: KindNothing}

func IntVal(n int64) Value     { return Value{Kind: KindInteger, Data: n} }
func LngVal(n int64) Value     { return Value{Kind: KindLong, Data: n} }
func DblVal(f float64) Value   { return Value{Kind: KindDouble, Data: f} }
func StrVal(s string) Value    { return Value{Kind: KindString, Data: s} }
func BoolVal(b bool) Value     { return Value{Kind: KindBoolean, Data: b} }
func DateVal(d float64) Value  { return Value{Kind: KindDate, Data: d} }
func ArrVal(a *Array) Value    { return Value{Kind: KindArray, Data: a} }
func ObjVal(o Object) Value    { return Value{Kind: KindObject, Data: o} }
func FuncVal(c *Closure) Value { return Value{Kind: KindCallable, Data: c} }

// Object is anything reachable through a reference Value that the member
// dispatcher can address by type name.
type Object interface {
	TypeName() string
}

func (v Value) isNumeric() bool {
	switch v.Kind {
	case KindInteger, KindLong, KindDouble, KindBoolean, KindDate:
		return true
	}
	return false
}

func (v Value) isIntegral() bool {
	switch v.Kind {
	case KindInteger, KindLong, KindBoolean:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// Array is a dense N-dimensional array, 0-based per dimension, stored
// row-major. Dims holds the length of each dimension.
type Array struct {
	Dims  []int
	Elems []Value
}

// NewArray allocates an array from per-dimension lengths, zero-filled with
// Nothing.
func NewArray(dims []int) *Array {
	total := 1
	for _, d := range dims {
		total *= d
	}
	a := &Array{Dims: dims, Elems: make([]Value, total)}
	for i := range a.Elems {
		a.Elems[i] = Nothing
	}
	return a
}

func (a *Array) offset(idx []int) (int, error) {
	if len(idx) != len(a.Dims) {
		return 0, fmt.Errorf("array expects %d indices, got %d", len(a.Dims), len(idx))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.Dims[i] {
			return 0, fmt.Errorf("index out of range: %d", x)
		}
		off = off*a.Dims[i] + x
	}
	return off, nil
}

func (a *Array) At(idx []int) (Value, error) {
	off, err := a.offset(idx)
	if err != nil {
		return Nothing, err
	}
	return a.Elems[off], nil
}

func (a *Array) Set(idx []int, v Value) error {
	off, err := a.offset(idx)
	if err != nil {
		return err
	}
	a.Elems[off] = v
	return nil
}

// ---------------------------------------------------------------------------
// Numeric coercion (widening: Integer -> Long -> Double)
// ---------------------------------------------------------------------------

// asDouble converts any numeric-ish value to float64. Booleans are -1/0,
// Nothing is 0 and numeric strings parse.
func asDouble(v Value) (float64, error) {
	switch v.Kind {
	case KindInteger, KindLong:
		return float64(v.Data.(int64)), nil
	case KindDouble:
		return v.Data.(float64), nil
	case KindDate:
		return v.Data.(float64), nil
	case KindBoolean:
		if v.Data.(bool) {
			return -1, nil
		}
		return 0, nil
	case KindNothing:
		return 0, nil
	case KindString:
		s := strings.TrimSpace(v.Data.(string))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return 0, fmt.Errorf("conversion from string \"%s\" to type 'Double' is not valid", v.Data.(string))
	}
	return 0, fmt.Errorf("cannot convert %s to a number", TypeNameOf(v))
}

// asLong converts to int64. Doubles narrow with banker's rounding, matching
// CLng.
func asLong(v Value) (int64, error) {
	switch v.Kind {
	case KindInteger, KindLong:
		return v.Data.(int64), nil
	case KindBoolean:
		if v.Data.(bool) {
			return -1, nil
		}
		return 0, nil
	case KindNothing:
		return 0, nil
	}
	f, err := asDouble(v)
	if err != nil {
		return 0, err
	}
	return int64(math.RoundToEven(f)), nil
}

// truthy applies the dialect's boolean coercion.
func truthy(v Value) (bool, error) {
	switch v.Kind {
	case KindBoolean:
		return v.Data.(bool), nil
	case KindInteger, KindLong:
		return v.Data.(int64) != 0, nil
	case KindDouble, KindDate:
		return v.Data.(float64) != 0, nil
	case KindNothing:
		return false, nil
	case KindString:
		s := strings.TrimSpace(v.Data.(string))
		if strings.EqualFold(s, "true") {
			return true, nil
		}
		if strings.EqualFold(s, "false") {
			return false, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0, nil
		}
		return false, fmt.Errorf("conversion from string \"%s\" to type 'Boolean' is not valid", v.Data.(string))
	}
	return false, fmt.Errorf("cannot convert %s to Boolean", TypeNameOf(v))
}

// ---------------------------------------------------------------------------
// Display conversion
// ---------------------------------------------------------------------------

// displayString renders a value the way Print and the & operator see it.
func displayString(v Value) string {
	switch v.Kind {
	case KindNothing:
		return ""
	case KindInteger, KindLong:
		return strconv.FormatInt(v.Data.(int64), 10)
	case KindDouble:
		return formatDouble(v.Data.(float64))
	case KindString:
		return v.Data.(string)
	case KindBoolean:
		if v.Data.(bool) {
			return "True"
		}
		return "False"
	case KindDate:
		return formatOADate(v.Data.(float64))
	case KindArray:
		a := v.Data.(*Array)
		parts := make([]string, len(a.Elems))
		for i, e := range a.Elems {
			parts[i] = displayString(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindObject:
		if ts, ok := v.Data.(interface{ DisplayString() string }); ok {
			return ts.DisplayString()
		}
		return v.Data.(Object).TypeName()
	case KindCallable:
		return "#Function"
	}
	return ""
}

func formatDouble(f float64) string {
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'G', -1, 64)
}

// FormatValue renders a value for REPL echo. Nothing renders empty so Sub
// calls stay silent; strings keep their quotes off, everything else uses the
// display conversion.
func FormatValue(v Value) string {
	if v.Kind == KindNothing {
		return ""
	}
	return displayString(v)
}

// TypeNameOf reports the dialect-level type name of a value.
func TypeNameOf(v Value) string {
	switch v.Kind {
	case KindNothing:
		return "Nothing"
	case KindInteger:
		return "Integer"
	case KindLong:
		return "Long"
	case KindDouble:
		return "Double"
	case KindString:
		return "String"
	case KindBoolean:
		return "Boolean"
	case KindDate:
		return "Date"
	case KindArray:
		return "Array"
	case KindObject:
		return v.Data.(Object).TypeName()
	case KindCallable:
		return "Function"
	}
	return "Object"
}

// ---------------------------------------------------------------------------
// Equality and ordering
// ---------------------------------------------------------------------------

// valuesEqual implements "=" semantics: numeric comparison across numeric
// kinds, case-insensitive string comparison, reference identity for objects.
func valuesEqual(a, b Value) bool {
	if a.Kind == KindString && b.Kind == KindString {
		return strings.EqualFold(a.Data.(string), b.Data.(string))
	}
	if a.isNumeric() && b.isNumeric() {
		fa, _ := asDouble(a)
		fb, _ := asDouble(b)
		return fa == fb
	}
	if a.Kind == KindNothing || b.Kind == KindNothing {
		return a.Kind == b.Kind
	}
	if a.Kind == KindString || b.Kind == KindString {
		// mixed string/number compares numerically when the string parses
		fa, ea := asDouble(a)
		fb, eb := asDouble(b)
		if ea == nil && eb == nil {
			return fa == fb
		}
		return false
	}
	return sameReference(a, b)
}

// compareValues orders two values for <, <=, >, >= and Select Case ranges.
func compareValues(a, b Value) (int, error) {
	if a.Kind == KindString && b.Kind == KindString {
		sa := strings.ToLower(a.Data.(string))
		sb := strings.ToLower(b.Data.(string))
		return strings.Compare(sa, sb), nil
	}
	fa, err := asDouble(a)
	if err != nil {
		return 0, err
	}
	fb, err := asDouble(b)
	if err != nil {
		return 0, err
	}
	switch {
	case fa < fb:
		return -1, nil
	case fa > fb:
		return 1, nil
	}
	return 0, nil
}

// sameReference implements Is / IsNot.
func sameReference(a, b Value) bool {
	if a.Kind == KindNothing && b.Kind == KindNothing {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindArray:
		return a.Data.(*Array) == b.Data.(*Array)
	case KindObject:
		return a.Data == b.Data
	case KindCallable:
		return a.Data.(*Closure) == b.Data.(*Closure)
	}
	return false
}

// ---------------------------------------------------------------------------
// OLE dates
// ---------------------------------------------------------------------------

// oleEpoch is day zero of the serial date format: 1899-12-30 00:00:00.
var oleEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

func timeToOADate(t time.Time) float64 {
	d := t.Sub(oleEpoch)
	return d.Seconds() / 86400.0
}

func oaDateToTime(d float64) time.Time {
	secs := d * 86400.0
	return oleEpoch.Add(time.Duration(math.Round(secs)) * time.Second)
}

// formatOADate renders the default date display: time-only values show the
// time, midnight values show the date, everything else shows both.
func formatOADate(d float64) string {
	t := oaDateToTime(d)
	day := math.Trunc(d)
	frac := d - day
	switch {
	case day == 0 && frac != 0:
		return t.Format("3:04:05 PM")
	case frac == 0:
		return t.Format("01/02/2006")
	default:
		return t.Format("01/02/2006 3:04:05 PM")
	}
}
