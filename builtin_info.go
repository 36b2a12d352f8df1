package basil

import (
	"fmt"
	"strconv"
	"strings"
)

// Introspection builtins: type queries, array bounds and the Array
// constructor.

func registerInfoBuiltins(ip *Interpreter) {
	ip.RegisterNative("TypeName", 1, 1, func(c *CallCtx) (Value, error) {
		return StrVal(TypeNameOf(c.Arg(0))), nil
	})

	// VarType reports the classic variant type codes.
	ip.RegisterNative("VarType", 1, 1, func(c *CallCtx) (Value, error) {
		var code int64
		switch c.Arg(0).Kind {
		case KindNothing:
			code = 0 // vbEmpty
		case KindInteger:
			code = 2
		case KindLong:
			code = 3
		case KindDouble:
			code = 5
		case KindDate:
			code = 7
		case KindString:
			code = 8
		case KindObject, KindCallable:
			code = 9
		case KindBoolean:
			code = 11
		case KindArray:
			code = 8204 // vbArray + vbVariant
		}
		return IntVal(code), nil
	})

	ip.RegisterNative("IsNumeric", 1, 1, func(c *CallCtx) (Value, error) {
		v := c.Arg(0)
		if v.isNumeric() {
			return BoolVal(true), nil
		}
		if v.Kind == KindString {
			_, err := strconv.ParseFloat(strings.TrimSpace(v.Data.(string)), 64)
			return BoolVal(err == nil), nil
		}
		return BoolVal(false), nil
	})
	ip.RegisterNative("IsArray", 1, 1, func(c *CallCtx) (Value, error) {
		return BoolVal(c.Arg(0).Kind == KindArray), nil
	})
	ip.RegisterNative("IsNothing", 1, 1, func(c *CallCtx) (Value, error) {
		return BoolVal(c.Arg(0).Kind == KindNothing), nil
	})
	ip.RegisterNative("IsEmpty", 1, 1, func(c *CallCtx) (Value, error) {
		return BoolVal(c.Arg(0).Kind == KindNothing), nil
	})
	ip.RegisterNative("IsDBNull", 1, 1, func(c *CallCtx) (Value, error) {
		return BoolVal(c.Arg(0).Kind == KindNothing), nil
	})
	ip.RegisterNative("IsDate", 1, 1, func(c *CallCtx) (Value, error) {
		if c.Arg(0).Kind == KindDate {
			return BoolVal(true), nil
		}
		if c.Arg(0).Kind == KindString {
			_, err := toDate(c.Arg(0))
			return BoolVal(err == nil), nil
		}
		return BoolVal(false), nil
	})

	// UBound(arr [, dimension]) returns the upper bound; dimensions are
	// 1-based. Every array is 0-based so LBound is always 0.
	ip.RegisterNative("UBound", 1, 2, func(c *CallCtx) (Value, error) {
		a, err := argArray(c, 0)
		if err != nil {
			return Nothing, err
		}
		dim := int64(1)
		if len(c.Args) == 2 {
			dim, err = c.Int(1)
			if err != nil {
				return Nothing, err
			}
		}
		if dim < 1 || int(dim) > len(a.Dims) {
			return Nothing, fmt.Errorf("Argument 'Rank' is not valid: %d", dim)
		}
		return IntVal(int64(a.Dims[dim-1] - 1)), nil
	})
	ip.RegisterNative("LBound", 1, 2, func(c *CallCtx) (Value, error) {
		a, err := argArray(c, 0)
		if err != nil {
			return Nothing, err
		}
		dim := int64(1)
		if len(c.Args) == 2 {
			dim, err = c.Int(1)
			if err != nil {
				return Nothing, err
			}
		}
		if dim < 1 || int(dim) > len(a.Dims) {
			return Nothing, fmt.Errorf("Argument 'Rank' is not valid: %d", dim)
		}
		return IntVal(0), nil
	})

	ip.RegisterNative("Array", 0, -1, func(c *CallCtx) (Value, error) {
		a := NewArray([]int{len(c.Args)})
		copy(a.Elems, c.Args)
		return ArrVal(a), nil
	})
}

func argArray(c *CallCtx, i int) (*Array, error) {
	v := c.Arg(i)
	if v.Kind != KindArray {
		return nil, fmt.Errorf("'%s' expects an array, got %s", c.Name, TypeNameOf(v))
	}
	return v.Data.(*Array), nil
}
