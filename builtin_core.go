package basil

import (
	"fmt"
	"math"
)

// registerCoreBuiltins installs the Err object, the character constants and
// the selection helpers that do not belong to a category of their own.
func registerCoreBuiltins(ip *Interpreter) {
	core := ip.Core

	core.Define("Err", ObjVal(ip.Err))

	core.DefineConst("vbCrLf", StrVal("\r\n"))
	core.DefineConst("vbCr", StrVal("\r"))
	core.DefineConst("vbLf", StrVal("\n"))
	core.DefineConst("vbNewLine", StrVal("\r\n"))
	core.DefineConst("vbTab", StrVal("\t"))
	core.DefineConst("vbBack", StrVal("\b"))
	core.DefineConst("vbNullChar", StrVal("\x00"))
	core.DefineConst("vbNullString", StrVal(""))
	core.DefineConst("vbFormFeed", StrVal("\f"))
	core.DefineConst("vbVerticalTab", StrVal("\v"))
	core.DefineConst("vbBinaryCompare", IntVal(0))
	core.DefineConst("vbTextCompare", IntVal(1))

	ip.RegisterMethod("ErrObject", "Clear", func(c *CallCtx) (Value, error) {
		ip.Err.clear()
		return Nothing, nil
	})
	ip.RegisterMethod("ErrObject", "Raise", func(c *CallCtx) (Value, error) {
		num, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		re := &RaisedError{Number: int(num), TypeName: "Exception"}
		if len(c.Args) > 1 {
			re.Source = c.Str(1)
		}
		if len(c.Args) > 2 {
			re.Message = c.Str(2)
		} else {
			re.Message = fmt.Sprintf("Application-defined or object-defined error %d", num)
		}
		return Nothing, re
	})

	// IIf evaluates both branches eagerly; the short-circuit form is the
	// If(cond, a, b) operator.
	ip.RegisterNative("IIf", 3, 3, func(c *CallCtx) (Value, error) {
		cond, err := truthy(c.Arg(0))
		if err != nil {
			return Nothing, err
		}
		if cond {
			return c.Arg(1), nil
		}
		return c.Arg(2), nil
	})

	// Choose(index, a, b, ...) is 1-based; out of range yields Nothing.
	ip.RegisterNative("Choose", 2, -1, func(c *CallCtx) (Value, error) {
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		idx := int(math.Trunc(f))
		if idx < 1 || idx >= len(c.Args) {
			return Nothing, nil
		}
		return c.Arg(idx), nil
	})

	// Switch(cond1, val1, cond2, val2, ...) yields the value after the first
	// true condition.
	ip.RegisterNative("Switch", 2, -1, func(c *CallCtx) (Value, error) {
		if len(c.Args)%2 != 0 {
			return Nothing, fmt.Errorf("Switch expects condition/value pairs")
		}
		for i := 0; i < len(c.Args); i += 2 {
			hit, err := truthy(c.Arg(i))
			if err != nil {
				return Nothing, err
			}
			if hit {
				return c.Arg(i + 1), nil
			}
		}
		return Nothing, nil
	})
}
