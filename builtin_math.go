package basil

import (
	"fmt"
	"math"
)

func registerMathBuiltins(ip *Interpreter) {
	// Abs and Sgn keep the operand's numeric kind.
	ip.RegisterNative("Abs", 1, 1, func(c *CallCtx) (Value, error) {
		v := c.Arg(0)
		switch v.Kind {
		case KindInteger, KindLong:
			n := v.Data.(int64)
			if n < 0 {
				n = -n
			}
			return Value{Kind: v.Kind, Data: n}, nil
		}
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		return DblVal(math.Abs(f)), nil
	})

	ip.RegisterNative("Sgn", 1, 1, func(c *CallCtx) (Value, error) {
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		switch {
		case f < 0:
			return IntVal(-1), nil
		case f > 0:
			return IntVal(1), nil
		}
		return IntVal(0), nil
	})

	oneArg := func(name string, fn func(float64) float64) {
		ip.RegisterNative(name, 1, 1, func(c *CallCtx) (Value, error) {
			f, err := c.Float(0)
			if err != nil {
				return Nothing, err
			}
			return DblVal(fn(f)), nil
		})
	}
	oneArg("Sqrt", math.Sqrt)
	oneArg("Sqr", math.Sqrt)
	oneArg("Exp", math.Exp)
	oneArg("Log", math.Log)
	oneArg("Log10", math.Log10)
	oneArg("Sin", math.Sin)
	oneArg("Cos", math.Cos)
	oneArg("Tan", math.Tan)
	oneArg("Asin", math.Asin)
	oneArg("Acos", math.Acos)
	oneArg("Atan", math.Atan)
	oneArg("Atn", math.Atan)
	oneArg("Floor", math.Floor)
	oneArg("Ceiling", math.Ceil)

	// Int floors toward negative infinity, Fix truncates toward zero. Both
	// keep integral operands untouched.
	ip.RegisterNative("Int", 1, 1, func(c *CallCtx) (Value, error) {
		v := c.Arg(0)
		if v.isIntegral() {
			return v, nil
		}
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		return DblVal(math.Floor(f)), nil
	})
	ip.RegisterNative("Fix", 1, 1, func(c *CallCtx) (Value, error) {
		v := c.Arg(0)
		if v.isIntegral() {
			return v, nil
		}
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		return DblVal(math.Trunc(f)), nil
	})

	// Round uses banker's rounding, like CInt/CLng.
	ip.RegisterNative("Round", 1, 2, func(c *CallCtx) (Value, error) {
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		digits := int64(0)
		if len(c.Args) == 2 {
			digits, err = c.Int(1)
			if err != nil {
				return Nothing, err
			}
		}
		if digits == 0 {
			return DblVal(math.RoundToEven(f)), nil
		}
		scale := math.Pow(10, float64(digits))
		return DblVal(math.RoundToEven(f*scale) / scale), nil
	})

	ip.RegisterNative("Pow", 2, 2, func(c *CallCtx) (Value, error) {
		a, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		b, err := c.Float(1)
		if err != nil {
			return Nothing, err
		}
		return DblVal(math.Pow(a, b)), nil
	})

	ip.RegisterNative("Atan2", 2, 2, func(c *CallCtx) (Value, error) {
		y, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		x, err := c.Float(1)
		if err != nil {
			return Nothing, err
		}
		return DblVal(math.Atan2(y, x)), nil
	})

	ip.RegisterNative("Min", 2, -1, func(c *CallCtx) (Value, error) {
		return pickExtreme(c, true)
	})
	ip.RegisterNative("Max", 2, -1, func(c *CallCtx) (Value, error) {
		return pickExtreme(c, false)
	})

	// Rnd yields [0, 1); Randomize(seed) reseeds, no argument reseeds from
	// the clock source already installed.
	ip.RegisterNative("Rnd", 0, 0, func(c *CallCtx) (Value, error) {
		return DblVal(ip.rng.Float64()), nil
	})
	ip.RegisterNative("Randomize", 0, 1, func(c *CallCtx) (Value, error) {
		if len(c.Args) == 1 {
			seed, err := c.Int(0)
			if err != nil {
				return Nothing, err
			}
			ip.reseed(seed)
		}
		return Nothing, nil
	})

	// The Math namespace mirrors the free functions for dotted call sites.
	for _, name := range []string{
		"Abs", "Sgn", "Sqrt", "Exp", "Log", "Log10", "Sin", "Cos", "Tan",
		"Asin", "Acos", "Atan", "Atan2", "Floor", "Ceiling", "Round", "Pow",
		"Min", "Max",
	} {
		if cell, ok := ip.Core.Lookup(name); ok {
			ip.Core.DefineConst("Math."+name, cell.V)
		}
	}
	ip.Core.DefineConst("Math.PI", DblVal(math.Pi))
	ip.Core.DefineConst("Math.E", DblVal(math.E))
}

// pickExtreme folds Min/Max over the argument list, preserving the winning
// value's kind.
func pickExtreme(c *CallCtx, wantMin bool) (Value, error) {
	if len(c.Args) == 0 {
		return Nothing, fmt.Errorf("'%s' expects at least one argument", c.Name)
	}
	best := c.Arg(0)
	for _, v := range c.Args[1:] {
		cmp, err := compareValues(v, best)
		if err != nil {
			return Nothing, err
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best = v
		}
	}
	return best, nil
}
