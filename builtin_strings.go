package basil

import (
	"fmt"
	"strings"
)

// String builtins use 1-based positions throughout, matching the dialect.
// Positions and lengths are clamped rather than rejected wherever the
// classic functions clamp.

func registerStringBuiltins(ip *Interpreter) {
	ip.RegisterNative("Len", 1, 1, func(c *CallCtx) (Value, error) {
		return IntVal(int64(len(c.Str(0)))), nil
	})

	ip.RegisterNative("Left", 2, 2, func(c *CallCtx) (Value, error) {
		s := c.Str(0)
		n, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		if n < 0 {
			return Nothing, fmt.Errorf("Argument 'Length' must be greater or equal to zero")
		}
		if int(n) > len(s) {
			n = int64(len(s))
		}
		return StrVal(s[:n]), nil
	})

	ip.RegisterNative("Right", 2, 2, func(c *CallCtx) (Value, error) {
		s := c.Str(0)
		n, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		if n < 0 {
			return Nothing, fmt.Errorf("Argument 'Length' must be greater or equal to zero")
		}
		if int(n) > len(s) {
			n = int64(len(s))
		}
		return StrVal(s[len(s)-int(n):]), nil
	})

	// Mid(s, start [, length]); start is 1-based, missing length means the
	// rest of the string.
	ip.RegisterNative("Mid", 2, 3, func(c *CallCtx) (Value, error) {
		s := c.Str(0)
		start, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		if start < 1 {
			return Nothing, fmt.Errorf("Argument 'Start' must be greater than zero")
		}
		if int(start) > len(s) {
			return StrVal(""), nil
		}
		rest := s[start-1:]
		if len(c.Args) < 3 {
			return StrVal(rest), nil
		}
		n, err := c.Int(2)
		if err != nil {
			return Nothing, err
		}
		if n < 0 {
			return Nothing, fmt.Errorf("Argument 'Length' must be greater or equal to zero")
		}
		if int(n) > len(rest) {
			n = int64(len(rest))
		}
		return StrVal(rest[:n]), nil
	})

	ip.RegisterNative("UCase", 1, 1, func(c *CallCtx) (Value, error) {
		return StrVal(strings.ToUpper(c.Str(0))), nil
	})
	ip.RegisterNative("LCase", 1, 1, func(c *CallCtx) (Value, error) {
		return StrVal(strings.ToLower(c.Str(0))), nil
	})
	ip.RegisterNative("Trim", 1, 1, func(c *CallCtx) (Value, error) {
		return StrVal(strings.TrimSpace(c.Str(0))), nil
	})
	ip.RegisterNative("LTrim", 1, 1, func(c *CallCtx) (Value, error) {
		return StrVal(strings.TrimLeft(c.Str(0), " \t\r\n")), nil
	})
	ip.RegisterNative("RTrim", 1, 1, func(c *CallCtx) (Value, error) {
		return StrVal(strings.TrimRight(c.Str(0), " \t\r\n")), nil
	})

	// InStr([start,] haystack, needle) returns a 1-based position, 0 when
	// absent. The search is case-insensitive like the = operator.
	ip.RegisterNative("InStr", 2, 3, func(c *CallCtx) (Value, error) {
		start := int64(1)
		hayIdx := 0
		if len(c.Args) == 3 {
			var err error
			start, err = c.Int(0)
			if err != nil {
				return Nothing, err
			}
			if start < 1 {
				return Nothing, fmt.Errorf("Argument 'Start' must be greater than zero")
			}
			hayIdx = 1
		}
		hay := c.Str(hayIdx)
		needle := c.Str(hayIdx + 1)
		if int(start) > len(hay) {
			return IntVal(0), nil
		}
		pos := strings.Index(strings.ToLower(hay[start-1:]), strings.ToLower(needle))
		if pos < 0 {
			return IntVal(0), nil
		}
		return IntVal(start + int64(pos)), nil
	})

	ip.RegisterNative("InStrRev", 2, 2, func(c *CallCtx) (Value, error) {
		hay := c.Str(0)
		needle := c.Str(1)
		pos := strings.LastIndex(strings.ToLower(hay), strings.ToLower(needle))
		return IntVal(int64(pos + 1)), nil
	})

	ip.RegisterNative("Replace", 3, 3, func(c *CallCtx) (Value, error) {
		return StrVal(replaceFold(c.Str(0), c.Str(1), c.Str(2))), nil
	})

	// Split(s [, sep]); the default separator is a single space. An empty
	// source yields a one-element array holding "".
	ip.RegisterNative("Split", 1, 2, func(c *CallCtx) (Value, error) {
		s := c.Str(0)
		sep := " "
		if len(c.Args) == 2 {
			sep = c.Str(1)
		}
		var parts []string
		if sep == "" {
			parts = []string{s}
		} else {
			parts = strings.Split(s, sep)
		}
		arr := NewArray([]int{len(parts)})
		for i, p := range parts {
			arr.Elems[i] = StrVal(p)
		}
		return ArrVal(arr), nil
	})

	ip.RegisterNative("Join", 1, 2, func(c *CallCtx) (Value, error) {
		items, err := iterableItems(c.Arg(0))
		if err != nil {
			return Nothing, err
		}
		sep := " "
		if len(c.Args) == 2 {
			sep = c.Str(1)
		}
		parts := make([]string, len(items))
		for i, v := range items {
			parts[i] = displayString(v)
		}
		return StrVal(strings.Join(parts, sep)), nil
	})

	ip.RegisterNative("StrReverse", 1, 1, func(c *CallCtx) (Value, error) {
		runes := []rune(c.Str(0))
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return StrVal(string(runes)), nil
	})

	ip.RegisterNative("Space", 1, 1, func(c *CallCtx) (Value, error) {
		n, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		if n < 0 {
			return Nothing, fmt.Errorf("Argument 'Number' must be greater or equal to zero")
		}
		return StrVal(strings.Repeat(" ", int(n))), nil
	})

	// StrDup(n, ch) repeats the first character of ch n times.
	ip.RegisterNative("StrDup", 2, 2, func(c *CallCtx) (Value, error) {
		n, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		if n < 0 {
			return Nothing, fmt.Errorf("Argument 'Number' must be greater or equal to zero")
		}
		ch := []rune(c.Str(1))
		if len(ch) == 0 {
			return Nothing, fmt.Errorf("Argument 'Character' cannot be empty")
		}
		return StrVal(strings.Repeat(string(ch[0]), int(n))), nil
	})

	chr := func(c *CallCtx) (Value, error) {
		n, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		return StrVal(string(rune(n))), nil
	}
	ip.RegisterNative("Chr", 1, 1, chr)
	ip.RegisterNative("ChrW", 1, 1, chr)

	asc := func(c *CallCtx) (Value, error) {
		s := []rune(c.Str(0))
		if len(s) == 0 {
			return Nothing, fmt.Errorf("Argument 'String' cannot be empty")
		}
		return IntVal(int64(s[0])), nil
	}
	ip.RegisterNative("Asc", 1, 1, asc)
	ip.RegisterNative("AscW", 1, 1, asc)

	// StrComp compares case-insensitively, matching the relational operators.
	ip.RegisterNative("StrComp", 2, 2, func(c *CallCtx) (Value, error) {
		cmp := strings.Compare(strings.ToLower(c.Str(0)), strings.ToLower(c.Str(1)))
		return IntVal(int64(cmp)), nil
	})

	// Filter(arr, match [, include]) keeps the elements whose display string
	// contains match, case-insensitively. include=False inverts the test.
	ip.RegisterNative("Filter", 2, 3, func(c *CallCtx) (Value, error) {
		items, err := iterableItems(c.Arg(0))
		if err != nil {
			return Nothing, err
		}
		match := strings.ToLower(c.Str(1))
		include := true
		if len(c.Args) == 3 {
			include, err = truthy(c.Arg(2))
			if err != nil {
				return Nothing, err
			}
		}
		var out []string
		for _, v := range items {
			s := displayString(v)
			if strings.Contains(strings.ToLower(s), match) == include {
				out = append(out, s)
			}
		}
		arr := NewArray([]int{len(out)})
		for i, s := range out {
			arr.Elems[i] = StrVal(s)
		}
		return ArrVal(arr), nil
	})

	// LSet left-aligns into a fixed width, RSet right-aligns; both truncate
	// when the value is wider than the field.
	ip.RegisterNative("LSet", 2, 2, func(c *CallCtx) (Value, error) {
		s := c.Str(0)
		n, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		if n < 0 {
			return Nothing, fmt.Errorf("Argument 'Length' must be greater or equal to zero")
		}
		if int(n) <= len(s) {
			return StrVal(s[:n]), nil
		}
		return StrVal(s + strings.Repeat(" ", int(n)-len(s))), nil
	})
	ip.RegisterNative("RSet", 2, 2, func(c *CallCtx) (Value, error) {
		s := c.Str(0)
		n, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		if n < 0 {
			return Nothing, fmt.Errorf("Argument 'Length' must be greater or equal to zero")
		}
		if int(n) <= len(s) {
			return StrVal(s[:n]), nil
		}
		return StrVal(strings.Repeat(" ", int(n)-len(s)) + s), nil
	})

	ip.RegisterNative("StartsWith", 2, 2, func(c *CallCtx) (Value, error) {
		return BoolVal(strings.HasPrefix(strings.ToLower(c.Str(0)), strings.ToLower(c.Str(1)))), nil
	})
	ip.RegisterNative("EndsWith", 2, 2, func(c *CallCtx) (Value, error) {
		return BoolVal(strings.HasSuffix(strings.ToLower(c.Str(0)), strings.ToLower(c.Str(1)))), nil
	})

	registerStringMethods(ip)
}

// replaceFold is a case-insensitive replace that preserves the casing of
// unmatched text.
func replaceFold(s, old, repl string) string {
	if old == "" {
		return s
	}
	var b strings.Builder
	lower := strings.ToLower(s)
	lowerOld := strings.ToLower(old)
	for {
		i := strings.Index(lower, lowerOld)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(repl)
		s = s[i+len(old):]
		lower = lower[i+len(old):]
	}
}

// registerStringMethods gives string values a member surface so dotted calls
// like s.ToUpper() and s.Length work alongside the function forms.
func registerStringMethods(ip *Interpreter) {
	ip.RegisterProp("String", "Length", func(c *CallCtx) (Value, error) {
		return IntVal(int64(len(displayString(c.Recv)))), nil
	})
	ip.RegisterMethod("String", "ToUpper", func(c *CallCtx) (Value, error) {
		return StrVal(strings.ToUpper(displayString(c.Recv))), nil
	})
	ip.RegisterMethod("String", "ToLower", func(c *CallCtx) (Value, error) {
		return StrVal(strings.ToLower(displayString(c.Recv))), nil
	})
	ip.RegisterMethod("String", "Trim", func(c *CallCtx) (Value, error) {
		return StrVal(strings.TrimSpace(displayString(c.Recv))), nil
	})
	ip.RegisterMethod("String", "Contains", func(c *CallCtx) (Value, error) {
		return BoolVal(strings.Contains(strings.ToLower(displayString(c.Recv)), strings.ToLower(c.Str(0)))), nil
	})
	ip.RegisterMethod("String", "StartsWith", func(c *CallCtx) (Value, error) {
		return BoolVal(strings.HasPrefix(strings.ToLower(displayString(c.Recv)), strings.ToLower(c.Str(0)))), nil
	})
	ip.RegisterMethod("String", "EndsWith", func(c *CallCtx) (Value, error) {
		return BoolVal(strings.HasSuffix(strings.ToLower(displayString(c.Recv)), strings.ToLower(c.Str(0)))), nil
	})
	ip.RegisterMethod("String", "IndexOf", func(c *CallCtx) (Value, error) {
		return IntVal(int64(strings.Index(strings.ToLower(displayString(c.Recv)), strings.ToLower(c.Str(0))))), nil
	})
	ip.RegisterMethod("String", "Replace", func(c *CallCtx) (Value, error) {
		return StrVal(replaceFold(displayString(c.Recv), c.Str(0), c.Str(1))), nil
	})
	ip.RegisterMethod("String", "Substring", func(c *CallCtx) (Value, error) {
		s := displayString(c.Recv)
		start, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		if start < 0 || int(start) > len(s) {
			return Nothing, fmt.Errorf("Index out of range: %d", start)
		}
		rest := s[start:]
		if len(c.Args) < 2 {
			return StrVal(rest), nil
		}
		n, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		if n < 0 || int(n) > len(rest) {
			return Nothing, fmt.Errorf("Index out of range: %d", n)
		}
		return StrVal(rest[:n]), nil
	})
	ip.RegisterMethod("String", "Split", func(c *CallCtx) (Value, error) {
		parts := strings.Split(displayString(c.Recv), c.Str(0))
		arr := NewArray([]int{len(parts)})
		for i, p := range parts {
			arr.Elems[i] = StrVal(p)
		}
		return ArrVal(arr), nil
	})
	ip.RegisterMethod("String", "ToString", func(c *CallCtx) (Value, error) {
		return c.Recv, nil
	})
}
