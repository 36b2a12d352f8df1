package basil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Conversion builtins. The C* family narrows with banker's rounding and
// raises OverflowException when the target range cannot hold the value.

func overflowError() error {
	return &RaisedError{
		Number:   6,
		TypeName: "OverflowException",
		Message:  "Arithmetic operation resulted in an overflow.",
	}
}

func toRangedInt(v Value, lo, hi int64) (int64, error) {
	n, err := asLong(v)
	if err != nil {
		return 0, err
	}
	if v.Kind == KindDouble || v.Kind == KindDate {
		f := v.Data.(float64)
		if f < float64(lo)-0.5 || f > float64(hi)+0.5 {
			return 0, overflowError()
		}
	}
	if n < lo || n > hi {
		return 0, overflowError()
	}
	return n, nil
}

func registerConvBuiltins(ip *Interpreter) {
	ip.RegisterNative("CInt", 1, 1, func(c *CallCtx) (Value, error) {
		n, err := toRangedInt(c.Arg(0), math.MinInt32, math.MaxInt32)
		if err != nil {
			return Nothing, err
		}
		return IntVal(n), nil
	})
	ip.RegisterNative("CShort", 1, 1, func(c *CallCtx) (Value, error) {
		n, err := toRangedInt(c.Arg(0), math.MinInt16, math.MaxInt16)
		if err != nil {
			return Nothing, err
		}
		return IntVal(n), nil
	})
	ip.RegisterNative("CByte", 1, 1, func(c *CallCtx) (Value, error) {
		n, err := toRangedInt(c.Arg(0), 0, 255)
		if err != nil {
			return Nothing, err
		}
		return IntVal(n), nil
	})
	ip.RegisterNative("CLng", 1, 1, func(c *CallCtx) (Value, error) {
		n, err := asLong(c.Arg(0))
		if err != nil {
			return Nothing, err
		}
		return LngVal(n), nil
	})
	ip.RegisterNative("CDbl", 1, 1, func(c *CallCtx) (Value, error) {
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		return DblVal(f), nil
	})
	ip.RegisterNative("CSng", 1, 1, func(c *CallCtx) (Value, error) {
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		return DblVal(float64(float32(f))), nil
	})
	ip.RegisterNative("CDec", 1, 1, func(c *CallCtx) (Value, error) {
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		return DblVal(f), nil
	})
	ip.RegisterNative("CStr", 1, 1, func(c *CallCtx) (Value, error) {
		return StrVal(c.Str(0)), nil
	})
	ip.RegisterNative("CBool", 1, 1, func(c *CallCtx) (Value, error) {
		b, err := truthy(c.Arg(0))
		if err != nil {
			return Nothing, err
		}
		return BoolVal(b), nil
	})
	ip.RegisterNative("CDate", 1, 1, func(c *CallCtx) (Value, error) {
		return toDate(c.Arg(0))
	})

	// Val parses the longest numeric prefix; no prefix yields 0.
	ip.RegisterNative("Val", 1, 1, func(c *CallCtx) (Value, error) {
		s := strings.TrimSpace(c.Str(0))
		end := 0
		seenDot := false
		for end < len(s) {
			ch := s[end]
			switch {
			case ch >= '0' && ch <= '9':
			case ch == '.' && !seenDot:
				seenDot = true
			case (ch == '+' || ch == '-') && end == 0:
			default:
				goto parse
			}
			end++
		}
	parse:
		if end == 0 || (end == 1 && (s[0] == '+' || s[0] == '-')) {
			return DblVal(0), nil
		}
		f, err := strconv.ParseFloat(s[:end], 64)
		if err != nil {
			return DblVal(0), nil
		}
		return DblVal(f), nil
	})

	// Str renders a number with a leading space for non-negatives.
	ip.RegisterNative("Str", 1, 1, func(c *CallCtx) (Value, error) {
		f, err := c.Float(0)
		if err != nil {
			return Nothing, err
		}
		s := displayString(c.Arg(0))
		if f >= 0 {
			s = " " + s
		}
		return StrVal(s), nil
	})

	ip.RegisterNative("Hex", 1, 1, func(c *CallCtx) (Value, error) {
		n, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		return StrVal(strings.ToUpper(strconv.FormatUint(uint64(n), 16))), nil
	})
	ip.RegisterNative("Oct", 1, 1, func(c *CallCtx) (Value, error) {
		n, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		return StrVal(strconv.FormatUint(uint64(n), 8)), nil
	})

	ip.RegisterNative("CObj", 1, 1, func(c *CallCtx) (Value, error) {
		return c.Arg(0), nil
	})

	ip.RegisterNative("Format", 1, 2, func(c *CallCtx) (Value, error) {
		if len(c.Args) == 1 {
			return StrVal(displayString(c.Arg(0))), nil
		}
		return StrVal(formatValue(c.Arg(0), c.Str(1))), nil
	})

	fixedDigits := func(c *CallCtx) (float64, int, error) {
		f, err := c.Float(0)
		if err != nil {
			return 0, 0, err
		}
		digits := 2
		if len(c.Args) == 2 {
			n, err := c.Int(1)
			if err != nil {
				return 0, 0, err
			}
			if n < 0 {
				return 0, 0, fmt.Errorf("Argument 'NumDigitsAfterDecimal' must be greater or equal to zero")
			}
			digits = int(n)
		}
		return f, digits, nil
	}
	ip.RegisterNative("FormatNumber", 1, 2, func(c *CallCtx) (Value, error) {
		f, digits, err := fixedDigits(c)
		if err != nil {
			return Nothing, err
		}
		return StrVal(groupDigits(strconv.FormatFloat(f, 'f', digits, 64))), nil
	})
	ip.RegisterNative("FormatCurrency", 1, 2, func(c *CallCtx) (Value, error) {
		f, digits, err := fixedDigits(c)
		if err != nil {
			return Nothing, err
		}
		return StrVal("$" + groupDigits(strconv.FormatFloat(f, 'f', digits, 64))), nil
	})
	ip.RegisterNative("FormatPercent", 1, 2, func(c *CallCtx) (Value, error) {
		f, digits, err := fixedDigits(c)
		if err != nil {
			return Nothing, err
		}
		return StrVal(groupDigits(strconv.FormatFloat(f*100, 'f', digits, 64)) + "%"), nil
	})
}

// toDate converts strings and serial numbers to a Date value.
func toDate(v Value) (Value, error) {
	switch v.Kind {
	case KindDate:
		return v, nil
	case KindInteger, KindLong, KindDouble:
		f, _ := asDouble(v)
		return DateVal(f), nil
	case KindString:
		s := strings.TrimSpace(v.Data.(string))
		for _, layout := range []string{
			"01/02/2006 3:04:05 PM",
			"01/02/2006 15:04:05",
			"01/02/2006",
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
			"2006-01-02",
			"3:04:05 PM",
			"15:04:05",
			"15:04",
		} {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return DateVal(timeToOADate(t)), nil
			}
		}
		return Nothing, fmt.Errorf("conversion from string \"%s\" to type 'Date' is not valid", s)
	}
	return Nothing, fmt.Errorf("cannot convert %s to Date", TypeNameOf(v))
}

// formatValue applies a .NET-style format specifier. Dates take custom
// layouts (yyyy, MM, dd, HH, hh, mm, ss, tt); numbers take standard
// specifiers (C, D, E, F, G, N, P, X) and custom 0/#/, patterns.
func formatValue(v Value, format string) string {
	if format == "" {
		return displayString(v)
	}
	if v.Kind == KindDate {
		return formatDate(oaDateToTime(v.Data.(float64)), format)
	}
	if !v.isNumeric() {
		return displayString(v)
	}
	f, err := asDouble(v)
	if err != nil {
		return displayString(v)
	}

	if spec, digits, ok := standardSpecifier(format); ok {
		switch spec {
		case 'C':
			return "$" + groupDigits(strconv.FormatFloat(f, 'f', digitsOr(digits, 2), 64))
		case 'D':
			s := strconv.FormatInt(int64(math.RoundToEven(f)), 10)
			neg := strings.HasPrefix(s, "-")
			s = strings.TrimPrefix(s, "-")
			for len(s) < digitsOr(digits, 1) {
				s = "0" + s
			}
			if neg {
				s = "-" + s
			}
			return s
		case 'E':
			return strings.ToUpper(strconv.FormatFloat(f, 'e', digitsOr(digits, 6), 64))
		case 'F':
			return strconv.FormatFloat(f, 'f', digitsOr(digits, 2), 64)
		case 'G':
			return strconv.FormatFloat(f, 'G', -1, 64)
		case 'N':
			return groupDigits(strconv.FormatFloat(f, 'f', digitsOr(digits, 2), 64))
		case 'P':
			return groupDigits(strconv.FormatFloat(f*100, 'f', digitsOr(digits, 2), 64)) + " %"
		case 'X':
			s := strings.ToUpper(strconv.FormatUint(uint64(int64(math.RoundToEven(f))), 16))
			for len(s) < digitsOr(digits, 1) {
				s = "0" + s
			}
			return s
		}
	}
	return customNumberFormat(f, format)
}

// standardSpecifier splits "N2" into ('N', 2). The digit count is -1 when
// absent.
func standardSpecifier(format string) (byte, int, bool) {
	if len(format) == 0 {
		return 0, 0, false
	}
	spec := format[0] &^ 0x20 // upper-case the letter
	switch spec {
	case 'C', 'D', 'E', 'F', 'G', 'N', 'P', 'X':
	default:
		return 0, 0, false
	}
	if len(format) == 1 {
		return spec, -1, true
	}
	n, err := strconv.Atoi(format[1:])
	if err != nil {
		return 0, 0, false
	}
	return spec, n, true
}

func digitsOr(n, dflt int) int {
	if n < 0 {
		return dflt
	}
	return n
}

// groupDigits inserts thousands separators into the integer part.
func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

// customNumberFormat handles 0/#/./, picture patterns like "#,##0.00".
func customNumberFormat(f float64, pattern string) string {
	decimals := 0
	if i := strings.IndexByte(pattern, '.'); i >= 0 {
		for _, ch := range pattern[i+1:] {
			if ch == '0' || ch == '#' {
				decimals++
			}
		}
	}
	grouped := strings.Contains(pattern, ",")
	s := strconv.FormatFloat(f, 'f', decimals, 64)
	// trim trailing digits that correspond to '#' placeholders
	if decimals > 0 {
		min := 0
		if i := strings.IndexByte(pattern, '.'); i >= 0 {
			for _, ch := range pattern[i+1:] {
				if ch == '0' {
					min++
				}
			}
		}
		for strings.Contains(s, ".") && decimals > min && strings.HasSuffix(s, "0") {
			s = s[:len(s)-1]
			decimals--
		}
		s = strings.TrimSuffix(s, ".")
	}
	if grouped {
		s = groupDigits(s)
	}
	return s
}

// formatDate expands the custom date placeholders longest-first.
func formatDate(t time.Time, pattern string) string {
	repl := strings.NewReplacer(
		"yyyy", t.Format("2006"),
		"yy", t.Format("06"),
		"MMMM", t.Format("January"),
		"MMM", t.Format("Jan"),
		"MM", t.Format("01"),
		"dddd", t.Format("Monday"),
		"ddd", t.Format("Mon"),
		"dd", t.Format("02"),
		"HH", t.Format("15"),
		"hh", t.Format("03"),
		"mm", t.Format("04"),
		"ss", t.Format("05"),
		"tt", t.Format("PM"),
	)
	return repl.Replace(pattern)
}
