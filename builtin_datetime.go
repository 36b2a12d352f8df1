package basil

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Date builtins work on serial date values: fractional days since the
// 1899-12-30 epoch. Wall-clock reads use local time.

func registerDateTimeBuiltins(ip *Interpreter) {
	ip.RegisterNative("Now", 0, 0, func(c *CallCtx) (Value, error) {
		t := time.Now()
		local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
		return DateVal(timeToOADate(local)), nil
	})
	ip.RegisterNative("Today", 0, 0, func(c *CallCtx) (Value, error) {
		t := time.Now()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return DateVal(timeToOADate(day)), nil
	})
	ip.RegisterNative("TimeOfDay", 0, 0, func(c *CallCtx) (Value, error) {
		t := time.Now()
		secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
		return DateVal(float64(secs) / 86400.0), nil
	})
	ip.RegisterNative("Timer", 0, 0, func(c *CallCtx) (Value, error) {
		t := time.Now()
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		return DblVal(t.Sub(midnight).Seconds()), nil
	})

	ip.RegisterNative("DateSerial", 3, 3, func(c *CallCtx) (Value, error) {
		y, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		m, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		d, err := c.Int(2)
		if err != nil {
			return Nothing, err
		}
		t := time.Date(int(y), time.Month(m), int(d), 0, 0, 0, 0, time.UTC)
		return DateVal(timeToOADate(t)), nil
	})
	ip.RegisterNative("TimeSerial", 3, 3, func(c *CallCtx) (Value, error) {
		h, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		m, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		s, err := c.Int(2)
		if err != nil {
			return Nothing, err
		}
		secs := h*3600 + m*60 + s
		return DateVal(float64(secs) / 86400.0), nil
	})

	datePart := func(name string, get func(t time.Time) int64) {
		ip.RegisterNative(name, 1, 1, func(c *CallCtx) (Value, error) {
			d, err := toDate(c.Arg(0))
			if err != nil {
				return Nothing, err
			}
			return IntVal(get(oaDateToTime(d.Data.(float64)))), nil
		})
	}
	datePart("Year", func(t time.Time) int64 { return int64(t.Year()) })
	datePart("Month", func(t time.Time) int64 { return int64(t.Month()) })
	datePart("Day", func(t time.Time) int64 { return int64(t.Day()) })
	datePart("Hour", func(t time.Time) int64 { return int64(t.Hour()) })
	datePart("Minute", func(t time.Time) int64 { return int64(t.Minute()) })
	datePart("Second", func(t time.Time) int64 { return int64(t.Second()) })
	// Weekday is 1-based starting on Sunday.
	datePart("Weekday", func(t time.Time) int64 { return int64(t.Weekday()) + 1 })

	ip.RegisterNative("MonthName", 1, 2, func(c *CallCtx) (Value, error) {
		m, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		if m < 1 || m > 12 {
			return Nothing, fmt.Errorf("Argument 'Month' must be between 1 and 12")
		}
		name := time.Month(m).String()
		if len(c.Args) == 2 {
			abbr, err := truthy(c.Arg(1))
			if err != nil {
				return Nothing, err
			}
			if abbr {
				name = name[:3]
			}
		}
		return StrVal(name), nil
	})
	ip.RegisterNative("WeekdayName", 1, 2, func(c *CallCtx) (Value, error) {
		w, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		if w < 1 || w > 7 {
			return Nothing, fmt.Errorf("Argument 'Weekday' must be between 1 and 7")
		}
		name := time.Weekday(w - 1).String()
		if len(c.Args) == 2 {
			abbr, err := truthy(c.Arg(1))
			if err != nil {
				return Nothing, err
			}
			if abbr {
				name = name[:3]
			}
		}
		return StrVal(name), nil
	})

	// DateAdd(interval, number, date)
	ip.RegisterNative("DateAdd", 3, 3, func(c *CallCtx) (Value, error) {
		interval := strings.ToLower(c.Str(0))
		n, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		d, err := toDate(c.Arg(2))
		if err != nil {
			return Nothing, err
		}
		t := oaDateToTime(d.Data.(float64))
		switch interval {
		case "yyyy":
			t = t.AddDate(int(n), 0, 0)
		case "q":
			t = t.AddDate(0, int(n)*3, 0)
		case "m":
			t = t.AddDate(0, int(n), 0)
		case "d", "y", "w":
			t = t.AddDate(0, 0, int(n))
		case "ww":
			t = t.AddDate(0, 0, int(n)*7)
		case "h":
			t = t.Add(time.Duration(n) * time.Hour)
		case "n":
			t = t.Add(time.Duration(n) * time.Minute)
		case "s":
			t = t.Add(time.Duration(n) * time.Second)
		default:
			return Nothing, fmt.Errorf("Argument 'Interval' is not valid: '%s'", c.Str(0))
		}
		return DateVal(timeToOADate(t)), nil
	})

	// DateDiff(interval, date1, date2) counts boundaries crossed for y/m,
	// elapsed units otherwise.
	ip.RegisterNative("DateDiff", 3, 3, func(c *CallCtx) (Value, error) {
		interval := strings.ToLower(c.Str(0))
		d1, err := toDate(c.Arg(1))
		if err != nil {
			return Nothing, err
		}
		d2, err := toDate(c.Arg(2))
		if err != nil {
			return Nothing, err
		}
		t1 := oaDateToTime(d1.Data.(float64))
		t2 := oaDateToTime(d2.Data.(float64))
		switch interval {
		case "yyyy":
			return LngVal(int64(t2.Year() - t1.Year())), nil
		case "q":
			q1 := t1.Year()*4 + (int(t1.Month())-1)/3
			q2 := t2.Year()*4 + (int(t2.Month())-1)/3
			return LngVal(int64(q2 - q1)), nil
		case "m":
			return LngVal(int64((t2.Year()-t1.Year())*12 + int(t2.Month()) - int(t1.Month()))), nil
		case "d", "y":
			days := math.Trunc(d2.Data.(float64)) - math.Trunc(d1.Data.(float64))
			return LngVal(int64(days)), nil
		case "ww", "w":
			return LngVal(int64(t2.Sub(t1).Hours() / 24 / 7)), nil
		case "h":
			return LngVal(int64(t2.Sub(t1).Hours())), nil
		case "n":
			return LngVal(int64(t2.Sub(t1).Minutes())), nil
		case "s":
			return LngVal(int64(t2.Sub(t1).Seconds())), nil
		}
		return Nothing, fmt.Errorf("Argument 'Interval' is not valid: '%s'", c.Str(0))
	})

	// FormatDateTime(date [, style]): 0 general, 1 long date, 2 short date,
	// 3 long time, 4 short time.
	ip.RegisterNative("FormatDateTime", 1, 2, func(c *CallCtx) (Value, error) {
		d, err := toDate(c.Arg(0))
		if err != nil {
			return Nothing, err
		}
		style := int64(0)
		if len(c.Args) == 2 {
			style, err = c.Int(1)
			if err != nil {
				return Nothing, err
			}
		}
		serial := d.Data.(float64)
		t := oaDateToTime(serial)
		switch style {
		case 0:
			return StrVal(formatOADate(serial)), nil
		case 1:
			return StrVal(formatDate(t, "dddd, MMMM dd, yyyy")), nil
		case 2:
			return StrVal(formatDate(t, "MM/dd/yyyy")), nil
		case 3:
			return StrVal(formatDate(t, "hh:mm:ss tt")), nil
		case 4:
			return StrVal(formatDate(t, "HH:mm")), nil
		}
		return Nothing, fmt.Errorf("Argument 'NamedFormat' is not valid: %d", style)
	})

	ip.RegisterNative("DatePart", 2, 2, func(c *CallCtx) (Value, error) {
		interval := strings.ToLower(c.Str(0))
		d, err := toDate(c.Arg(1))
		if err != nil {
			return Nothing, err
		}
		t := oaDateToTime(d.Data.(float64))
		switch interval {
		case "yyyy":
			return IntVal(int64(t.Year())), nil
		case "q":
			return IntVal(int64((int(t.Month())-1)/3 + 1)), nil
		case "m":
			return IntVal(int64(t.Month())), nil
		case "d":
			return IntVal(int64(t.Day())), nil
		case "y":
			return IntVal(int64(t.YearDay())), nil
		case "w":
			return IntVal(int64(t.Weekday()) + 1), nil
		case "ww":
			_, week := t.ISOWeek()
			return IntVal(int64(week)), nil
		case "h":
			return IntVal(int64(t.Hour())), nil
		case "n":
			return IntVal(int64(t.Minute())), nil
		case "s":
			return IntVal(int64(t.Second())), nil
		}
		return Nothing, fmt.Errorf("Argument 'Interval' is not valid: '%s'", c.Str(0))
	})
}
