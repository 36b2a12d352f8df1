package basil

import "testing"

func TestDateSerialParts(t *testing.T) {
	src := `
Dim d = DateSerial(2001, 7, 4)
Year(d) & "-" & Month(d) & "-" & Day(d)
`
	wantStr(t, evalSrc(t, src), "2001-7-4")
	// 2001-07-04 was a Wednesday
	wantInt(t, evalSrc(t, `Weekday(DateSerial(2001, 7, 4))`), 4)
}

func TestTimeSerial(t *testing.T) {
	wantInt(t, evalSrc(t, `Hour(TimeSerial(12, 30, 15))`), 12)
	wantInt(t, evalSrc(t, `Minute(TimeSerial(12, 30, 15))`), 30)
	wantInt(t, evalSrc(t, `Second(TimeSerial(12, 30, 15))`), 15)
}

func TestDateAddIntervals(t *testing.T) {
	wantInt(t, evalSrc(t, `Day(DateAdd("d", 10, DateSerial(2001, 1, 31)))`), 10)
	wantInt(t, evalSrc(t, `Year(DateAdd("yyyy", 2, DateSerial(2001, 7, 4)))`), 2003)
	wantInt(t, evalSrc(t, `Month(DateAdd("m", 1, DateSerial(2001, 3, 15)))`), 4)
	wantInt(t, evalSrc(t, `Hour(DateAdd("h", 3, DateSerial(2001, 1, 1)))`), 3)
	wantErrContains(t, evalErr(t, `DateAdd("z", 1, DateSerial(2001, 1, 1))`), "not valid")
}

func TestDateDiffBoundaries(t *testing.T) {
	wantInt(t, evalSrc(t, `DateDiff("d", DateSerial(2001, 1, 1), DateSerial(2001, 2, 1))`), 31)
	wantInt(t, evalSrc(t, `DateDiff("m", DateSerial(2001, 1, 15), DateSerial(2001, 3, 1))`), 2)
	// crossing a year boundary counts even for adjacent days
	wantInt(t, evalSrc(t, `DateDiff("yyyy", DateSerial(2000, 12, 31), DateSerial(2001, 1, 1))`), 1)
	wantInt(t, evalSrc(t, `DateDiff("h", DateSerial(2001, 1, 1), DateAdd("h", 30, DateSerial(2001, 1, 1)))`), 30)
}

func TestDatePartQuarters(t *testing.T) {
	wantInt(t, evalSrc(t, `DatePart("q", DateSerial(2001, 7, 4))`), 3)
	wantInt(t, evalSrc(t, `DatePart("y", DateSerial(2001, 2, 1))`), 32)
	wantInt(t, evalSrc(t, `DatePart("m", DateSerial(2001, 2, 1))`), 2)
}

func TestMonthAndWeekdayNames(t *testing.T) {
	wantStr(t, evalSrc(t, `MonthName(1)`), "January")
	wantStr(t, evalSrc(t, `MonthName(1, True)`), "Jan")
	wantStr(t, evalSrc(t, `WeekdayName(1)`), "Sunday")
	wantStr(t, evalSrc(t, `WeekdayName(7, True)`), "Sat")
	wantErrContains(t, evalErr(t, `MonthName(13)`), "between 1 and 12")
}

func TestDateLiteralInterop(t *testing.T) {
	wantInt(t, evalSrc(t, `Year(#7/4/2001#)`), 2001)
	wantBool(t, evalSrc(t, `IsDate(#7/4/2001#)`), true)
}

func TestFormatDateTimeStyles(t *testing.T) {
	wantStr(t, evalSrc(t, `FormatDateTime(DateSerial(2001, 7, 4), 2)`), "07/04/2001")
	wantStr(t, evalSrc(t, `FormatDateTime(DateSerial(2001, 7, 4), 1)`), "Wednesday, July 04, 2001")
	wantStr(t, evalSrc(t, `FormatDateTime(TimeSerial(13, 5, 9), 4)`), "13:05")
	wantErrContains(t, evalErr(t, `FormatDateTime(Now(), 9)`), "not valid")
}

func TestNowAndTodayAreDates(t *testing.T) {
	wantBool(t, evalSrc(t, `IsDate(Now())`), true)
	// Today carries no time fraction
	wantInt(t, evalSrc(t, `Hour(Today())`), 0)
}
