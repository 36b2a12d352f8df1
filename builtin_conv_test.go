package basil

import "testing"

func TestCIntBankersRounding(t *testing.T) {
	wantInt(t, evalSrc(t, `CInt(2.5)`), 2)
	wantInt(t, evalSrc(t, `CInt(3.5)`), 4)
	wantInt(t, evalSrc(t, `CInt(-2.5)`), -2)
	wantInt(t, evalSrc(t, `CInt("42")`), 42)
}

func TestNarrowingOverflows(t *testing.T) {
	wantErrContains(t, evalErr(t, `CInt(2147483648)`), "overflow")
	wantErrContains(t, evalErr(t, `CByte(300)`), "overflow")
	wantErrContains(t, evalErr(t, `CByte(-1)`), "overflow")
	wantErrContains(t, evalErr(t, `CShort(40000)`), "overflow")
}

func TestOverflowIsCatchable(t *testing.T) {
	src := `
Dim caught = ""
Try
    Dim b = CByte(999)
Catch ex As OverflowException
    caught = "overflow"
End Try
caught
`
	wantStr(t, evalSrc(t, src), "overflow")
}

func TestValParsesLongestPrefix(t *testing.T) {
	wantNum(t, evalSrc(t, `Val("12.5abc")`), 12.5)
	wantNum(t, evalSrc(t, `Val("abc")`), 0)
	wantNum(t, evalSrc(t, `Val(" -3x")`), -3)
	wantNum(t, evalSrc(t, `Val("")`), 0)
}

func TestStrAndHexOct(t *testing.T) {
	wantStr(t, evalSrc(t, `Str(5)`), " 5")
	wantStr(t, evalSrc(t, `Str(-5)`), "-5")
	wantStr(t, evalSrc(t, `Hex(255)`), "FF")
	wantStr(t, evalSrc(t, `Oct(8)`), "10")
}

func TestCBoolAndCStr(t *testing.T) {
	wantBool(t, evalSrc(t, `CBool("true")`), true)
	wantBool(t, evalSrc(t, `CBool(0)`), false)
	wantStr(t, evalSrc(t, `CStr(2.5)`), "2.5")
	wantStr(t, evalSrc(t, `CStr(True)`), "True")
}

func TestCDateParsesCommonLayouts(t *testing.T) {
	wantInt(t, evalSrc(t, `Year(CDate("07/04/2001"))`), 2001)
	wantInt(t, evalSrc(t, `Month(CDate("2001-07-04"))`), 7)
	wantInt(t, evalSrc(t, `Hour(CDate("07/04/2001 3:30:00 PM"))`), 15)
	wantErrContains(t, evalErr(t, `CDate("not a date")`), "not valid")
}

func TestFormatStandardSpecifiers(t *testing.T) {
	wantStr(t, evalSrc(t, `Format(1234.5, "N2")`), "1,234.50")
	wantStr(t, evalSrc(t, `Format(42, "D5")`), "00042")
	wantStr(t, evalSrc(t, `Format(255, "X")`), "FF")
	wantStr(t, evalSrc(t, `Format(3.14159, "F2")`), "3.14")
	wantStr(t, evalSrc(t, `Format(1234.5, "C")`), "$1,234.50")
}

func TestFormatCustomPatterns(t *testing.T) {
	wantStr(t, evalSrc(t, `Format(1234.5, "#,##0.00")`), "1,234.50")
	wantStr(t, evalSrc(t, `Format(1234.5, "0.0")`), "1234.5")
	wantStr(t, evalSrc(t, `Format(2.5, "0.00##")`), "2.50")
}

func TestFormatDatePatterns(t *testing.T) {
	wantStr(t, evalSrc(t, `Format(CDate("01/02/2003"), "yyyy-MM-dd")`), "2003-01-02")
	wantStr(t, evalSrc(t, `Format(CDate("01/02/2003 1:05:09 PM"), "HH:mm:ss")`), "13:05:09")
	wantStr(t, evalSrc(t, `Format(CDate("07/04/2001"), "MMM dd")`), "Jul 04")
}

func TestFormatNumberFamily(t *testing.T) {
	wantStr(t, evalSrc(t, `FormatNumber(1234.5)`), "1,234.50")
	wantStr(t, evalSrc(t, `FormatNumber(1234.5678, 1)`), "1,234.6")
	wantStr(t, evalSrc(t, `FormatCurrency(9.5)`), "$9.50")
	wantStr(t, evalSrc(t, `FormatPercent(0.25, 0)`), "25%")
}

func TestFormatWithoutSpecifier(t *testing.T) {
	wantStr(t, evalSrc(t, `Format(2.5)`), "2.5")
}
