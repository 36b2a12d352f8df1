package basil

import "testing"

func TestLeftRightMid(t *testing.T) {
	wantStr(t, evalSrc(t, `Left("hello", 2)`), "he")
	wantStr(t, evalSrc(t, `Right("hello", 3)`), "llo")
	wantStr(t, evalSrc(t, `Mid("hello", 2)`), "ello")
	wantStr(t, evalSrc(t, `Mid("hello", 2, 3)`), "ell")
	// length clamps past the end
	wantStr(t, evalSrc(t, `Left("hi", 10)`), "hi")
	wantStr(t, evalSrc(t, `Mid("hi", 5)`), "")
	wantErrContains(t, evalErr(t, `Left("hi", -1)`), "greater or equal to zero")
	wantErrContains(t, evalErr(t, `Mid("hi", 0)`), "greater than zero")
}

func TestCaseAndTrim(t *testing.T) {
	wantStr(t, evalSrc(t, `UCase("aBc")`), "ABC")
	wantStr(t, evalSrc(t, `LCase("AbC")`), "abc")
	wantStr(t, evalSrc(t, `Trim("  x  ")`), "x")
	wantStr(t, evalSrc(t, `LTrim("  x  ")`), "x  ")
	wantStr(t, evalSrc(t, `RTrim("  x  ")`), "  x")
}

func TestInStrFoldsCase(t *testing.T) {
	wantInt(t, evalSrc(t, `InStr("Hello World", "WORLD")`), 7)
	wantInt(t, evalSrc(t, `InStr("abcabc", "c")`), 3)
	wantInt(t, evalSrc(t, `InStr(4, "abcabc", "c")`), 6)
	wantInt(t, evalSrc(t, `InStr("abc", "z")`), 0)
	wantInt(t, evalSrc(t, `InStrRev("abcabc", "B")`), 5)
}

func TestReplacePreservesUnmatchedCasing(t *testing.T) {
	wantStr(t, evalSrc(t, `Replace("Cats and CATS", "cats", "dogs")`), "dogs and dogs")
	wantStr(t, evalSrc(t, `Replace("aaa", "", "x")`), "aaa")
}

func TestSplitAndJoin(t *testing.T) {
	wantInt(t, evalSrc(t, `UBound(Split("a,b,c", ","))`), 2)
	wantStr(t, evalSrc(t, `Split("a b c")(1)`), "b")
	wantStr(t, evalSrc(t, `Join(Split("a,b", ","), "-")`), "a-b")
	// empty separator keeps the whole string
	wantInt(t, evalSrc(t, `UBound(Split("a,b", ""))`), 0)
}

func TestStrReverseAndDup(t *testing.T) {
	wantStr(t, evalSrc(t, `StrReverse("abc")`), "cba")
	wantStr(t, evalSrc(t, `StrDup(3, "ab")`), "aaa")
	wantStr(t, evalSrc(t, `Space(2) & "x"`), "  x")
}

func TestChrAscRoundTrip(t *testing.T) {
	wantStr(t, evalSrc(t, `Chr(65)`), "A")
	wantInt(t, evalSrc(t, `Asc("A")`), 65)
	wantErrContains(t, evalErr(t, `Asc("")`), "cannot be empty")
}

func TestStrComp(t *testing.T) {
	wantInt(t, evalSrc(t, `StrComp("Apple", "apple")`), 0)
	wantInt(t, evalSrc(t, `StrComp("a", "b")`), -1)
	wantInt(t, evalSrc(t, `StrComp("b", "A")`), 1)
}

func TestFilter(t *testing.T) {
	src := `
Dim names = Array("Anna", "Bert", "HANNAH")
Join(Filter(names, "an"), ",")
`
	wantStr(t, evalSrc(t, src), "Anna,HANNAH")
	src = `Join(Filter(Array("a1", "b2", "a3"), "a", False), ",")`
	wantStr(t, evalSrc(t, src), "b2")
}

func TestLSetRSet(t *testing.T) {
	wantStr(t, evalSrc(t, `LSet("ab", 5) & "|"`), "ab   |")
	wantStr(t, evalSrc(t, `RSet("ab", 5) & "|"`), "   ab|")
	wantStr(t, evalSrc(t, `LSet("abcdef", 3)`), "abc")
}

func TestStringMemberSurface(t *testing.T) {
	src := `
Dim s = "Hello World"
s.ToUpper() & ":" & s.Length & ":" & s.IndexOf("world") & ":" & s.Substring(6, 5)
`
	wantStr(t, evalSrc(t, src), "HELLO WORLD:11:6:World")
}

func TestStringMethodChaining(t *testing.T) {
	wantStr(t, evalSrc(t, `"  Mixed Case  ".Trim().ToLower()`), "mixed case")
	wantBool(t, evalSrc(t, `"hello".StartsWith("HE")`), true)
	wantBool(t, evalSrc(t, `"hello".Contains("LL")`), true)
	wantStr(t, evalSrc(t, `"a,b".Split(",")(0)`), "a")
}
