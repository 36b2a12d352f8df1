package basil

import (
	"strings"
	"testing"
)

// --- helpers ---------------------------------------------------------------

func evalSrc(t *testing.T, src string) Value {
	t.Helper()
	ip := NewInterpreter()
	v, err := ip.EvalSource(src)
	if err != nil {
		t.Fatalf("EvalSource error: %v\nsource:\n%s", err, src)
	}
	return v
}

func evalErr(t *testing.T, src string) error {
	t.Helper()
	ip := NewInterpreter()
	_, err := ip.EvalSource(src)
	if err == nil {
		t.Fatalf("expected error, got none\nsource:\n%s", src)
	}
	return err
}

func mustEvalPersistent(t *testing.T, ip *Interpreter, src string) Value {
	t.Helper()
	v, err := ip.EvalPersistentSource(src)
	if err != nil {
		t.Fatalf("eval error for %q: %v", src, err)
	}
	return v
}

func wantInt(t *testing.T, v Value, n int64) {
	t.Helper()
	if (v.Kind != KindInteger && v.Kind != KindLong) || v.Data.(int64) != n {
		t.Fatalf("want integer %d, got %#v", n, v)
	}
}

func wantNum(t *testing.T, v Value, f float64) {
	t.Helper()
	got, err := asDouble(v)
	if err != nil {
		t.Fatalf("want number %g, got %#v", f, v)
	}
	if got != f {
		t.Fatalf("want number %g, got %g (%#v)", f, got, v)
	}
}

func wantDouble(t *testing.T, v Value, f float64) {
	t.Helper()
	if v.Kind != KindDouble || v.Data.(float64) != f {
		t.Fatalf("want Double %g, got %#v", f, v)
	}
}

func wantStr(t *testing.T, v Value, s string) {
	t.Helper()
	if v.Kind != KindString || v.Data.(string) != s {
		t.Fatalf("want string %q, got %#v", s, v)
	}
}

func wantBool(t *testing.T, v Value, b bool) {
	t.Helper()
	if v.Kind != KindBoolean || v.Data.(bool) != b {
		t.Fatalf("want %v, got %#v", b, v)
	}
}

func wantErrContains(t *testing.T, err error, substr string) {
	t.Helper()
	if err == nil || !strings.Contains(err.Error(), substr) {
		t.Fatalf("want error containing %q, got %v", substr, err)
	}
}

// --- arithmetic and operators ----------------------------------------------

func TestArithmeticPrecedence(t *testing.T) {
	wantNum(t, evalSrc(t, `2 + 3 ^ 2`), 11)
	wantNum(t, evalSrc(t, `4 * 2 ^ 3`), 32)
	wantNum(t, evalSrc(t, `2 + 3 * 4`), 14)
	wantNum(t, evalSrc(t, `-2 ^ 2`), -4)
	wantNum(t, evalSrc(t, `2 ^ 3 ^ 2`), 512) // right associative
}

func TestIntegerDivisionAndMod(t *testing.T) {
	wantInt(t, evalSrc(t, `7 \ 2`), 3)
	wantInt(t, evalSrc(t, `-7 \ 2`), -3)
	wantInt(t, evalSrc(t, `7 Mod 3`), 1)
	wantInt(t, evalSrc(t, `-7 Mod 3`), -1) // sign follows the dividend
	wantInt(t, evalSrc(t, `7 Mod -3`), 1)
}

func TestTrueDivisionAlwaysDouble(t *testing.T) {
	wantDouble(t, evalSrc(t, `10 / 4`), 2.5)
	wantDouble(t, evalSrc(t, `8 / 2`), 4)

	err := evalErr(t, `Dim x = 1 / 0`)
	wantErrContains(t, err, "divide by zero")
}

func TestIntegerDivisionByZero(t *testing.T) {
	err := evalErr(t, `Dim x = 5 \ 0`)
	wantErrContains(t, err, "divide by zero")
}

func TestBooleanArithmetic(t *testing.T) {
	wantNum(t, evalSrc(t, `True + 1`), 0) // True is -1 in arithmetic
	wantNum(t, evalSrc(t, `False + 1`), 1)
}

func TestLogicalOperators(t *testing.T) {
	wantBool(t, evalSrc(t, `True Or False`), true)
	wantBool(t, evalSrc(t, `True Xor True`), false)
	wantBool(t, evalSrc(t, `True Xor False`), true)
	wantBool(t, evalSrc(t, `Not False`), true)
	wantInt(t, evalSrc(t, `5 And 3`), 1)
	wantInt(t, evalSrc(t, `5 Or 3`), 7)
	wantInt(t, evalSrc(t, `Not 0`), -1)
}

func TestShortCircuit(t *testing.T) {
	// the right operand would fail if evaluated
	src := `
Function Boom() As Integer
    Throw "should not run"
End Function
Dim r = False AndAlso Boom() > 0
r
`
	wantBool(t, evalSrc(t, src), false)
	wantBool(t, evalSrc(t, strings.ReplaceAll(src, "False AndAlso", "True OrElse")), true)
}

func TestStringConcatenation(t *testing.T) {
	wantStr(t, evalSrc(t, `"a" & "b" & 1`), "ab1")
	wantStr(t, evalSrc(t, `"n=" & 2.5`), "n=2.5")
	wantStr(t, evalSrc(t, `"x" + "y"`), "xy")
}

func TestCaseInsensitiveStringEquality(t *testing.T) {
	wantBool(t, evalSrc(t, `"ABC" = "abc"`), true)
	wantBool(t, evalSrc(t, `"abc" < "ABD"`), true)
	wantBool(t, evalSrc(t, `"a" <> "b"`), true)
}

func TestLikeOperator(t *testing.T) {
	wantBool(t, evalSrc(t, `"aBBBa" Like "a*a"`), true)
	wantBool(t, evalSrc(t, `"F" Like "[A-Z]"`), true)
	wantBool(t, evalSrc(t, `"F" Like "[!A-Z]"`), false)
	wantBool(t, evalSrc(t, `"a2a" Like "a#a"`), true)
	wantBool(t, evalSrc(t, `"aM5b" Like "a[L-P]#[!c-e]"`), true)
	wantBool(t, evalSrc(t, `"xy" Like "x?"`), true)
}

func TestShiftOperators(t *testing.T) {
	wantInt(t, evalSrc(t, `1 << 4`), 16)
	wantInt(t, evalSrc(t, `256 >> 4`), 16)
	wantInt(t, evalSrc(t, `1 << 65`), 2) // shift counts mask to the word size
}

func TestIifOperatorIsLazy(t *testing.T) {
	wantInt(t, evalSrc(t, `If(True, 1, 1 \ 0)`), 1)
	wantInt(t, evalSrc(t, `If(False, 1 \ 0, 2)`), 2)
}

// --- variables and scope ----------------------------------------------------

func TestDimAndAssignment(t *testing.T) {
	src := `
Dim x As Integer = 3
x += 2
x *= 4
x
`
	wantNum(t, evalSrc(t, src), 20)
}

func TestDefaultInitialValues(t *testing.T) {
	wantInt(t, evalSrc(t, "Dim n As Integer\nn"), 0)
	wantStr(t, evalSrc(t, "Dim s As String\ns"), "")
	wantBool(t, evalSrc(t, "Dim b As Boolean\nb"), false)
}

func TestConstCannotBeAssigned(t *testing.T) {
	err := evalErr(t, "Const Pi = 3.14\nPi = 3")
	wantErrContains(t, err, "constant")
}

func TestClosureSharesCell(t *testing.T) {
	src := `
Function MakeCounter() As Object
    Dim n As Integer = 0
    Return Function()
        n += 1
        Return n
    End Function
End Function

Dim c = MakeCounter()
c()
c()
c()
`
	wantNum(t, evalSrc(t, src), 3)
}

// --- control flow ------------------------------------------------------------

func TestIfElseIfChain(t *testing.T) {
	src := `
Dim n = 15
Dim r As String
If n < 10 Then
    r = "small"
ElseIf n < 20 Then
    r = "medium"
Else
    r = "large"
End If
r
`
	wantStr(t, evalSrc(t, src), "medium")
}

func TestSingleLineIf(t *testing.T) {
	wantInt(t, evalSrc(t, "Dim r = 0\nIf 2 > 1 Then r = 7 Else r = 9\nr"), 7)
}

func TestSelectCase(t *testing.T) {
	src := `
Function Classify(n As Integer) As String
    Select Case n
        Case 0
            Return "zero"
        Case 1 To 9
            Return "digit"
        Case Is >= 100
            Return "big"
        Case 10, 20, 30
            Return "round"
        Case Else
            Return "other"
    End Select
End Function
Classify(%s)
`
	wantStr(t, evalSrc(t, strings.Replace(src, "%s", "0", 1)), "zero")
	wantStr(t, evalSrc(t, strings.Replace(src, "%s", "5", 1)), "digit")
	wantStr(t, evalSrc(t, strings.Replace(src, "%s", "250", 1)), "big")
	wantStr(t, evalSrc(t, strings.Replace(src, "%s", "20", 1)), "round")
	wantStr(t, evalSrc(t, strings.Replace(src, "%s", "47", 1)), "other")
}

func TestForLoop(t *testing.T) {
	src := `
Dim total = 0
For i = 1 To 10
    total += i
Next
total
`
	wantNum(t, evalSrc(t, src), 55)
}

func TestForLoopStepAndExit(t *testing.T) {
	src := `
Dim hits = 0
For i = 10 To 1 Step -2
    If i = 4 Then Exit For
    hits += 1
Next i
hits
`
	wantNum(t, evalSrc(t, src), 3)
}

func TestForLoopContinue(t *testing.T) {
	src := `
Dim evens = 0
For i = 1 To 10
    If i Mod 2 = 1 Then Continue For
    evens += 1
Next
evens
`
	wantNum(t, evalSrc(t, src), 5)
}

func TestForEachOverArrayAndList(t *testing.T) {
	src := `
Dim total = 0
For Each n In {1, 2, 3, 4}
    total += n
Next
Dim l As New List
l.Add(10)
l.Add(20)
For Each n In l
    total += n
Next
total
`
	wantNum(t, evalSrc(t, src), 40)
}

func TestWhileAndDoLoops(t *testing.T) {
	src := `
Dim n = 0
While n < 5
    n += 1
End While
Do Until n = 10
    n += 1
Loop
Do
    n += 1
Loop While n < 12
n
`
	wantNum(t, evalSrc(t, src), 12)
}

func TestGotoForwardAndBackward(t *testing.T) {
	src := `
Dim trace = ""
Dim pass = 0
Start:
pass += 1
trace &= "a"
If pass < 2 Then GoTo Start
GoTo Done
trace &= "never"
Done:
trace &= "z"
trace
`
	wantStr(t, evalSrc(t, src), "aaz")
}

func TestGotoUndefinedLabel(t *testing.T) {
	err := evalErr(t, "GoTo Nowhere")
	wantErrContains(t, err, "not defined")
}

func TestWithBlock(t *testing.T) {
	src := `
Dim sb As New StringBuilder
With sb
    .Append("he")
    .Append("llo")
End With
sb.ToString()
`
	wantStr(t, evalSrc(t, src), "hello")
}

// --- procedures ---------------------------------------------------------------

func TestFunctionReturnViaName(t *testing.T) {
	src := `
Function Twice(n As Integer) As Integer
    Twice = n * 2
End Function
Twice(21)
`
	wantNum(t, evalSrc(t, src), 42)
}

func TestByValDoesNotMutate(t *testing.T) {
	src := `
Sub Bump(ByVal n As Integer)
    n = 99
End Sub
Dim x = 10
Bump(x)
x
`
	wantNum(t, evalSrc(t, src), 10)
}

func TestByRefMutates(t *testing.T) {
	src := `
Sub Double(ByRef n As Integer)
    n = n * 2
End Sub
Dim x = 10
Double(x)
x
`
	wantNum(t, evalSrc(t, src), 20)
}

func TestByRefArrayElement(t *testing.T) {
	src := `
Sub Bump(ByRef n As Integer)
    n += 1
End Sub
Dim a(2)
a(1) = 5
Bump(a(1))
a(1)
`
	wantNum(t, evalSrc(t, src), 6)
}

func TestOptionalParameter(t *testing.T) {
	src := `
Function Greet(name As String, Optional punct As String = "!") As String
    Return "hi " & name & punct
End Function
Greet("bob") & Greet("ann", "?")
`
	wantStr(t, evalSrc(t, src), "hi bob!hi ann?")
}

func TestParamArray(t *testing.T) {
	src := `
Function SumAll(ParamArray nums() As Integer) As Integer
    Dim total = 0
    For Each n In nums
        total += n
    Next
    Return total
End Function
SumAll(1, 2, 3) + SumAll()
`
	wantNum(t, evalSrc(t, src), 6)
}

func TestOptionalDefaultSeesEarlierParameters(t *testing.T) {
	src := `
Function Grow(a As Integer, Optional b = a * 2) As Integer
    Return a + b
End Function
Grow(3) & ":" & Grow(3, 1)
`
	wantStr(t, evalSrc(t, src), "9:4")
}

func TestParamArrayRejectsOptional(t *testing.T) {
	src := `
Function F(Optional a = 1, ParamArray rest() As Integer)
    Return 0
End Function
`
	wantErrContains(t, evalErr(t, src), "ParamArray cannot be used with Optional")
}

func TestStaticLocal(t *testing.T) {
	src := `
Function NextId() As Integer
    Static n As Integer = 0
    n += 1
    Return n
End Function
NextId()
NextId()
NextId()
`
	wantNum(t, evalSrc(t, src), 3)
}

func TestExitFunction(t *testing.T) {
	src := `
Function First(n As Integer) As Integer
    First = 1
    If n > 0 Then Exit Function
    First = 2
End Function
First(5)
`
	wantNum(t, evalSrc(t, src), 1)
}

func TestRecursion(t *testing.T) {
	src := `
Function Fib(n As Integer) As Integer
    If n < 2 Then Return n
    Return Fib(n - 1) + Fib(n - 2)
End Function
Fib(12)
`
	wantNum(t, evalSrc(t, src), 144)
}

func TestMissingArgument(t *testing.T) {
	err := evalErr(t, "Sub S(a As Integer)\nEnd Sub\nS()")
	wantErrContains(t, err, "not specified")
}

func TestCallDepthLimit(t *testing.T) {
	err := evalErr(t, "Function Loop0() As Integer\nReturn Loop0()\nEnd Function\nLoop0()")
	wantErrContains(t, err, "stack overflow")
}

// --- error handling ----------------------------------------------------------

func TestOnErrorResumeNext(t *testing.T) {
	src := `
Dim log = ""
On Error Resume Next
log &= "a"
Err.Raise 5
log &= "b"
log & Err.Number
`
	wantStr(t, evalSrc(t, src), "ab5")
}

func TestOnErrorGotoHandler(t *testing.T) {
	src := `
Dim log = ""
On Error GoTo Handler
log &= "a"
Dim x = 1 \ 0
log &= "r"
GoTo Done
Handler:
log &= "h"
Resume Next
Done:
log
`
	// Resume Next continues at the statement after the failing one
	wantStr(t, evalSrc(t, src), "ahr")
}

func TestResumeNextFromNestedBlock(t *testing.T) {
	src := `
Dim log = ""
On Error GoTo Handler
If True Then
    Dim x = 1 \ 0
    log &= "after"
End If
log &= "done"
GoTo Out
Handler:
log &= "h"
Resume Next
Out:
log
`
	// the handler runs at the error site, so Resume Next continues with
	// the statement after the failing one inside the If body
	wantStr(t, evalSrc(t, src), "hafterdone")
}

func TestOnErrorGotoZeroDisarms(t *testing.T) {
	src := `
On Error Resume Next
On Error GoTo 0
Dim x = 1 \ 0
`
	err := evalErr(t, src)
	wantErrContains(t, err, "divide by zero")
}

func TestResumeWithoutError(t *testing.T) {
	err := evalErr(t, "Resume Next")
	wantErrContains(t, err, "Resume without error")
}

func TestTryCatchFinally(t *testing.T) {
	src := `
Dim log = ""
Try
    log &= "t"
    Throw New ArgumentException("bad arg")
    log &= "never"
Catch ex As ArgumentException
    log &= "c:" & ex.Message
Finally
    log &= ":f"
End Try
log
`
	wantStr(t, evalSrc(t, src), "tc:bad arg:f")
}

func TestTryCatchTypedSelection(t *testing.T) {
	src := `
Dim which = ""
Try
    Dim x = 1 \ 0
Catch ex As ArgumentException
    which = "arg"
Catch ex As DivideByZeroException
    which = "div"
Catch ex As Exception
    which = "any"
End Try
which
`
	wantStr(t, evalSrc(t, src), "div")
}

func TestCatchWhenGuard(t *testing.T) {
	src := `
Dim picked = ""
Try
    Err.Raise 42
Catch ex As Exception When ex.Number = 7
    picked = "seven"
Catch ex As Exception When ex.Number = 42
    picked = "answer"
End Try
picked
`
	wantStr(t, evalSrc(t, src), "answer")
}

func TestRethrow(t *testing.T) {
	src := `
Dim seen = ""
Try
    Try
        Throw "inner"
    Catch ex As Exception
        Throw
    End Try
Catch ex As Exception
    seen = ex.Message
End Try
seen
`
	// the outer catch sees the original message
	wantStr(t, evalSrc(t, src), "inner")
}

func TestFinallyRunsOnSuccess(t *testing.T) {
	src := `
Dim log = ""
Try
    log &= "t"
Finally
    log &= "f"
End Try
log
`
	wantStr(t, evalSrc(t, src), "tf")
}

func TestUnstructuredHandlingDisabledInsideTry(t *testing.T) {
	src := `
On Error Resume Next
Dim hit = ""
Try
    Dim x = 1 \ 0
    hit = "skipped"
Catch ex As Exception
    hit = "caught"
End Try
hit
`
	wantStr(t, evalSrc(t, src), "caught")
}

// --- arrays -------------------------------------------------------------------

func TestArrayBoundsAreUpperBounds(t *testing.T) {
	src := `
Dim a(3)
a(0) = 1
a(3) = 9
a(0) + a(3)
`
	wantNum(t, evalSrc(t, src), 10)
}

func TestMultiDimArrayIndependentCells(t *testing.T) {
	src := `
Dim grid(1, 1)
grid(0, 0) = 1
grid(1, 1) = 5
grid(0, 0) + grid(1, 1)
`
	wantNum(t, evalSrc(t, src), 6)

	// untouched cells stay unset
	src2 := `
Dim grid(1, 1)
grid(0, 0) = 1
IsNothing(grid(0, 1))
`
	wantBool(t, evalSrc(t, src2), true)
}

func TestArrayIndexOutOfRange(t *testing.T) {
	err := evalErr(t, "Dim a(2)\nDim x = a(5)")
	wantErrContains(t, err, "out of range")
}

func TestReDimPreserve(t *testing.T) {
	src := `
Dim a(2)
a(0) = 7
a(2) = 9
ReDim Preserve a(5)
a(0) + a(2) + (UBound(a) * 100)
`
	wantNum(t, evalSrc(t, src), 516)
}

func TestReDimWithoutPreserveClears(t *testing.T) {
	src := `
Dim a(2)
a(0) = 7
ReDim a(2)
a(0) & "empty"
`
	wantStr(t, evalSrc(t, src), "empty")
}

func TestArrayLiteral(t *testing.T) {
	src := `
Dim a = {10, 20, 30}
a(1) + UBound(a)
`
	wantNum(t, evalSrc(t, src), 22)
}

// --- interpolated strings -----------------------------------------------------

func TestStringInterpolation(t *testing.T) {
	src := "Dim name = \"world\"\nDim n = 3\n$\"hi {name}, {n + 1} times\""
	wantStr(t, evalSrc(t, src), "hi world, 4 times")
}

func TestInterpolationAlignmentAndFormat(t *testing.T) {
	wantStr(t, evalSrc(t, "$\"[{42,5}]\""), "[   42]")
	wantStr(t, evalSrc(t, "$\"[{42,-5}]\""), "[42   ]")
	wantStr(t, evalSrc(t, "$\"{3.14159:F2}\""), "3.14")
}

// --- classes ------------------------------------------------------------------

func TestClassFieldsAndConstructor(t *testing.T) {
	src := `
Class Point
    Public X As Integer
    Public Y As Integer

    Sub New(x As Integer, y As Integer)
        Me.X = x
        Me.Y = y
    End Sub

    Function Sum() As Integer
        Return X + Y
    End Function
End Class

Dim p As New Point(3, 4)
p.Sum()
`
	wantNum(t, evalSrc(t, src), 7)
}

func TestPropertyGetSet(t *testing.T) {
	src := `
Class Thermostat
    Private _temp As Double

    Property Temperature As Double
        Get
            Return _temp
        End Get
        Set(value As Double)
            If value < -50 Then value = -50
            _temp = value
        End Set
    End Property
End Class

Dim th As New Thermostat
th.Temperature = -100
th.Temperature
`
	wantNum(t, evalSrc(t, src), -50)
}

func TestAutoProperty(t *testing.T) {
	src := `
Class Box
    Property Label As String = "none"
End Class
Dim b As New Box
Dim before = b.Label
b.Label = "gift"
before & ":" & b.Label
`
	wantStr(t, evalSrc(t, src), "none:gift")
}

func TestInheritanceAndMyBase(t *testing.T) {
	src := `
Class Animal
    Overridable Function Speak() As String
        Return "..."
    End Function
End Class

Class Dog
    Inherits Animal
    Overrides Function Speak() As String
        Return "woof " & MyBase.Speak()
    End Function
End Class

Dim d As New Dog
d.Speak()
`
	wantStr(t, evalSrc(t, src), "woof ...")
}

func TestSharedMembers(t *testing.T) {
	src := `
Class Counter
    Shared Total As Integer

    Shared Sub Bump()
        Total += 1
    End Sub
End Class

Counter.Bump()
Counter.Bump()
Counter.Total
`
	wantNum(t, evalSrc(t, src), 2)
}

func TestStructureCopiesOnAssignment(t *testing.T) {
	src := `
Structure Vec
    Public X As Integer
End Structure

Dim a As New Vec
a.X = 1
Dim b = a
b.X = 99
a.X
`
	wantNum(t, evalSrc(t, src), 1)
}

func TestClassReferenceSemantics(t *testing.T) {
	src := `
Class Holder
    Public N As Integer
End Class
Dim a As New Holder
Dim b = a
b.N = 42
a.N
`
	wantNum(t, evalSrc(t, src), 42)
}

func TestTypeOfIs(t *testing.T) {
	src := `
Class Animal
End Class
Class Dog
    Inherits Animal
End Class
Dim d As New Dog
(TypeOf d Is Animal) & ":" & (TypeOf d Is Dog) & ":" & (TypeOf 5 Is Dog)
`
	wantStr(t, evalSrc(t, src), "True:True:False")
}

func TestIsOperatorReferenceIdentity(t *testing.T) {
	src := `
Class C
End Class
Dim a As New C
Dim b = a
Dim c As New C
(a Is b) & ":" & (a Is c) & ":" & (a IsNot c)
`
	wantStr(t, evalSrc(t, src), "True:False:True")
}

func TestEvents(t *testing.T) {
	src := `
Class Button
    Public Event Clicked(count As Integer)

    Sub Press(n As Integer)
        RaiseEvent Clicked(n)
    End Sub
End Class

Dim log = ""
Dim b As New Button
AddHandler b.Clicked, Sub(n As Integer)
    log &= "click" & n
End Sub
b.Press(1)
b.Press(2)
log
`
	wantStr(t, evalSrc(t, src), "click1click2")
}

func TestEnum(t *testing.T) {
	src := `
Enum Color
    Red
    Green = 5
    Blue
End Enum
Color.Red & ":" & Color.Green & ":" & Color.Blue
`
	wantStr(t, evalSrc(t, src), "0:5:6")
}

func TestModuleMembersAreGlobal(t *testing.T) {
	src := `
Module Util
    Function Half(n As Integer) As Integer
        Return n \ 2
    End Function
End Module
Half(10)
`
	wantNum(t, evalSrc(t, src), 5)
}

func TestUsingCallsDispose(t *testing.T) {
	src := `
Class Res
    Public Shared Log As String = ""
    Sub Dispose()
        Log &= "disposed"
    End Sub
End Class
Using r As New Res
    Res.Log &= "used:"
End Using
Res.Log
`
	wantStr(t, evalSrc(t, src), "used:disposed")
}

// --- collections ---------------------------------------------------------------

func TestKeyedCollectionDuplicateKey(t *testing.T) {
	src := `
Dim c As New Collection
c.Add(1, "k")
c.Add(2, "K")
`
	err := evalErr(t, src)
	wantErrContains(t, err, "Duplicate key: 'K'")
}

func TestKeyedCollectionLookup(t *testing.T) {
	src := `
Dim c As New Collection
c.Add(10, "first")
c.Add(20, "second")
c.Item("FIRST") + c.Item(1)
`
	wantNum(t, evalSrc(t, src), 30)
}

func TestDictionaryCaseInsensitive(t *testing.T) {
	src := `
Dim d As New Dictionary
d.Add("alpha", 1)
d("ALPHA") & ":" & d.ContainsKey("Alpha") & ":" & d.Count
`
	wantStr(t, evalSrc(t, src), "1:True:1")
}

func TestDictionaryDuplicateAdd(t *testing.T) {
	err := evalErr(t, "Dim d As New Dictionary\nd.Add(\"a\", 1)\nd.Add(\"A\", 2)")
	wantErrContains(t, err, "same key")
}

func TestDictionaryIndexedUpsert(t *testing.T) {
	src := `
Dim d As New Dictionary
d("x") = 1
d("X") = 2
d("x") & ":" & d.Count
`
	wantStr(t, evalSrc(t, src), "2:1")
}

func TestQueueAndStack(t *testing.T) {
	src := `
Dim q As New Queue
q.Enqueue(1)
q.Enqueue(2)
Dim s As New Stack
s.Push(10)
s.Push(20)
q.Dequeue() & ":" & s.Pop() & ":" & q.Count & ":" & s.Peek()
`
	wantStr(t, evalSrc(t, src), "1:20:1:10")
}

func TestHashSetDistinct(t *testing.T) {
	src := `
Dim h As New HashSet
h.Add(1)
h.Add(1)
h.Add(2)
h.Count & ":" & h.Contains(2)
`
	wantStr(t, evalSrc(t, src), "2:True")
}

func TestForEachOverDictionaryPairs(t *testing.T) {
	src := `
Dim d As New Dictionary
d.Add("a", 1)
d.Add("b", 2)
Dim log = ""
For Each kv In d
    log &= kv.Key & "=" & kv.Value & ";"
Next
log
`
	wantStr(t, evalSrc(t, src), "a=1;b=2;")
}

// --- lambdas and callables -----------------------------------------------------

func TestLambdaSingleLine(t *testing.T) {
	src := `
Dim square = Function(x) x * x
square(7)
`
	wantNum(t, evalSrc(t, src), 49)
}

func TestLambdaBlock(t *testing.T) {
	src := `
Dim clamp = Function(x As Integer)
    If x > 10 Then Return 10
    Return x
End Function
clamp(42) + clamp(3)
`
	wantNum(t, evalSrc(t, src), 13)
}

func TestAddressOf(t *testing.T) {
	src := `
Function Triple(n As Integer) As Integer
    Return n * 3
End Function
Dim f = AddressOf Triple
f(5)
`
	wantNum(t, evalSrc(t, src), 15)
}

// --- REPL persistence ----------------------------------------------------------

func TestPersistentStateAcrossEvals(t *testing.T) {
	ip := NewInterpreter()
	mustEvalPersistent(t, ip, "Dim x = 10")
	mustEvalPersistent(t, ip, "x += 5")
	v := mustEvalPersistent(t, ip, "x")
	wantNum(t, v, 15)
}

func TestEvalSourceDoesNotLeakIntoGlobal(t *testing.T) {
	ip := NewInterpreter()
	if _, err := ip.EvalSource("Dim hidden = 1"); err != nil {
		t.Fatal(err)
	}
	if _, err := ip.EvalSource("hidden"); err == nil {
		t.Fatal("EvalSource bindings must not persist")
	}
}

func TestUnknownNameSuggestion(t *testing.T) {
	ip := NewInterpreter()
	mustEvalPersistent(t, ip, "Dim counter = 1")
	_, err := ip.EvalPersistentSource("countr")
	wantErrContains(t, err, "not declared")
}

func TestLoadModulesMergesPartialClasses(t *testing.T) {
	ip := NewInterpreter()
	err := ip.LoadModules(
		`Partial Class Widget
    Function Half() As Integer
        Return 21
    End Function
End Class`,
		`Partial Class Widget
    Function Whole() As Integer
        Return Half() * 2
    End Function
End Class`,
	)
	if err != nil {
		t.Fatal(err)
	}
	v := mustEvalPersistent(t, ip, "Dim w As New Widget\nw.Whole()")
	wantNum(t, v, 42)
}

func TestLoadModulesReportsParseErrors(t *testing.T) {
	ip := NewInterpreter()
	if err := ip.LoadModules("Dim ok = 1", "If x Then"); err == nil {
		t.Fatal("broken unit must fail the load")
	}
}

func TestStopHaltsExecution(t *testing.T) {
	src := `
Dim log = ""
log &= "a"
Stop
log &= "b"
`
	ip := NewInterpreter()
	if _, err := ip.EvalPersistentSource(src); err != nil {
		t.Fatal(err)
	}
	v := mustEvalPersistent(t, ip, "log")
	wantStr(t, v, "a")
}
