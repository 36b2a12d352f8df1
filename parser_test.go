package basil

import (
	"strings"
	"testing"
)

func parseOK(t *testing.T, src string) []Statement {
	t.Helper()
	stmts, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("parse error: %v\nsource:\n%s", err, src)
	}
	return stmts
}

func parseFail(t *testing.T, src string) error {
	t.Helper()
	_, err := ParseProgram(src)
	if err == nil {
		t.Fatalf("expected parse error\nsource:\n%s", src)
	}
	return err
}

func TestParseDeclarations(t *testing.T) {
	parseOK(t, `
Dim a, b As Integer, c = 3
Const Max = 100
Static hits As Integer
Public counter As Long
Dim grid(2, 3) As Double
Dim empty()
`)
}

func TestParseProcedures(t *testing.T) {
	parseOK(t, `
Sub Log(msg As String, Optional level As Integer = 1)
End Sub

Function Add(ByVal a As Integer, ByRef b As Integer) As Integer
    Return a + b
End Function

Function SumAll(ParamArray nums() As Integer) As Integer
    Return 0
End Function
`)
}

func TestParseControlFlow(t *testing.T) {
	parseOK(t, `
For i = 1 To 10 Step 2
    If i > 5 Then Exit For
Next i

For Each x In items
    Continue For
Next

Do While a < 10
    a += 1
Loop

Do
    a -= 1
Loop Until a = 0

While True
    Exit While
End While

Select Case n
    Case 1, 2
    Case 3 To 5
    Case Is > 10
    Case Else
End Select
`)
}

func TestParseErrorHandling(t *testing.T) {
	parseOK(t, `
On Error Resume Next
On Error GoTo Cleanup
On Error GoTo 0
Resume
Resume Next
Resume Cleanup
Cleanup:
Try
Catch ex As ArgumentException When ex.Number = 5
Catch
Finally
End Try
Throw New Exception("x")
Throw
`)
}

func TestParseClassForms(t *testing.T) {
	parseOK(t, `
Partial Class Widget
    Inherits Base
    Implements IShow, IHide

    Private _name As String
    Public Shared Count As Integer

    Sub New(name As String)
    End Sub

    Overridable Function Show() As String
        Return _name
    End Function

    Property Label As String = "x"

    Property Size As Integer
        Get
            Return 1
        End Get
        Set(value As Integer)
        End Set
    End Property

    Public Event Changed(what As String)
End Class

Structure Vec
    Public X As Double
End Structure
`)
}

func TestParseLambdas(t *testing.T) {
	parseOK(t, `
Dim f = Function(x) x * 2
Dim g = Function(x As Integer)
    Return x
End Function
Dim h = Sub(msg As String)
    Print(msg)
End Sub
`)
}

func TestParseStatementLevelEqualsIsAssignment(t *testing.T) {
	stmts := parseOK(t, "x = y = 3")
	as, ok := stmts[0].(*AssignStmt)
	if !ok {
		t.Fatalf("want assignment, got %T", stmts[0])
	}
	// the right side stays a comparison
	if _, ok := as.Value.(*BinaryExpr); !ok {
		t.Fatalf("want comparison on the right, got %T", as.Value)
	}
}

func TestParseParenlessCall(t *testing.T) {
	stmts := parseOK(t, `Err.Raise 5, "src", "boom"`)
	es, ok := stmts[0].(*ExprStmt)
	if !ok {
		t.Fatalf("want expression statement, got %T", stmts[0])
	}
	call, ok := es.X.(*CallOrIndexExpr)
	if !ok || len(call.Args) != 3 {
		t.Fatalf("want 3-argument call, got %#v", es.X)
	}
}

func TestParseInterpolatedHoles(t *testing.T) {
	stmts := parseOK(t, `Dim s = $"a{x,3:F1}b{{literal}}"`)
	ds := stmts[0].(*DimStmt)
	ie, ok := ds.Decls[0].Init.(*InterpExpr)
	if !ok {
		t.Fatalf("want interpolation, got %T", ds.Decls[0].Init)
	}
	var holes int
	for _, part := range ie.Parts {
		if part.Expr != nil {
			holes++
			if part.Align != 3 || part.Format != "F1" {
				t.Fatalf("alignment/format not captured: %#v", part)
			}
		}
	}
	if holes != 1 {
		t.Fatalf("want one hole, got %d", holes)
	}
}

func TestParseRejectsDanglingBlocks(t *testing.T) {
	parseFail(t, "If x Then\n    y = 1")
	parseFail(t, "For i = 1 To 3")
	parseFail(t, "Sub Broken(")
	parseFail(t, "Class C")
}

func TestIncompleteOnlyInInteractiveMode(t *testing.T) {
	src := "If x Then\n    y = 1"
	err := parseFail(t, src)
	if IsIncomplete(err) {
		t.Fatal("batch parsing must not mark truncation as incomplete")
	}
	if cerr := CheckInteractive(src); !IsIncomplete(cerr) {
		t.Fatalf("interactive parsing should mark truncation, got %v", cerr)
	}
}

func TestCompleteInteractiveInput(t *testing.T) {
	if err := CheckInteractive("Dim x = 1"); err != nil {
		t.Fatalf("complete input should parse: %v", err)
	}
}

func TestParseErrorPosition(t *testing.T) {
	err := parseFail(t, "Dim = 5")
	if !strings.Contains(err.Error(), "1:") {
		t.Fatalf("error should carry a position: %v", err)
	}
}

func TestParseWithAndUsing(t *testing.T) {
	parseOK(t, `
With thing
    .Name = "x"
    .Save()
End With

Using r As New Resource
End Using

Using w = MakeWriter()
End Using
`)
}

func TestParseHandlers(t *testing.T) {
	parseOK(t, `
AddHandler btn.Clicked, AddressOf OnClick
RemoveHandler btn.Clicked, AddressOf OnClick
RaiseEvent Changed("size")
`)
}

func TestParseEnumAndModule(t *testing.T) {
	parseOK(t, `
Enum Direction
    North
    South = 5
End Enum

Module Helpers
    Dim shared1 As Integer
    Function F() As Integer
        Return 1
    End Function
End Module
`)
}
