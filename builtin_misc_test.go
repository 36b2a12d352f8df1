package basil

import (
	"strings"
	"testing"
)

func TestTaskRunAndAwait(t *testing.T) {
	src := `
Dim t = Task.Run(Function() 6 * 7)
Await t
`
	wantNum(t, evalSrc(t, src), 42)
}

func TestTaskRunWithArguments(t *testing.T) {
	src := `
Dim t = Task.Run(Function(a, b) a & b, "ha", "lo")
t.Result()
`
	wantStr(t, evalSrc(t, src), "halo")
}

func TestTaskErrorSurfacesOnAwait(t *testing.T) {
	src := `
Dim t = Task.Run(Function() 1 / 0)
Await t
`
	wantErrContains(t, evalErr(t, src), "divide by zero")
}

func TestTaskWaitDiscardsResult(t *testing.T) {
	src := `
Dim hits = 0
Dim t = Task.Run(Sub()
    hits = 1
End Sub)
t.Wait()
hits
`
	wantNum(t, evalSrc(t, src), 1)
}

func TestTaskRunRejectsNonCallable(t *testing.T) {
	wantErrContains(t, evalErr(t, `Task.Run(5)`), "expects a Function")
}

func TestNewGuidShape(t *testing.T) {
	v := evalSrc(t, `NewGuid()`)
	s, ok := v.Data.(string)
	if !ok || len(s) != 36 || strings.Count(s, "-") != 4 {
		t.Fatalf("not a guid: %#v", v)
	}
	other := evalSrc(t, `Guid.NewGuid()`)
	if other.Data.(string) == s {
		t.Fatal("guids must be unique")
	}
}

func TestEnviron(t *testing.T) {
	t.Setenv("BASIL_TEST_VAR", "grow")
	wantStr(t, evalSrc(t, `Environ("BASIL_TEST_VAR")`), "grow")
	wantStr(t, evalSrc(t, `Environ("BASIL_TEST_UNSET")`), "")
}

func TestSleepZeroReturnsImmediately(t *testing.T) {
	v := evalSrc(t, `Sleep(0)`)
	if v.Kind != KindNothing {
		t.Fatalf("got %#v", v)
	}
}
