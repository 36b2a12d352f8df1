package basil

import "testing"

// Query operator tests drive the member dispatch tables end to end through
// script source.

func TestQuerySelectWhere(t *testing.T) {
	src := `
Dim l As New List
For i = 1 To 6
    l.Add(i)
Next
l.Where(Function(x) x Mod 2 = 0).Select(Function(x) x * 10).Sum()
`
	wantNum(t, evalSrc(t, src), 120)
}

func TestQueryOrderBy(t *testing.T) {
	src := `
Dim l As New List
l.Add("pear")
l.Add("Apple")
l.Add("banana")
Dim sorted = l.OrderBy()
sorted.Item(0) & ":" & sorted.Item(2)
`
	wantStr(t, evalSrc(t, src), "Apple:pear")
}

func TestQueryOrderByKeySelectorDescending(t *testing.T) {
	src := `
Dim l As New List
l.Add("ccc")
l.Add("a")
l.Add("bb")
l.OrderByDescending(Function(s) Len(s)).First()
`
	wantStr(t, evalSrc(t, src), "ccc")
}

func TestQueryAggregate(t *testing.T) {
	src := `
Dim l As New List
l.Add(1)
l.Add(2)
l.Add(3)
l.Aggregate(10, Function(acc, x) acc + x)
`
	wantNum(t, evalSrc(t, src), 16)
}

func TestQueryGroupBy(t *testing.T) {
	src := `
Dim words As New List
words.Add("ant")
words.Add("bee")
words.Add("ape")
Dim groups = words.GroupBy(Function(w) Left(w, 1))
Dim log = ""
For Each g In groups
    log &= g.Key & "=" & g.Items.Count & ";"
Next
log
`
	wantStr(t, evalSrc(t, src), "a=2;b=1;")
}

func TestQueryFirstAnyAll(t *testing.T) {
	src := `
Dim l As New List
l.Add(4)
l.Add(7)
l.Add(9)
Dim first = l.First(Function(x) x > 5)
Dim anyBig = l.Any(Function(x) x > 8)
Dim allOdd = l.All(Function(x) x Mod 2 = 1)
first & ":" & anyBig & ":" & allOdd
`
	wantStr(t, evalSrc(t, src), "7:True:False")
}

func TestQueryFirstOrDefaultEmpty(t *testing.T) {
	src := `
Dim l As New List
IsNothing(l.FirstOrDefault())
`
	wantBool(t, evalSrc(t, src), true)
}

func TestQueryFirstOnEmptyFails(t *testing.T) {
	err := evalErr(t, "Dim l As New List\nl.First()")
	wantErrContains(t, err, "no matching element")
}

func TestQueryTakeSkipReverse(t *testing.T) {
	src := `
Dim l As New List
For i = 1 To 5
    l.Add(i)
Next
Dim mid = l.Skip(1).Take(3).Reverse()
mid.Item(0) & mid.Item(1) & mid.Item(2)
`
	wantStr(t, evalSrc(t, src), "432")
}

func TestQueryDistinctAndSetOps(t *testing.T) {
	src := `
Dim a As New List
a.Add(1)
a.Add(2)
a.Add(2)
a.Add(3)
Dim b As New List
b.Add(3)
b.Add(4)
Dim log = a.Distinct().Count & ":"
log &= a.Union(b).Count & ":"
log &= a.Intersect(b).Count & ":"
log &= a.Except(b).Count
log
`
	wantStr(t, evalSrc(t, src), "3:4:1:2")
}

func TestQueryMinMaxAverage(t *testing.T) {
	src := `
Dim l As New List
l.Add(5)
l.Add(2)
l.Add(8)
l.Min() & ":" & l.Max() & ":" & l.Average()
`
	wantStr(t, evalSrc(t, src), "2:8:5")
}

func TestQueryOnArrays(t *testing.T) {
	src := `
Dim a = {5, 1, 4}
a.Where(Function(x) x > 1).Sum()
`
	wantNum(t, evalSrc(t, src), 9)
}

func TestQueryToArrayRoundTrip(t *testing.T) {
	src := `
Dim l As New List
l.Add(1)
l.Add(2)
Dim arr = l.ToArray()
UBound(arr)
`
	wantNum(t, evalSrc(t, src), 1)
}

func TestQueryCountWithPredicate(t *testing.T) {
	src := `
Dim l As New List
For i = 1 To 10
    l.Add(i)
Next
l.Where(Function(x) x > 7).Count
`
	wantNum(t, evalSrc(t, src), 3)
}

func TestStringBuilderFluent(t *testing.T) {
	src := `
Dim sb As New StringBuilder("a")
sb.Append("b").Append("c")
sb.AppendLine("d")
sb.Length & ":" & Replace(sb.ToString(), vbLf, "/")
`
	wantStr(t, evalSrc(t, src), "5:abcd/")
}

func TestStringBuilderEditing(t *testing.T) {
	src := `
Dim sb As New StringBuilder("hello world")
sb.Insert(5, ",")
sb.Remove(0, 1)
sb.Replace("World", "there")
sb.ToString()
`
	wantStr(t, evalSrc(t, src), "ello, there")
}

func TestUnknownMemberError(t *testing.T) {
	err := evalErr(t, "Dim l As New List\nl.Frobnicate()")
	wantErrContains(t, err, "not a member")
}
