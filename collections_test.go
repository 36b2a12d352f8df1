package basil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestListKeyedEntries(t *testing.T) {
	l := NewList()
	l.Add(IntVal(1))
	if err := l.AddWithKey(IntVal(2), "Alpha"); err != nil {
		t.Fatal(err)
	}
	if !l.HasKey("ALPHA") {
		t.Fatal("keys must match case-insensitively")
	}
	v, err := l.ByKey("alpha")
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 2)
}

func TestListDuplicateKeyMessage(t *testing.T) {
	l := NewList()
	if err := l.AddWithKey(IntVal(1), "k"); err != nil {
		t.Fatal(err)
	}
	err := l.AddWithKey(IntVal(2), "K")
	if err == nil || err.Error() != "Argument 'Key' is not valid. Duplicate key: 'K'" {
		t.Fatalf("got %v", err)
	}
}

func TestListRemoveShiftsKeys(t *testing.T) {
	l := NewList()
	_ = l.AddWithKey(IntVal(10), "a")
	_ = l.AddWithKey(IntVal(20), "b")
	_ = l.AddWithKey(IntVal(30), "c")
	if err := l.RemoveByKey("a"); err != nil {
		t.Fatal(err)
	}
	if l.Count() != 2 {
		t.Fatalf("count: %d", l.Count())
	}
	v, err := l.ByKey("c")
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 30)
	if l.HasKey("a") {
		t.Fatal("removed key must disappear")
	}
}

func TestListInsertKeepsKeyPositions(t *testing.T) {
	l := NewList()
	_ = l.AddWithKey(IntVal(1), "first")
	if err := l.Insert(0, IntVal(0)); err != nil {
		t.Fatal(err)
	}
	v, err := l.ByKey("first")
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 1)
}

func TestDictionaryOrderAndFold(t *testing.T) {
	d := NewDictionary()
	_ = d.Add("Bravo", IntVal(2))
	_ = d.Add("alpha", IntVal(1))
	d.Set("BRAVO", IntVal(22)) // upsert keeps position and original casing slot
	if diff := cmp.Diff([]string{"Bravo", "alpha"}, d.Keys()); diff != "" {
		t.Fatalf("key order (-want +got):\n%s", diff)
	}
	v, err := d.Get("bravo")
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 22)
}

func TestDictionaryDuplicateAddMessage(t *testing.T) {
	d := NewDictionary()
	_ = d.Add("a", IntVal(1))
	err := d.Add("A", IntVal(2))
	if err == nil || !strings.Contains(err.Error(), "same key") {
		t.Fatalf("got %v", err)
	}
}

func TestDictionaryRemoveReindexes(t *testing.T) {
	d := NewDictionary()
	_ = d.Add("a", IntVal(1))
	_ = d.Add("b", IntVal(2))
	_ = d.Add("c", IntVal(3))
	if !d.Remove("a") {
		t.Fatal("remove should report true")
	}
	v, err := d.Get("c")
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 3)
	if d.Remove("a") {
		t.Fatal("second remove should report false")
	}
}

func TestQueueOrder(t *testing.T) {
	q := NewQueue()
	q.Enqueue(IntVal(1))
	q.Enqueue(IntVal(2))
	v, err := q.Dequeue()
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 1)
	if _, err := NewQueue().Dequeue(); err == nil {
		t.Fatal("dequeue on empty must fail")
	}
}

func TestStackOrder(t *testing.T) {
	s := NewStack()
	s.Push(IntVal(1))
	s.Push(IntVal(2))
	v, err := s.Pop()
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 2)
	v, err = s.Peek()
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 1)
}

func TestHashSetValueEquality(t *testing.T) {
	h := NewHashSet()
	if !h.Add(StrVal("go")) {
		t.Fatal("first add should insert")
	}
	if h.Add(StrVal("GO")) {
		t.Fatal("case-insensitive duplicate should be rejected")
	}
	if !h.Contains(StrVal("Go")) {
		t.Fatal("contains should fold case")
	}
}

func TestArrayRowMajorOffsets(t *testing.T) {
	a := NewArray([]int{2, 3})
	if err := a.Set([]int{1, 2}, IntVal(7)); err != nil {
		t.Fatal(err)
	}
	v, err := a.At([]int{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	wantInt(t, v, 7)
	if _, err := a.At([]int{2, 0}); err == nil {
		t.Fatal("out-of-range index must fail")
	}
	if _, err := a.At([]int{1}); err == nil {
		t.Fatal("wrong arity must fail")
	}
}
