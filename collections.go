package basil

import (
	"fmt"
	"strings"
)

// The collection engine backs the language's native container types. All of
// them are ordered; List additionally supports optional string keys with
// case-insensitive uniqueness, which is what the classic keyed Collection
// exposes. Keys are folded for comparison but keep their original casing for
// display.

// ---------------------------------------------------------------------------
// List (ArrayList / keyed Collection)
// ---------------------------------------------------------------------------

// List is an ordered sequence with an optional key per slot. keyIndex maps
// folded keys to positions; displayKeys remembers the casing as written.
type List struct {
	Items       []Value
	keyIndex    map[string]int
	displayKeys map[string]string
}

func NewList() *List {
	return &List{keyIndex: map[string]int{}, displayKeys: map[string]string{}}
}

func (l *List) TypeName() string { return "List" }

func (l *List) Count() int { return len(l.Items) }

// Add appends a value and returns its position.
func (l *List) Add(v Value) int {
	l.Items = append(l.Items, v)
	return len(l.Items) - 1
}

// AddWithKey appends a keyed value; a case-insensitively duplicate key is
// rejected with the dialect's message.
func (l *List) AddWithKey(v Value, key string) error {
	folded := foldName(key)
	if _, exists := l.keyIndex[folded]; exists {
		return fmt.Errorf("Argument 'Key' is not valid. Duplicate key: '%s'", key)
	}
	l.keyIndex[folded] = len(l.Items)
	l.displayKeys[folded] = key
	l.Items = append(l.Items, v)
	return nil
}

// Insert places a value at position idx, shifting later entries (and their
// key positions) up by one.
func (l *List) Insert(idx int, v Value) error {
	if idx < 0 || idx > len(l.Items) {
		return fmt.Errorf("Index out of range: %d", idx)
	}
	for k, p := range l.keyIndex {
		if p >= idx {
			l.keyIndex[k] = p + 1
		}
	}
	l.Items = append(l.Items, Nothing)
	copy(l.Items[idx+1:], l.Items[idx:])
	l.Items[idx] = v
	return nil
}

func (l *List) At(idx int) (Value, error) {
	if idx < 0 || idx >= len(l.Items) {
		return Nothing, fmt.Errorf("Index out of range: %d", idx)
	}
	return l.Items[idx], nil
}

func (l *List) SetAt(idx int, v Value) error {
	if idx < 0 || idx >= len(l.Items) {
		return fmt.Errorf("Index out of range: %d", idx)
	}
	l.Items[idx] = v
	return nil
}

// ByKey retrieves a value by its case-insensitive key.
func (l *List) ByKey(key string) (Value, error) {
	idx, ok := l.keyIndex[foldName(key)]
	if !ok {
		return Nothing, fmt.Errorf("Argument 'Index' is not valid. Key not found: '%s'", key)
	}
	return l.Items[idx], nil
}

// HasKey reports whether key is present (case-insensitively).
func (l *List) HasKey(key string) bool {
	_, ok := l.keyIndex[foldName(key)]
	return ok
}

// RemoveAt removes the entry at idx; later positions shift down by one and
// any key addressing the removed slot disappears with it.
func (l *List) RemoveAt(idx int) error {
	if idx < 0 || idx >= len(l.Items) {
		return fmt.Errorf("Index out of range: %d", idx)
	}
	l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
	for k, p := range l.keyIndex {
		switch {
		case p == idx:
			delete(l.keyIndex, k)
			delete(l.displayKeys, k)
		case p > idx:
			l.keyIndex[k] = p - 1
		}
	}
	return nil
}

// RemoveByKey removes the entry addressed by key.
func (l *List) RemoveByKey(key string) error {
	idx, ok := l.keyIndex[foldName(key)]
	if !ok {
		return fmt.Errorf("Argument 'Key' is not valid. Key not found: '%s'", key)
	}
	return l.RemoveAt(idx)
}

// RemoveValue removes the first entry equal to v, if any.
func (l *List) RemoveValue(v Value) bool {
	for i, item := range l.Items {
		if valuesEqual(item, v) {
			_ = l.RemoveAt(i)
			return true
		}
	}
	return false
}

// IndexOf returns the position of the first entry equal to v, or -1.
func (l *List) IndexOf(v Value) int {
	for i, item := range l.Items {
		if valuesEqual(item, v) {
			return i
		}
	}
	return -1
}

// Clear drops all entries and keys.
func (l *List) Clear() {
	l.Items = nil
	l.keyIndex = map[string]int{}
	l.displayKeys = map[string]string{}
}

// ---------------------------------------------------------------------------
// Dictionary
// ---------------------------------------------------------------------------

// dictEntry pairs a display-cased key with its value.
type dictEntry struct {
	key string
	val Value
}

// Dictionary is a string-keyed map with case-insensitive keys that preserves
// insertion order when enumerated.
type Dictionary struct {
	entries []dictEntry
	index   map[string]int
}

func NewDictionary() *Dictionary {
	return &Dictionary{index: map[string]int{}}
}

func (d *Dictionary) TypeName() string { return "Dictionary" }

func (d *Dictionary) Count() int { return len(d.entries) }

// Add inserts a new key; an existing (case-insensitive) key is an error.
func (d *Dictionary) Add(key string, v Value) error {
	folded := foldName(key)
	if _, exists := d.index[folded]; exists {
		return fmt.Errorf("An item with the same key has already been added. Key: %s", key)
	}
	d.index[folded] = len(d.entries)
	d.entries = append(d.entries, dictEntry{key: key, val: v})
	return nil
}

// Set upserts: existing keys are overwritten in place, new keys appended.
func (d *Dictionary) Set(key string, v Value) {
	folded := foldName(key)
	if idx, exists := d.index[folded]; exists {
		d.entries[idx].val = v
		return
	}
	d.index[folded] = len(d.entries)
	d.entries = append(d.entries, dictEntry{key: key, val: v})
}

func (d *Dictionary) Get(key string) (Value, error) {
	idx, ok := d.index[foldName(key)]
	if !ok {
		return Nothing, fmt.Errorf("The given key was not present in the dictionary: '%s'", key)
	}
	return d.entries[idx].val, nil
}

func (d *Dictionary) ContainsKey(key string) bool {
	_, ok := d.index[foldName(key)]
	return ok
}

func (d *Dictionary) ContainsValue(v Value) bool {
	for _, e := range d.entries {
		if valuesEqual(e.val, v) {
			return true
		}
	}
	return false
}

// Remove deletes by key, reporting whether the key existed.
func (d *Dictionary) Remove(key string) bool {
	folded := foldName(key)
	idx, ok := d.index[folded]
	if !ok {
		return false
	}
	d.entries = append(d.entries[:idx], d.entries[idx+1:]...)
	delete(d.index, folded)
	for k, p := range d.index {
		if p > idx {
			d.index[k] = p - 1
		}
	}
	return true
}

func (d *Dictionary) Clear() {
	d.entries = nil
	d.index = map[string]int{}
}

// Keys returns display-cased keys in insertion order.
func (d *Dictionary) Keys() []string {
	out := make([]string, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.key
	}
	return out
}

func (d *Dictionary) Values() []Value {
	out := make([]Value, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.val
	}
	return out
}

// Pairs returns the entries as KeyValuePair objects in insertion order.
func (d *Dictionary) Pairs() []Value {
	out := make([]Value, len(d.entries))
	for i, e := range d.entries {
		out[i] = ObjVal(&Pair{Key: StrVal(e.key), Value: e.val})
	}
	return out
}

// ---------------------------------------------------------------------------
// Queue / Stack / HashSet
// ---------------------------------------------------------------------------

// Queue is FIFO storage.
type Queue struct {
	Items []Value
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) TypeName() string { return "Queue" }
func (q *Queue) Count() int       { return len(q.Items) }

func (q *Queue) Enqueue(v Value) { q.Items = append(q.Items, v) }

func (q *Queue) Dequeue() (Value, error) {
	if len(q.Items) == 0 {
		return Nothing, fmt.Errorf("Queue empty")
	}
	v := q.Items[0]
	q.Items = q.Items[1:]
	return v, nil
}

func (q *Queue) Peek() (Value, error) {
	if len(q.Items) == 0 {
		return Nothing, fmt.Errorf("Queue empty")
	}
	return q.Items[0], nil
}

func (q *Queue) Clear() { q.Items = nil }

// Stack is LIFO storage.
type Stack struct {
	Items []Value
}

func NewStack() *Stack { return &Stack{} }

func (s *Stack) TypeName() string { return "Stack" }
func (s *Stack) Count() int       { return len(s.Items) }

func (s *Stack) Push(v Value) { s.Items = append(s.Items, v) }

func (s *Stack) Pop() (Value, error) {
	if len(s.Items) == 0 {
		return Nothing, fmt.Errorf("Stack empty")
	}
	v := s.Items[len(s.Items)-1]
	s.Items = s.Items[:len(s.Items)-1]
	return v, nil
}

func (s *Stack) Peek() (Value, error) {
	if len(s.Items) == 0 {
		return Nothing, fmt.Errorf("Stack empty")
	}
	return s.Items[len(s.Items)-1], nil
}

func (s *Stack) Clear() { s.Items = nil }

// HashSet keeps distinct values in insertion order. Add reports whether the
// value was actually inserted.
type HashSet struct {
	Items []Value
}

func NewHashSet() *HashSet { return &HashSet{} }

func (h *HashSet) TypeName() string { return "HashSet" }
func (h *HashSet) Count() int       { return len(h.Items) }

func (h *HashSet) Contains(v Value) bool {
	for _, item := range h.Items {
		if valuesEqual(item, v) {
			return true
		}
	}
	return false
}

func (h *HashSet) Add(v Value) bool {
	if h.Contains(v) {
		return false
	}
	h.Items = append(h.Items, v)
	return true
}

func (h *HashSet) Remove(v Value) bool {
	for i, item := range h.Items {
		if valuesEqual(item, v) {
			h.Items = append(h.Items[:i], h.Items[i+1:]...)
			return true
		}
	}
	return false
}

func (h *HashSet) Clear() { h.Items = nil }

// ---------------------------------------------------------------------------
// StringBuilder
// ---------------------------------------------------------------------------

type StringBuilder struct {
	b strings.Builder
}

func NewStringBuilder() *StringBuilder { return &StringBuilder{} }

func (sb *StringBuilder) TypeName() string      { return "StringBuilder" }
func (sb *StringBuilder) DisplayString() string { return sb.b.String() }

func (sb *StringBuilder) Append(s string)  { sb.b.WriteString(s) }
func (sb *StringBuilder) Len() int         { return len(sb.b.String()) }
func (sb *StringBuilder) String() string   { return sb.b.String() }
func (sb *StringBuilder) Clear()           { sb.b.Reset() }
func (sb *StringBuilder) replace(s string) { sb.b.Reset(); sb.b.WriteString(s) }

// ---------------------------------------------------------------------------
// Pair / Group
// ---------------------------------------------------------------------------

// Pair is a key/value entry, used by dictionary enumeration.
type Pair struct {
	Key   Value
	Value Value
}

func (p *Pair) TypeName() string { return "KeyValuePair" }

func (p *Pair) DisplayString() string {
	return "[" + displayString(p.Key) + ", " + displayString(p.Value) + "]"
}

// Group is one bucket of a GroupBy result.
type Group struct {
	Key   Value
	Items *List
}

func (g *Group) TypeName() string { return "Grouping" }
