// dispatch.go — the case-insensitive member dispatch tables for the native
// container types, the collection query operators, and did-you-mean
// suggestions for unresolved names.
package basil

import (
	"fmt"
	"sort"

	"github.com/sahilm/fuzzy"
)

// unknownName builds the unresolved-name error, with a fuzzy suggestion
// from the visible scope chain when one is close enough.
func (ip *Interpreter) unknownName(act *activation, name string, tok Token) error {
	msg := fmt.Sprintf("'%s' is not declared", name)
	var candidates []string
	seen := map[string]bool{}
	for env := act.env; env != nil; env = env.parent {
		for k := range env.table {
			if !seen[k] {
				seen[k] = true
				candidates = append(candidates, k)
			}
		}
	}
	matches := fuzzy.Find(foldName(name), candidates)
	if len(matches) > 0 && matches[0].Score > 0 {
		msg += fmt.Sprintf(". Did you mean '%s'?", matches[0].Str)
	}
	return &BindError{Msg: msg, Line: tok.Line, Col: tok.Col}
}

// recvList coerces a method receiver to a *List.
func recvList(c *CallCtx) (*List, error) {
	l, ok := c.Recv.Data.(*List)
	if !ok {
		return nil, fmt.Errorf("'%s' expects a List receiver", c.Name)
	}
	return l, nil
}

func recvDict(c *CallCtx) (*Dictionary, error) {
	d, ok := c.Recv.Data.(*Dictionary)
	if !ok {
		return nil, fmt.Errorf("'%s' expects a Dictionary receiver", c.Name)
	}
	return d, nil
}

// registerCollectionMethods wires the member surface of the native
// containers: List (with keyed Collection semantics), Dictionary, Queue,
// Stack, HashSet and StringBuilder.
func registerCollectionMethods(ip *Interpreter) {
	// ----- List -----
	ip.RegisterProp("List", "Count", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		return IntVal(int64(l.Count())), nil
	})
	ip.RegisterMethod("List", "Add", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		switch len(c.Args) {
		case 1:
			l.Add(c.Arg(0))
			return Nothing, nil
		case 2:
			// Add(value, key) keys the new entry
			return Nothing, l.AddWithKey(c.Arg(0), c.Str(1))
		}
		return Nothing, fmt.Errorf("Add expects 1 or 2 arguments")
	})
	ip.RegisterMethod("List", "Insert", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		idx, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		return Nothing, l.Insert(int(idx), c.Arg(1))
	})
	ip.RegisterMethod("List", "Item", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		if c.Arg(0).Kind == KindString {
			return l.ByKey(c.Str(0))
		}
		idx, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		return l.At(int(idx))
	})
	ip.RegisterMethod("List", "IndexOf", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		return IntVal(int64(l.IndexOf(c.Arg(0)))), nil
	})
	ip.RegisterMethod("List", "Contains", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		return BoolVal(l.IndexOf(c.Arg(0)) >= 0), nil
	})
	ip.RegisterMethod("List", "ContainsKey", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		return BoolVal(l.HasKey(c.Str(0))), nil
	})
	ip.RegisterMethod("List", "Remove", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		// Remove(key) for keyed entries, Remove(value) otherwise
		if c.Arg(0).Kind == KindString && l.HasKey(c.Str(0)) {
			return Nothing, l.RemoveByKey(c.Str(0))
		}
		return BoolVal(l.RemoveValue(c.Arg(0))), nil
	})
	ip.RegisterMethod("List", "RemoveAt", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		idx, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		return Nothing, l.RemoveAt(int(idx))
	})
	ip.RegisterMethod("List", "Clear", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		l.Clear()
		return Nothing, nil
	})
	ip.RegisterMethod("List", "Sort", func(c *CallCtx) (Value, error) {
		l, err := recvList(c)
		if err != nil {
			return Nothing, err
		}
		var sortErr error
		sort.SliceStable(l.Items, func(i, j int) bool {
			cmp, err := compareValues(l.Items[i], l.Items[j])
			if err != nil && sortErr == nil {
				sortErr = err
			}
			return cmp < 0
		})
		return Nothing, sortErr
	})

	// ----- Dictionary -----
	ip.RegisterProp("Dictionary", "Count", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		return IntVal(int64(d.Count())), nil
	})
	ip.RegisterProp("Dictionary", "Keys", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		out := NewList()
		for _, k := range d.Keys() {
			out.Add(StrVal(k))
		}
		return ObjVal(out), nil
	})
	ip.RegisterProp("Dictionary", "Values", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		out := NewList()
		for _, v := range d.Values() {
			out.Add(v)
		}
		return ObjVal(out), nil
	})
	ip.RegisterMethod("Dictionary", "Add", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		return Nothing, d.Add(c.Str(0), c.Arg(1))
	})
	ip.RegisterMethod("Dictionary", "Item", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		return d.Get(c.Str(0))
	})
	ip.RegisterMethod("Dictionary", "ContainsKey", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		return BoolVal(d.ContainsKey(c.Str(0))), nil
	})
	ip.RegisterMethod("Dictionary", "ContainsValue", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		return BoolVal(d.ContainsValue(c.Arg(0))), nil
	})
	ip.RegisterMethod("Dictionary", "Remove", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		return BoolVal(d.Remove(c.Str(0))), nil
	})
	ip.RegisterMethod("Dictionary", "Clear", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		d.Clear()
		return Nothing, nil
	})
	ip.RegisterMethod("Dictionary", "TryGetValue", func(c *CallCtx) (Value, error) {
		d, err := recvDict(c)
		if err != nil {
			return Nothing, err
		}
		return BoolVal(d.ContainsKey(c.Str(0))), nil
	})

	// ----- Queue / Stack / HashSet -----
	ip.RegisterProp("Queue", "Count", func(c *CallCtx) (Value, error) {
		return IntVal(int64(c.Recv.Data.(*Queue).Count())), nil
	})
	ip.RegisterMethod("Queue", "Enqueue", func(c *CallCtx) (Value, error) {
		c.Recv.Data.(*Queue).Enqueue(c.Arg(0))
		return Nothing, nil
	})
	ip.RegisterMethod("Queue", "Dequeue", func(c *CallCtx) (Value, error) {
		return c.Recv.Data.(*Queue).Dequeue()
	})
	ip.RegisterMethod("Queue", "Peek", func(c *CallCtx) (Value, error) {
		return c.Recv.Data.(*Queue).Peek()
	})
	ip.RegisterMethod("Queue", "Clear", func(c *CallCtx) (Value, error) {
		c.Recv.Data.(*Queue).Clear()
		return Nothing, nil
	})
	ip.RegisterProp("Stack", "Count", func(c *CallCtx) (Value, error) {
		return IntVal(int64(c.Recv.Data.(*Stack).Count())), nil
	})
	ip.RegisterMethod("Stack", "Push", func(c *CallCtx) (Value, error) {
		c.Recv.Data.(*Stack).Push(c.Arg(0))
		return Nothing, nil
	})
	ip.RegisterMethod("Stack", "Pop", func(c *CallCtx) (Value, error) {
		return c.Recv.Data.(*Stack).Pop()
	})
	ip.RegisterMethod("Stack", "Peek", func(c *CallCtx) (Value, error) {
		return c.Recv.Data.(*Stack).Peek()
	})
	ip.RegisterMethod("Stack", "Clear", func(c *CallCtx) (Value, error) {
		c.Recv.Data.(*Stack).Clear()
		return Nothing, nil
	})
	ip.RegisterProp("HashSet", "Count", func(c *CallCtx) (Value, error) {
		return IntVal(int64(c.Recv.Data.(*HashSet).Count())), nil
	})
	ip.RegisterMethod("HashSet", "Add", func(c *CallCtx) (Value, error) {
		return BoolVal(c.Recv.Data.(*HashSet).Add(c.Arg(0))), nil
	})
	ip.RegisterMethod("HashSet", "Contains", func(c *CallCtx) (Value, error) {
		return BoolVal(c.Recv.Data.(*HashSet).Contains(c.Arg(0))), nil
	})
	ip.RegisterMethod("HashSet", "Remove", func(c *CallCtx) (Value, error) {
		return BoolVal(c.Recv.Data.(*HashSet).Remove(c.Arg(0))), nil
	})
	ip.RegisterMethod("HashSet", "Clear", func(c *CallCtx) (Value, error) {
		c.Recv.Data.(*HashSet).Clear()
		return Nothing, nil
	})

	// ----- StringBuilder -----
	ip.RegisterProp("StringBuilder", "Length", func(c *CallCtx) (Value, error) {
		return IntVal(int64(c.Recv.Data.(*StringBuilder).Len())), nil
	})
	ip.RegisterMethod("StringBuilder", "Append", func(c *CallCtx) (Value, error) {
		c.Recv.Data.(*StringBuilder).Append(c.Str(0))
		return c.Recv, nil
	})
	ip.RegisterMethod("StringBuilder", "AppendLine", func(c *CallCtx) (Value, error) {
		sb := c.Recv.Data.(*StringBuilder)
		if len(c.Args) > 0 {
			sb.Append(c.Str(0))
		}
		sb.Append("\n")
		return c.Recv, nil
	})
	ip.RegisterMethod("StringBuilder", "Insert", func(c *CallCtx) (Value, error) {
		sb := c.Recv.Data.(*StringBuilder)
		pos, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		s := sb.String()
		if pos < 0 || int(pos) > len(s) {
			return Nothing, fmt.Errorf("Argument 'Index' is not valid: %d", pos)
		}
		sb.replace(s[:pos] + c.Str(1) + s[pos:])
		return c.Recv, nil
	})
	ip.RegisterMethod("StringBuilder", "Remove", func(c *CallCtx) (Value, error) {
		sb := c.Recv.Data.(*StringBuilder)
		start, err := c.Int(0)
		if err != nil {
			return Nothing, err
		}
		n, err := c.Int(1)
		if err != nil {
			return Nothing, err
		}
		s := sb.String()
		if start < 0 || n < 0 || int(start+n) > len(s) {
			return Nothing, fmt.Errorf("Argument 'Length' is not valid: %d", n)
		}
		sb.replace(s[:start] + s[start+n:])
		return c.Recv, nil
	})
	ip.RegisterMethod("StringBuilder", "Replace", func(c *CallCtx) (Value, error) {
		sb := c.Recv.Data.(*StringBuilder)
		sb.replace(replaceFold(sb.String(), c.Str(0), c.Str(1)))
		return c.Recv, nil
	})
	ip.RegisterMethod("StringBuilder", "ToString", func(c *CallCtx) (Value, error) {
		return StrVal(c.Recv.Data.(*StringBuilder).String()), nil
	})
	ip.RegisterMethod("StringBuilder", "Clear", func(c *CallCtx) (Value, error) {
		c.Recv.Data.(*StringBuilder).Clear()
		return c.Recv, nil
	})
}

// ---------------------------------------------------------------------------
// Query operators
// ---------------------------------------------------------------------------

// queryItems snapshots any enumerable receiver for the query operators.
func queryItems(v Value) ([]Value, error) {
	return iterableItems(v)
}

func listOf(items []Value) Value {
	out := NewList()
	out.Items = append(out.Items, items...)
	return ObjVal(out)
}

// applySelector calls a callable argument on one element.
func applySelector(c *CallCtx, fn Value, args ...Value) (Value, error) {
	if fn.Kind != KindCallable {
		return Nothing, fmt.Errorf("'%s' expects a Function argument", c.Name)
	}
	return c.Ip.Apply(fn, args)
}

// registerQueryMethods wires the pipeline operators shared by List, Array
// and the other enumerables: projection, filtering, ordering, grouping,
// folding and set operations. Each returns a new List and never mutates
// the receiver.
func registerQueryMethods(ip *Interpreter) {
	forEachQueryType := func(reg func(typeName string)) {
		for _, t := range []string{"List", "Array", "Queue", "Stack", "HashSet"} {
			reg(t)
		}
	}

	type queryImpl struct {
		name string
		impl NativeImpl
	}
	ops := []queryImpl{
		{"Select", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			out := make([]Value, len(items))
			for i, item := range items {
				v, err := applySelector(c, c.Arg(0), item)
				if err != nil {
					return Nothing, err
				}
				out[i] = v
			}
			return listOf(out), nil
		}},
		{"Where", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			var out []Value
			for _, item := range items {
				v, err := applySelector(c, c.Arg(0), item)
				if err != nil {
					return Nothing, err
				}
				keep, err := truthy(v)
				if err != nil {
					return Nothing, err
				}
				if keep {
					out = append(out, item)
				}
			}
			return listOf(out), nil
		}},
		{"OrderBy", func(c *CallCtx) (Value, error) {
			return orderBy(c, false)
		}},
		{"OrderByDescending", func(c *CallCtx) (Value, error) {
			return orderBy(c, true)
		}},
		{"GroupBy", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			var order []Value
			groups := map[string]*Group{}
			for _, item := range items {
				k, err := applySelector(c, c.Arg(0), item)
				if err != nil {
					return Nothing, err
				}
				gk := foldName(displayString(k))
				g, ok := groups[gk]
				if !ok {
					g = &Group{Key: k, Items: NewList()}
					groups[gk] = g
					order = append(order, ObjVal(g))
				}
				g.Items.Add(item)
			}
			return listOf(order), nil
		}},
		{"Aggregate", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			var acc Value
			var fn Value
			start := 0
			if len(c.Args) == 2 {
				acc, fn = c.Arg(0), c.Arg(1)
			} else {
				if len(items) == 0 {
					return Nothing, fmt.Errorf("Aggregate on an empty sequence needs a seed")
				}
				acc, fn = items[0], c.Arg(0)
				start = 1
			}
			for _, item := range items[start:] {
				acc, err = applySelector(c, fn, acc, item)
				if err != nil {
					return Nothing, err
				}
			}
			return acc, nil
		}},
		{"First", func(c *CallCtx) (Value, error) {
			v, ok, err := firstMatch(c)
			if err != nil {
				return Nothing, err
			}
			if !ok {
				return Nothing, fmt.Errorf("Sequence contains no matching element")
			}
			return v, nil
		}},
		{"FirstOrDefault", func(c *CallCtx) (Value, error) {
			v, _, err := firstMatch(c)
			return v, err
		}},
		{"Last", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			if len(items) == 0 {
				return Nothing, fmt.Errorf("Sequence contains no elements")
			}
			return items[len(items)-1], nil
		}},
		{"LastOrDefault", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			if len(items) == 0 {
				return Nothing, nil
			}
			return items[len(items)-1], nil
		}},
		{"Any", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			if len(c.Args) == 0 {
				return BoolVal(len(items) > 0), nil
			}
			for _, item := range items {
				v, err := applySelector(c, c.Arg(0), item)
				if err != nil {
					return Nothing, err
				}
				hit, err := truthy(v)
				if err != nil {
					return Nothing, err
				}
				if hit {
					return BoolVal(true), nil
				}
			}
			return BoolVal(false), nil
		}},
		{"All", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			for _, item := range items {
				v, err := applySelector(c, c.Arg(0), item)
				if err != nil {
					return Nothing, err
				}
				hit, err := truthy(v)
				if err != nil {
					return Nothing, err
				}
				if !hit {
					return BoolVal(false), nil
				}
			}
			return BoolVal(true), nil
		}},
		{"Count", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			if len(c.Args) == 0 {
				return IntVal(int64(len(items))), nil
			}
			n := 0
			for _, item := range items {
				v, err := applySelector(c, c.Arg(0), item)
				if err != nil {
					return Nothing, err
				}
				hit, err := truthy(v)
				if err != nil {
					return Nothing, err
				}
				if hit {
					n++
				}
			}
			return IntVal(int64(n)), nil
		}},
		{"Sum", func(c *CallCtx) (Value, error) {
			return foldNumeric(c, func(acc, x float64) float64 { return acc + x }, 0)
		}},
		{"Average", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			if len(items) == 0 {
				return Nothing, fmt.Errorf("Sequence contains no elements")
			}
			sum, err := foldNumeric(c, func(acc, x float64) float64 { return acc + x }, 0)
			if err != nil {
				return Nothing, err
			}
			f, _ := asDouble(sum)
			return DblVal(f / float64(len(items))), nil
		}},
		{"Min", func(c *CallCtx) (Value, error) { return minMax(c, true) }},
		{"Max", func(c *CallCtx) (Value, error) { return minMax(c, false) }},
		{"Take", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			n, err := c.Int(0)
			if err != nil {
				return Nothing, err
			}
			if n < 0 {
				n = 0
			}
			if int(n) > len(items) {
				n = int64(len(items))
			}
			return listOf(items[:n]), nil
		}},
		{"Skip", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			n, err := c.Int(0)
			if err != nil {
				return Nothing, err
			}
			if n < 0 {
				n = 0
			}
			if int(n) > len(items) {
				n = int64(len(items))
			}
			return listOf(items[n:]), nil
		}},
		{"Reverse", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			out := make([]Value, len(items))
			for i, v := range items {
				out[len(items)-1-i] = v
			}
			return listOf(out), nil
		}},
		{"Distinct", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			var out []Value
			for _, item := range items {
				if !containsValue(out, item) {
					out = append(out, item)
				}
			}
			return listOf(out), nil
		}},
		{"Union", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			other, err := queryItems(c.Arg(0))
			if err != nil {
				return Nothing, err
			}
			var out []Value
			for _, item := range append(items, other...) {
				if !containsValue(out, item) {
					out = append(out, item)
				}
			}
			return listOf(out), nil
		}},
		{"Intersect", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			other, err := queryItems(c.Arg(0))
			if err != nil {
				return Nothing, err
			}
			var out []Value
			for _, item := range items {
				if containsValue(other, item) && !containsValue(out, item) {
					out = append(out, item)
				}
			}
			return listOf(out), nil
		}},
		{"Except", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			other, err := queryItems(c.Arg(0))
			if err != nil {
				return Nothing, err
			}
			var out []Value
			for _, item := range items {
				if !containsValue(other, item) && !containsValue(out, item) {
					out = append(out, item)
				}
			}
			return listOf(out), nil
		}},
		{"ToList", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			return listOf(items), nil
		}},
		{"ToArray", func(c *CallCtx) (Value, error) {
			items, err := queryItems(c.Recv)
			if err != nil {
				return Nothing, err
			}
			arr := NewArray([]int{len(items)})
			copy(arr.Elems, items)
			return ArrVal(arr), nil
		}},
	}
	forEachQueryType(func(typeName string) {
		for _, op := range ops {
			if typeName == "List" && (op.name == "Count" || op.name == "Contains") {
				continue // the List member table already binds these
			}
			ip.RegisterMethod(typeName, op.name, op.impl)
		}
	})
}

func containsValue(items []Value, v Value) bool {
	for _, item := range items {
		if valuesEqual(item, v) {
			return true
		}
	}
	return false
}

func firstMatch(c *CallCtx) (Value, bool, error) {
	items, err := queryItems(c.Recv)
	if err != nil {
		return Nothing, false, err
	}
	if len(c.Args) == 0 {
		if len(items) == 0 {
			return Nothing, false, nil
		}
		return items[0], true, nil
	}
	for _, item := range items {
		v, err := applySelector(c, c.Arg(0), item)
		if err != nil {
			return Nothing, false, err
		}
		hit, err := truthy(v)
		if err != nil {
			return Nothing, false, err
		}
		if hit {
			return item, true, nil
		}
	}
	return Nothing, false, nil
}

func orderBy(c *CallCtx, descending bool) (Value, error) {
	items, err := queryItems(c.Recv)
	if err != nil {
		return Nothing, err
	}
	keys := make([]Value, len(items))
	for i, item := range items {
		if len(c.Args) > 0 {
			k, err := applySelector(c, c.Arg(0), item)
			if err != nil {
				return Nothing, err
			}
			keys[i] = k
		} else {
			keys[i] = item
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(a, b int) bool {
		cmp, err := compareValues(keys[idx[a]], keys[idx[b]])
		if err != nil && sortErr == nil {
			sortErr = err
		}
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
	if sortErr != nil {
		return Nothing, sortErr
	}
	out := make([]Value, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return listOf(out), nil
}

func foldNumeric(c *CallCtx, op func(acc, x float64) float64, seed float64) (Value, error) {
	items, err := queryItems(c.Recv)
	if err != nil {
		return Nothing, err
	}
	acc := seed
	allIntegral := true
	for _, item := range items {
		v := item
		if len(c.Args) > 0 {
			v, err = applySelector(c, c.Arg(0), item)
			if err != nil {
				return Nothing, err
			}
		}
		f, err := asDouble(v)
		if err != nil {
			return Nothing, err
		}
		if !v.isIntegral() {
			allIntegral = false
		}
		acc = op(acc, f)
	}
	if allIntegral && acc == float64(int64(acc)) {
		return LngVal(int64(acc)).normalizeInt(), nil
	}
	return DblVal(acc), nil
}

func minMax(c *CallCtx, wantMin bool) (Value, error) {
	items, err := queryItems(c.Recv)
	if err != nil {
		return Nothing, err
	}
	if len(items) == 0 {
		return Nothing, fmt.Errorf("Sequence contains no elements")
	}
	best := items[0]
	bestKey := best
	if len(c.Args) > 0 {
		bestKey, err = applySelector(c, c.Arg(0), best)
		if err != nil {
			return Nothing, err
		}
	}
	for _, item := range items[1:] {
		key := item
		if len(c.Args) > 0 {
			key, err = applySelector(c, c.Arg(0), item)
			if err != nil {
				return Nothing, err
			}
		}
		cmp, err := compareValues(key, bestKey)
		if err != nil {
			return Nothing, err
		}
		if (wantMin && cmp < 0) || (!wantMin && cmp > 0) {
			best, bestKey = item, key
		}
	}
	return best, nil
}

