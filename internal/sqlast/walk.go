package sqlast

// Children returns the direct sub-expressions of e. Sub-queries are not entered.
func Children(e Expression) []Expression {
	switch n := e.(type) {
	case *Call:
		return n.Args
	case *Windowed:
		out := []Expression{n.Func}
		out = append(out, n.PartitionBy...)
		for _, o := range n.OrderBy {
			out = append(out, o.Key)
		}
		return out
	case *Comparison:
		return []Expression{n.Left, n.Right}
	case *Logical:
		return []Expression{n.Left, n.Right}
	case *Arithmetic:
		return []Expression{n.Left, n.Right}
	case *Not:
		return []Expression{n.Value}
	case *Negative:
		return []Expression{n.Value}
	case *Case:
		out := make([]Expression, 0, 2*len(n.Whens)+1)
		for _, w := range n.Whens {
			out = append(out, w.Condition, w.Result)
		}
		if n.Else != nil {
			out = append(out, n.Else)
		}
		return out
	case *Cast:
		return []Expression{n.Value}
	case *IsNull:
		return []Expression{n.Value}
	case *IsNotNull:
		return []Expression{n.Value}
	case *Like:
		return []Expression{n.Value, n.Pattern}
	case *NamedArgument:
		return []Expression{n.Value}
	case *FunctionCall:
		return n.Args
	default:
		return nil
	}
}

// ContainsWindow reports whether e applies a window function anywhere.
func ContainsWindow(e Expression) bool {
	if e == nil {
		return false
	}
	if _, ok := e.(*Windowed); ok {
		return true
	}
	for _, c := range Children(e) {
		if ContainsWindow(c) {
			return true
		}
	}
	return false
}
