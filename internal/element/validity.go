package element

// Flatten returns every descendant of e in depth-first pre-order, e excluded.
func Flatten(e Element) []Element {
	if e == nil {
		return nil
	}
	var out []Element
	var walk func(Element)
	walk = func(n Element) {
		for _, c := range n.tree().children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(e)
	return out
}

// MarkChildrenPending marks the direct children of e Pending. This opens a pass over e:
// children that are not confirmed again before InvalidatePending runs become Invalid.
func MarkChildrenPending(e Element) {
	if e == nil {
		return
	}
	for _, c := range e.tree().children {
		c.SetState(Pending)
	}
}

// MarkSubtreePending marks e and all of its descendants Pending.
func MarkSubtreePending(e Element) {
	if e == nil {
		return
	}
	e.SetState(Pending)
	for _, d := range Flatten(e) {
		d.SetState(Pending)
	}
}

// InvalidatePending demotes every Pending descendant of e to Invalid and returns how many
// changed. Descendants in any other state are left alone, so a second call is a no-op.
func InvalidatePending(e Element) int {
	n := 0
	for _, d := range Flatten(e) {
		if d.State() == Pending {
			d.SetState(Invalid)
			n++
		}
	}
	return n
}

// Invalidate demotes a Pending element itself to Invalid. Elements in other states are
// untouched: an element only becomes Invalid by way of Pending.
func Invalidate(e Element) bool {
	if e == nil || e.State() != Pending {
		return false
	}
	e.SetState(Invalid)
	return true
}
