// Package element models the test elements a host renders and runs: contexts, behaviors
// and the specifications below them, with their validity state.
package element

// State is the validity of an element within the current scan pass.
type State int

const (
	// Valid elements were confirmed by the latest pass.
	Valid State = iota
	// Pending elements were known before the pass and are not confirmed yet.
	Pending
	// Invalid elements were not confirmed by the end of a pass.
	Invalid
)

func (s State) String() string {
	switch s {
	case Valid:
		return "valid"
	case Pending:
		return "pending"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, bool) {
	switch s {
	case "valid":
		return Valid, true
	case "pending":
		return Pending, true
	case "invalid":
		return Invalid, true
	}
	return Valid, false
}

// Kind identifies the concrete element type.
type Kind string

const (
	KindContext               Kind = "context"
	KindBehavior              Kind = "behavior"
	KindContextSpecification  Kind = "context_specification"
	KindBehaviorSpecification Kind = "behavior_specification"
)

// Location is where an element was last confirmed. It never takes part in identity.
type Location struct {
	File      string `json:"file,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

// Element is a node of the test tree.
type Element interface {
	ID() string
	Kind() Kind
	Name() string
	Parent() Element
	Children() []Element
	State() State
	SetState(State)
	IsIgnored() bool
	Location() Location
	SetLocation(Location)

	tree() *node
}

// node is the tree plumbing shared by every element.
type node struct {
	self     Element
	parent   Element
	children []Element
	state    State
	loc      Location
}

func (n *node) Parent() Element { return n.parent }

// Children returns a copy of the child list.
func (n *node) Children() []Element {
	out := make([]Element, len(n.children))
	copy(out, n.children)
	return out
}

func (n *node) State() State { return n.state }
func (n *node) SetState(s State) { n.state = s }
func (n *node) Location() Location { return n.loc }
func (n *node) SetLocation(l Location) { n.loc = l }
func (n *node) tree() *node { return n }

// attach moves n under parent. Only the relation changes; a nil parent detaches.
func (n *node) attach(parent Element) {
	if n.parent == parent {
		return
	}
	if n.parent != nil {
		old := n.parent.tree()
		for i, c := range old.children {
			if c == n.self {
				old.children = append(old.children[:i], old.children[i+1:]...)
				break
			}
		}
	}
	n.parent = parent
	if parent != nil {
		p := parent.tree()
		p.children = append(p.children, n.self)
	}
}

// Detach removes e from its parent's children.
func Detach(e Element) {
	if e != nil {
		e.tree().attach(nil)
	}
}
