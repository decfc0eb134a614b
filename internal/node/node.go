package node

// Kind identifies a task's runtime behavior.
type Kind string

const (
	KindDo     Kind = "do"
	KindFor    Kind = "for"
	KindSwitch Kind = "switch"
	KindFork   Kind = "fork"
	KindTry    Kind = "try"
	KindSet    Kind = "set"
	KindRaise  Kind = "raise"
	KindWait   Kind = "wait"
	KindCall   Kind = "call"
	KindListen Kind = "listen"
	KindEmit   Kind = "emit"
)

// Node is an immutable tuple (position, kind, definition, name, parent).
// Exactly one Node exists per tree location; Nodes are shared and
// read-only once the tree is built and cached.
type Node struct {
	Position   Position
	Kind       Kind
	Name       string
	Definition any // the kind-specific *tasks.XConfig, opaque to this package
	Parent     *Node
	Children   []*Node // primary body, meaning depends on Kind (Do's sequence, For/Fork's loop/branch body, Try's try-block)

	childByName map[string]int
}

// NewNode constructs a Node and indexes its children by name for O(1)
// sibling lookup. Children already carry their own Position and Parent.
func NewNode(pos Position, kind Kind, name string, definition any, parent *Node, children []*Node) *Node {
	n := &Node{
		Position:   pos,
		Kind:       kind,
		Name:       name,
		Definition: definition,
		Parent:     parent,
		Children:   children,
	}
	n.childByName = make(map[string]int, len(children))
	for i, c := range children {
		if c.Name != "" {
			n.childByName[c.Name] = i
		}
	}
	return n
}

// SetChildren replaces a Node's children and rebuilds the by-name index.
// Used by compilers that must construct a Node before its body is fully
// compiled (the body's own Parent pointer is this Node).
func (n *Node) SetChildren(children []*Node) {
	n.Children = children
	n.childByName = make(map[string]int, len(children))
	for i, c := range children {
		if c.Name != "" {
			n.childByName[c.Name] = i
		}
	}
}

// ChildByName returns a child by its declared name, O(1).
func (n *Node) ChildByName(name string) (*Node, bool) {
	idx, ok := n.childByName[name]
	if !ok {
		return nil, false
	}
	return n.Children[idx], true
}

// ChildAt returns the i-th child, or nil if out of range.
func (n *Node) ChildAt(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// IsRoot reports whether n is the workflow's top-level node.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// Tree is the full compiled node tree for one (name, version) workflow
// definition. It is built once and may be shared/cached freely across
// concurrently executing instances.
type Tree struct {
	Name    string
	Version string
	Root    *Node

	byPosition map[string]*Node
}

// NewTree indexes every node in the tree by its position string for
// O(depth) lookup (the index itself makes lookup O(1), but depth bounds
// how the index is built during compilation).
func NewTree(name, version string, root *Node) *Tree {
	t := &Tree{Name: name, Version: version, Root: root, byPosition: make(map[string]*Node)}
	t.index(root)
	return t
}

func (t *Tree) index(n *Node) {
	if n == nil {
		return
	}
	t.byPosition[n.Position.String()] = n
	for _, c := range n.Children {
		t.index(c)
	}
}

// Index registers an out-of-band node (e.g. a Try's catch body, a
// Switch case body, a Fork branch body) discovered while compiling,
// so NodeAt can resolve positions that are not reachable purely via
// Children traversal from Root.
func (t *Tree) Index(n *Node) {
	t.index(n)
}

// NodeAt resolves a position to its Node, or nil if absent.
func (t *Tree) NodeAt(pos Position) *Node {
	return t.byPosition[pos.String()]
}
