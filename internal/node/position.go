// Package node implements the immutable task tree and the JSON-pointer
// position addressing scheme used to locate a node within it.
package node

import (
	"strconv"
	"strings"
)

// Position is a sequence of JSON-pointer tokens locating a node within
// a workflow's compiled tree, e.g. {"do", "0", "try", "catch", "do", "1"}.
type Position []string

// Root is the position of the workflow's top-level do block.
var Root = Position{}

// ParsePosition parses a JSON-pointer string ("/do/0/try") into a Position.
// The empty string and "/" both parse to Root.
func ParsePosition(s string) Position {
	if s == "" || s == "/" {
		return Position{}
	}
	s = strings.TrimPrefix(s, "/")
	parts := strings.Split(s, "/")
	pos := make(Position, len(parts))
	for i, p := range parts {
		pos[i] = unescapeToken(p)
	}
	return pos
}

// String renders the position back to its JSON-pointer form.
func (p Position) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, tok := range p {
		b.WriteByte('/')
		b.WriteString(escapeToken(tok))
	}
	return b.String()
}

// AppendIndex returns a new position with a numeric child index appended.
func (p Position) AppendIndex(i int) Position {
	return p.AppendToken(strconv.Itoa(i))
}

// AppendToken returns a new position with a structural token
// ("do", "try", "catch", "for", "then", "switch", "branch") appended.
func (p Position) AppendToken(tok string) Position {
	out := make(Position, len(p)+1)
	copy(out, p)
	out[len(p)] = tok
	return out
}

// AppendName returns a new position with a named sibling's key appended.
func (p Position) AppendName(name string) Position {
	return p.AppendToken(name)
}

// Parent returns the position's parent, or Root if already at the root.
func (p Position) Parent() Position {
	if len(p) == 0 {
		return Position{}
	}
	return p[:len(p)-1]
}

// IsRoot reports whether this is the root position.
func (p Position) IsRoot() bool {
	return len(p) == 0
}

// Equal reports structural equality between two positions.
func (p Position) Equal(other Position) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Ancestors returns every ancestor position from Root down to (not
// including) p itself, in outside-in order.
func (p Position) Ancestors() []Position {
	out := make([]Position, 0, len(p))
	for i := 0; i < len(p); i++ {
		out = append(out, p[:i])
	}
	return out
}

func escapeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~", "~0")
	tok = strings.ReplaceAll(tok, "/", "~1")
	return tok
}

func unescapeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")
	return tok
}
