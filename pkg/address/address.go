// Package address parses and formats actor addresses of the form
// node@process:package:publisher.
package address

import "strings"

// ProcessID identifies a process independently of the node it runs on.
type ProcessID struct {
	Process   string
	Package   string
	Publisher string
}

// String renders the id as process:package:publisher.
func (p ProcessID) String() string {
	return p.Process + ":" + p.Package + ":" + p.Publisher
}

// IsZero reports whether no segment is set.
func (p ProcessID) IsZero() bool {
	return p.Process == "" && p.Package == "" && p.Publisher == ""
}

// ParseProcessID splits process:package:publisher. Missing segments are
// left empty and anything after a fourth colon is ignored.
func ParseProcessID(s string) ProcessID {
	process, rest := cut(s, ":")
	pkg, rest := cut(rest, ":")
	publisher, _ := cut(rest, ":")
	return ProcessID{Process: process, Package: pkg, Publisher: publisher}
}

// Address is a node name plus the process running on it.
type Address struct {
	Node    string
	Process ProcessID
}

// New builds an address from its four components.
func New(node, process, pkg, publisher string) Address {
	return Address{Node: node, Process: ProcessID{Process: process, Package: pkg, Publisher: publisher}}
}

// Parse splits node@process:package:publisher into its components. It never
// fails: absent segments become empty strings.
func Parse(s string) Address {
	node, rest := cut(s, "@")
	return Address{Node: node, Process: ParseProcessID(rest)}
}

// Components returns node, process, package and publisher in order.
func (a Address) Components() (node, process, pkg, publisher string) {
	return a.Node, a.Process.Process, a.Process.Package, a.Process.Publisher
}

// String renders the address; a bare node name is returned when no
// process segment is set.
func (a Address) String() string {
	if a.Process.IsZero() {
		return a.Node
	}
	return a.Node + "@" + a.Process.String()
}

// WithNode returns the same process identity on another node.
func (a Address) WithNode(node string) Address {
	a.Node = node
	return a
}

// MarshalText encodes the address in its string form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an address string. Malformed input is accepted.
func (a *Address) UnmarshalText(b []byte) error {
	*a = Parse(string(b))
	return nil
}

// cut behaves like a partition: everything before sep, everything after it.
// When sep is absent the whole string is the head.
func cut(s, sep string) (string, string) {
	head, tail, _ := strings.Cut(s, sep)
	return head, tail
}
