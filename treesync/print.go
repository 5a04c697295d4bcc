package treesync

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes a human-readable, indented listing of tree to w — a
// debug aid, not part of the wire format or diff contract. No caller in
// this package or session uses it; it exists for driver-level tooling
// that wants to eyeball a scanned tree.
func Fprint(w io.Writer, tree *DirectoryTree) {
	fprintNode(w, tree.Root, 0)
}

func fprintNode(w io.Writer, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n.Type {
	case Directory:
		name := n.Name
		if name == "" {
			name = "."
		}
		fmt.Fprintf(w, "%s%s/\n", indent, name)
		for _, child := range n.Children {
			fprintNode(w, child, depth+1)
		}
	case File:
		fmt.Fprintf(w, "%s%s  (%d bytes, %s)\n", indent, n.Name, n.Meta.Size, fprintHash(n.Meta.FileHash))
	}
}

func fprintHash(h *Hash) string {
	if h == nil {
		return "no hash"
	}
	return fmt.Sprintf("%x", h[:4])
}
