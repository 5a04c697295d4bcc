package treesync

// DirectoryTree is a canonically ordered, read-only snapshot of a
// filesystem subtree rooted at RootPath. Index maps every node's
// relative Path to that node; it is rebuilt whenever a tree is built and
// is never mutated afterward (the only mutation a tree permits at all is
// on-demand hash population inside a File node's FileMeta, which does not
// change Index's validity).
type DirectoryTree struct {
	RootPath string
	Root     *Node
	Index    map[string]*Node

	// cache, if non-nil, is the Scanner's across-scan hash cache that
	// produced this tree. GenerateHash writes freshly computed hashes
	// back into it so a later scan of the same root can skip rehashing
	// unchanged files.
	cache *hashCache
}

func buildIndex(tree *DirectoryTree) {
	tree.Index = make(map[string]*Node)
	var walk func(n *Node)
	walk = func(n *Node) {
		tree.Index[n.Path] = n
		if n.Type == Directory {
			for _, child := range n.Children {
				walk(child)
			}
		}
	}
	walk(tree.Root)
}

// Get looks up the node at a relative path, returning nil if none exists.
func (t *DirectoryTree) Get(relPath string) *Node {
	return t.Index[relPath]
}
