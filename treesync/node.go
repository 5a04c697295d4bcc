package treesync

import "time"

// Hash is a SHA-256 digest of a file's byte contents.
type Hash [32]byte

// NodeType distinguishes a File from a Directory node.
type NodeType uint8

const (
	// File nodes carry a FileMeta and no children.
	File NodeType = 0
	// Directory nodes carry an ordered slice of children and no FileMeta.
	Directory NodeType = 1
)

func (t NodeType) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "unknown"
	}
}

// FileMeta holds the metadata of a File node. FileHash is nil until
// GenerateHash (or a cache hit during Scan) populates it.
type FileMeta struct {
	Size     uint64
	FileHash *Hash
}

// Node is one entry in a DirectoryTree: either a File (with FileMeta) or a
// Directory (with Children). Only one of Meta/Children is meaningful,
// selected by Type — this is a manually tagged union rather than an
// interface, so Diff and the wire codec can switch on Type directly
// instead of doing type assertions or virtual dispatch.
//
// Path is always relative to the owning tree's root and always uses "/"
// as the separator, root's Path is the empty string. This holds both in
// memory and on the wire; native path separators are applied only at the
// filesystem boundary (Scan and the session package's file receiver).
type Node struct {
	Name    string
	Path    string
	Type    NodeType
	ModTime time.Time

	Meta     FileMeta
	Children []*Node
}

// NodeSnapshot is a flat, copyable projection of a Node, used only inside
// diff output — it survives independently of the tree that produced it.
type NodeSnapshot struct {
	Path     string
	Type     NodeType
	ModTime  time.Time
	Size     uint64
	FileHash *Hash
}

func snapshot(n *Node) NodeSnapshot {
	s := NodeSnapshot{
		Path:    n.Path,
		Type:    n.Type,
		ModTime: n.ModTime,
	}
	if n.Type == File {
		s.Size = n.Meta.Size
		s.FileHash = n.Meta.FileHash
	}
	return s
}

// ChangeKind is the kind of change a NodeDiff reports.
type ChangeKind uint8

const (
	Added ChangeKind = iota
	Deleted
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// NodeDiff is one emitted change record. Added has only New, Deleted has
// only Old, Modified has both.
type NodeDiff struct {
	Kind ChangeKind
	Old  *NodeSnapshot
	New  *NodeSnapshot
}

func addedDiff(n *Node) NodeDiff {
	s := snapshot(n)
	return NodeDiff{Kind: Added, New: &s}
}

func deletedDiff(n *Node) NodeDiff {
	s := snapshot(n)
	return NodeDiff{Kind: Deleted, Old: &s}
}

func modifiedDiff(oldNode, newNode *Node) NodeDiff {
	o, n := snapshot(oldNode), snapshot(newNode)
	return NodeDiff{Kind: Modified, Old: &o, New: &n}
}
