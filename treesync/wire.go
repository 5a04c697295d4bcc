package treesync

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/t3nsor27/file-sync/wire"
)

// ErrWireError is returned by ReadNode/DeserializeTree when the byte
// stream carries a type tag outside {File, Directory} or a hash flag
// other than 0/1. A failing primitive read (a short stream, an over-long
// string) is returned wrapped with context but is not ErrWireError.
var ErrWireError = errors.New("malformed tree wire data")

// SerializeTree writes tree's root node (and transitively everything
// beneath it) to w in the pre-order NODE encoding. root_path is never
// written — the receiver supplies its own.
func SerializeTree(w io.Writer, tree *DirectoryTree) error {
	return WriteNode(w, tree.Root)
}

// DeserializeTree reads a NODE encoding from r and wraps it in a fresh
// DirectoryTree rooted at rootPath, with Index rebuilt. rootPath is
// supplied by the caller; it never travels on the wire.
func DeserializeTree(r io.Reader, rootPath string) (*DirectoryTree, error) {
	root, err := ReadNode(r)
	if err != nil {
		return nil, err
	}
	tree := &DirectoryTree{RootPath: rootPath, Root: root}
	buildIndex(tree)
	return tree, nil
}

// WriteNode writes one node, and if it is a Directory, all of its
// children recursively, in pre-order.
func WriteNode(w io.Writer, n *Node) error {
	if err := wire.WriteU8(w, uint8(n.Type)); err != nil {
		return errors.Wrapf(err, "writing type for %s", n.Path)
	}
	if err := wire.WriteU64(w, uint64(n.ModTime.UnixNano())); err != nil {
		return errors.Wrapf(err, "writing mtime for %s", n.Path)
	}
	if err := wire.WriteString(w, n.Name); err != nil {
		return errors.Wrapf(err, "writing name for %s", n.Path)
	}
	if err := wire.WriteString(w, n.Path); err != nil {
		return errors.Wrapf(err, "writing path for %s", n.Path)
	}

	switch n.Type {
	case File:
		if err := wire.WriteU64(w, n.Meta.Size); err != nil {
			return errors.Wrapf(err, "writing size for %s", n.Path)
		}
		if n.Meta.FileHash == nil {
			return errors.Wrap(wire.WriteU8(w, 0), "writing has_hash")
		}
		if err := wire.WriteU8(w, 1); err != nil {
			return errors.Wrapf(err, "writing has_hash for %s", n.Path)
		}
		if _, err := w.Write(n.Meta.FileHash[:]); err != nil {
			return errors.Wrapf(err, "writing hash for %s", n.Path)
		}

	case Directory:
		if err := wire.WriteU32(w, uint32(len(n.Children))); err != nil {
			return errors.Wrapf(err, "writing child_count for %s", n.Path)
		}
		for _, child := range n.Children {
			if err := WriteNode(w, child); err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadNode reads one node, and if it is a Directory, all of its children
// recursively, in pre-order.
func ReadNode(r io.Reader) (*Node, error) {
	typ, err := wire.ReadU8(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading type")
	}
	nodeType := NodeType(typ)
	if nodeType != File && nodeType != Directory {
		return nil, errors.Wrapf(ErrWireError, "unknown node type %d", typ)
	}

	ticks, err := wire.ReadU64(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading mtime")
	}
	name, err := wire.ReadString(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading name")
	}
	path, err := wire.ReadString(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading path")
	}

	n := &Node{
		Name:    name,
		Path:    path,
		Type:    nodeType,
		ModTime: time.Unix(0, int64(ticks)),
	}

	switch nodeType {
	case File:
		size, err := wire.ReadU64(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading size for %s", path)
		}
		hasHash, err := wire.ReadU8(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading has_hash for %s", path)
		}
		if hasHash > 1 {
			return nil, errors.Wrapf(ErrWireError, "invalid has_hash flag %d for %s", hasHash, path)
		}
		n.Meta = FileMeta{Size: size}
		if hasHash == 1 {
			var h Hash
			if _, err := io.ReadFull(r, h[:]); err != nil {
				return nil, errors.Wrapf(err, "reading hash for %s", path)
			}
			n.Meta.FileHash = &h
		}

	case Directory:
		count, err := wire.ReadU32(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading child_count for %s", path)
		}
		n.Children = make([]*Node, count)
		for i := range n.Children {
			child, err := ReadNode(r)
			if err != nil {
				return nil, err
			}
			n.Children[i] = child
		}
	}

	return n, nil
}
