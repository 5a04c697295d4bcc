package treesync

import (
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// GenerateHash computes node's SHA-256 digest and caches it in node's
// FileMeta. node must be a File belonging to tree (its Path is resolved
// against tree.RootPath). Idempotent: if node.Meta.FileHash is already
// populated — whether by a prior GenerateHash call, a hash cache hit
// during scanning, or deserialization off the wire — this is a no-op.
//
// Unlike a whole-file read into memory, the file is streamed through the
// hasher via io.Copy, so memory use is independent of file size. If tree
// came from a Scanner with a hash cache, the freshly computed digest is
// written back into it, keyed on node's path, size, and mtime, so a
// later scan of the same root can skip rehashing an unchanged file.
func GenerateHash(tree *DirectoryTree, node *Node) error {
	if node.Type != File {
		return errors.Wrapf(ErrNotAFile, "node %s", node.Path)
	}
	if node.Meta.FileHash != nil {
		return nil
	}

	absPath := filepath.Join(tree.RootPath, filepath.FromSlash(node.Path))

	f, err := os.Open(absPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", absPath)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return errors.Wrapf(err, "reading %s", absPath)
	}

	var sum Hash
	copy(sum[:], h.Sum(nil))
	node.Meta.FileHash = &sum

	tree.cache.add(hashCacheKey{path: node.Path, size: node.Meta.Size, modTime: node.ModTime.UnixNano()}, sum)

	return nil
}

// HashAll computes GenerateHash for every File node in tree, stopping at
// the first error. Callers that are about to serialize a tree onto the
// wire use this to ensure every node carries a real hash, so the peer
// that receives the tree never needs to (and, lacking tree's local
// files, never could) compute one itself — treesync.Diff's lazy hashing
// then only ever touches a local filesystem.
func HashAll(tree *DirectoryTree) error {
	for _, node := range tree.Index {
		if node.Type != File {
			continue
		}
		if err := GenerateHash(tree, node); err != nil {
			return errors.Wrapf(err, "hashing %s", node.Path)
		}
	}
	return nil
}
