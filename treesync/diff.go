package treesync

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// parallelHashThreshold is the minimum number of candidate same-name
// File/File pairs in one directory before their hash-and-compare step is
// fanned out across goroutines instead of done inline. Below it the
// overhead of spinning up an errgroup outweighs any benefit.
const parallelHashThreshold = 8

// Diff merge-walks old and new — both must be canonically ordered, which
// Scan guarantees — and returns the sequence of changes needed to bring
// old into agreement with new, in pre-order with canonically ordered
// sibling emissions.
//
// File hashing is lazy: GenerateHash is invoked on a same-path,
// same-type, same-size File pair only to decide whether they're actually
// identical, never for a pair that size alone already proves different,
// and never for directories or type-changed entries at all.
func Diff(old, new *DirectoryTree) ([]NodeDiff, error) {
	return diffChildren(old, old.Root.Children, new, new.Root.Children)
}

// pendingHash is a same-size File/File pair whose hash-and-compare
// decides whether it is Modified; resolved after the merge-walk of one
// directory level so independent pairs can be hashed concurrently.
type pendingHash struct {
	slot             int
	oldTree, newTree *DirectoryTree
	oldNode, newNode *Node
}

func diffChildren(oldTree *DirectoryTree, oldChildren []*Node, newTree *DirectoryTree, newChildren []*Node) ([]NodeDiff, error) {
	var (
		diffs []NodeDiff
		i, j  int
		toHash []pendingHash
	)

	for i < len(oldChildren) && j < len(newChildren) {
		oldNode, newNode := oldChildren[i], newChildren[j]

		switch {
		case oldNode.Name == newNode.Name:
			switch {
			case oldNode.Type != newNode.Type:
				diffs = append(diffs, modifiedDiff(oldNode, newNode))

			case oldNode.Type == Directory:
				sub, err := diffChildren(oldTree, oldNode.Children, newTree, newNode.Children)
				if err != nil {
					return nil, err
				}
				diffs = append(diffs, sub...)

			case oldNode.Meta.Size != newNode.Meta.Size:
				diffs = append(diffs, modifiedDiff(oldNode, newNode))

			default:
				// Same size: defer the hash-and-compare so same-size pairs in
				// this directory can be hashed concurrently below.
				diffs = append(diffs, NodeDiff{}) // placeholder, filled in after hashing
				toHash = append(toHash, pendingHash{
					slot: len(diffs) - 1,
					oldTree: oldTree, newTree: newTree,
					oldNode: oldNode, newNode: newNode,
				})
			}
			i++
			j++

		// oldNode sorts first in canonical order: directories before
		// files, then by name within the same type.
		case oldNode.Type == Directory && newNode.Type != Directory,
			oldNode.Type == newNode.Type && oldNode.Name < newNode.Name:
			diffs = append(diffs, deletedDiff(oldNode))
			i++

		default:
			diffs = append(diffs, addedDiff(newNode))
			j++
		}
	}

	for ; i < len(oldChildren); i++ {
		diffs = append(diffs, deletedDiff(oldChildren[i]))
	}
	for ; j < len(newChildren); j++ {
		diffs = append(diffs, addedDiff(newChildren[j]))
	}

	if err := resolvePending(toHash, diffs); err != nil {
		return nil, err
	}

	// Compact: drop placeholder slots whose pair turned out identical.
	return compactDiffs(diffs), nil
}

func resolvePending(toHash []pendingHash, diffs []NodeDiff) error {
	if len(toHash) == 0 {
		return nil
	}

	hashOne := func(p pendingHash) error {
		if err := GenerateHash(p.oldTree, p.oldNode); err != nil {
			return errors.Wrapf(err, "hashing old %s", p.oldNode.Path)
		}
		if err := GenerateHash(p.newTree, p.newNode); err != nil {
			return errors.Wrapf(err, "hashing new %s", p.newNode.Path)
		}
		if *p.oldNode.Meta.FileHash != *p.newNode.Meta.FileHash {
			diffs[p.slot] = modifiedDiff(p.oldNode, p.newNode)
		}
		return nil
	}

	if len(toHash) < parallelHashThreshold {
		for _, p := range toHash {
			if err := hashOne(p); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for _, p := range toHash {
		p := p
		g.Go(func() error { return hashOne(p) })
	}
	return g.Wait()
}

// compactDiffs drops the zero-value NodeDiff placeholders left by pairs
// that hashed identical.
func compactDiffs(diffs []NodeDiff) []NodeDiff {
	out := diffs[:0]
	for _, d := range diffs {
		if d.Old == nil && d.New == nil {
			continue
		}
		out = append(out, d)
	}
	return out
}
