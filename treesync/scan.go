package treesync

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Scanner builds DirectoryTrees from the filesystem. Use NewScanner to
// build one; it caches nothing and bounds concurrent directory walks at
// GOMAXPROCS unless given options.
type Scanner struct {
	cache       *hashCache
	concurrency int64
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithHashCache bounds a Scanner's across-scan hash cache to size entries.
// A scanned File whose (relative path, size, mtime) matches a cached
// entry gets that entry's Hash installed directly, so a later
// GenerateHash call on it is a no-op. size <= 0 disables the cache.
func WithHashCache(size int) ScannerOption {
	return func(s *Scanner) {
		c, err := newHashCache(size)
		if err == nil {
			s.cache = c
		}
	}
}

// NewScanner builds a Scanner. With no options it caches nothing and caps
// concurrent directory walks at GOMAXPROCS.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{concurrency: int64(runtime.GOMAXPROCS(0))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan builds a DirectoryTree rooted at root, which must exist and be a
// directory. Entries that are neither regular files nor directories
// (symlinks, devices, sockets, …) are silently skipped, per this
// package's scope — it models only regular files and directories.
func Scan(root string) (*DirectoryTree, error) {
	return NewScanner().Scan(root)
}

// Scan builds a DirectoryTree rooted at root using s's cache and
// concurrency settings.
func (s *Scanner) Scan(root string) (*DirectoryTree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPath, "stat %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrInvalidPath, "%s is not a directory", root)
	}

	sem := semaphore.NewWeighted(s.concurrency)
	ctx := context.Background()

	rootNode, err := s.scanDir(ctx, sem, root, "", "")
	if err != nil {
		return nil, err
	}

	tree := &DirectoryTree{RootPath: root, Root: rootNode, cache: s.cache}
	buildIndex(tree)
	return tree, nil
}

// scanDir builds the Node for the directory at absPath, whose relative
// path (within the tree being built) is relPath and whose basename is
// name ("" only for the tree root).
func (s *Scanner) scanDir(ctx context.Context, sem *semaphore.Weighted, absPath, relPath, name string) (*Node, error) {
	// A slot is held only while reading this directory, never while
	// waiting on its children, so nested walks cannot starve each other.
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "acquiring scan concurrency slot")
	}
	entries, err := os.ReadDir(absPath)
	if err != nil {
		sem.Release(1)
		return nil, errors.Wrapf(err, "reading dir %s", absPath)
	}

	info, err := os.Stat(absPath)
	sem.Release(1)
	if err != nil {
		return nil, errors.Wrapf(err, "statting dir %s", absPath)
	}

	children := make([]*Node, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		i, entry := i, entry

		if !entry.IsDir() && !entry.Type().IsRegular() {
			// Skip symlinks, devices, sockets, etc.; leave children[i] nil
			// and compact the slice afterward.
			continue
		}

		g.Go(func() error {
			childAbs := filepath.Join(absPath, entry.Name())
			childRel := joinRelPath(relPath, entry.Name())

			if entry.IsDir() {
				child, err := s.scanDir(gctx, sem, childAbs, childRel, entry.Name())
				if err != nil {
					return err
				}
				children[i] = child
				return nil
			}

			if err := sem.Acquire(gctx, 1); err != nil {
				return errors.Wrap(err, "acquiring scan concurrency slot")
			}
			defer sem.Release(1)

			child, err := s.scanFile(childAbs, childRel, entry)
			if err != nil {
				return err
			}
			children[i] = child
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	children = compactNodes(children)
	sortCanonical(children)

	return &Node{
		Name:     name,
		Path:     relPath,
		Type:     Directory,
		ModTime:  info.ModTime(),
		Children: children,
	}, nil
}

func (s *Scanner) scanFile(absPath, relPath string, entry os.DirEntry) (*Node, error) {
	info, err := entry.Info()
	if err != nil {
		return nil, errors.Wrapf(err, "statting file %s", absPath)
	}

	node := &Node{
		Name:    entry.Name(),
		Path:    relPath,
		Type:    File,
		ModTime: info.ModTime(),
		Meta:    FileMeta{Size: uint64(info.Size())},
	}

	if h, ok := s.cache.get(hashCacheKey{path: relPath, size: node.Meta.Size, modTime: node.ModTime.UnixNano()}); ok {
		node.Meta.FileHash = &h
	}

	return node, nil
}

// compactNodes removes the nil holes left by skipped non-regular,
// non-directory entries, preserving relative order.
func compactNodes(nodes []*Node) []*Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// sortCanonical sorts children directories-first, then lexicographically
// by name within each group — the sole ordering used throughout this
// package (invariant 1).
func sortCanonical(children []*Node) {
	sort.Slice(children, func(i, j int) bool {
		a, b := children[i], children[j]
		if a.Type != b.Type {
			return a.Type == Directory
		}
		return a.Name < b.Name
	})
}

func joinRelPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
