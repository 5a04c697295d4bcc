package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/t3nsor27/file-sync/treesync"
)

// DefaultChunkSize is a SendFile chunk size for callers that don't need a
// different one.
const DefaultChunkSize = 1 << 20

// ReceiveTreeAndFiles receives every Added or Modified file named in
// diff, one at a time over s (ReceiveFile's own exclusion already
// prevents these from overlapping), then re-scans tree.RootPath exactly
// once at the end and returns the fresh tree.
//
// This is the batched re-scan policy: receiving N files costs one scan,
// not N.
func ReceiveTreeAndFiles(ctx context.Context, s *Session, tree *treesync.DirectoryTree, diff []treesync.NodeDiff) (*treesync.DirectoryTree, error) {
	for _, d := range diff {
		if d.Kind != treesync.Added && d.Kind != treesync.Modified {
			continue
		}
		if d.New == nil || d.New.Type != treesync.File {
			continue
		}
		if _, err := s.ReceiveFile(ctx, tree); err != nil {
			return nil, errors.Wrapf(err, "receiving %s", d.New.Path)
		}
	}

	fresh, err := treesync.Scan(tree.RootPath)
	if err != nil {
		return nil, errors.Wrapf(err, "re-scanning %s", tree.RootPath)
	}
	return fresh, nil
}
