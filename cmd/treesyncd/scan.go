package main

import (
	"context"
	"flag"
	"os"

	"github.com/pkg/errors"

	"github.com/t3nsor27/file-sync/treesync"
)

func (c maincmd) scanCmd(ctx context.Context, fs *flag.FlagSet, args []string) error {
	cacheSize := fs.Int("cache", 0, "hash cache size (0 disables caching)")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}

	scanner := treesync.NewScanner(treesync.WithHashCache(*cacheSize))
	tree, err := scanner.Scan(c.conf.Root)
	if err != nil {
		return errors.Wrapf(err, "scanning %s", c.conf.Root)
	}

	treesync.Fprint(os.Stdout, tree)
	return nil
}
