package main

import (
	"context"
	"flag"
	"log"

	"github.com/pkg/errors"

	"github.com/t3nsor27/file-sync/session"
	"github.com/t3nsor27/file-sync/treesync"
)

// push connects to a listening peer, exchanges trees, and sends every
// file the peer's diff (computed identically on both sides, per serve's
// comment) found Added or Modified.
func (c maincmd) push(ctx context.Context, fs *flag.FlagSet, args []string) error {
	host := fs.String("host", "127.0.0.1", "peer host")
	port := fs.Int("port", 7465, "peer port")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}

	p := session.NewPeer()
	s, err := p.Connect(ctx, *host, *port)
	if err != nil {
		return err
	}
	defer s.Close()

	oldTree, err := s.ReceiveTree(ctx, c.conf.Root)
	if err != nil {
		return errors.Wrap(err, "receiving peer's tree")
	}

	newTree, err := treesync.Scan(c.conf.Root)
	if err != nil {
		return errors.Wrapf(err, "scanning %s", c.conf.Root)
	}
	// Hash every file before it crosses the wire. The peer's copy of
	// newTree has no local files of its own to read, so it relies on
	// these hashes being already populated when it diffs against them.
	if err := treesync.HashAll(newTree); err != nil {
		return errors.Wrapf(err, "hashing %s", c.conf.Root)
	}
	if err := s.SendTree(ctx, newTree); err != nil {
		return errors.Wrap(err, "sending tree")
	}

	diffs, err := treesync.Diff(oldTree, newTree)
	if err != nil {
		return errors.Wrap(err, "diffing")
	}

	for _, d := range diffs {
		if d.Kind != treesync.Added && d.Kind != treesync.Modified {
			continue
		}
		if d.New == nil || d.New.Type != treesync.File {
			continue
		}
		node := newTree.Get(d.New.Path)
		if node == nil {
			return errors.Errorf("diff referenced missing node %s", d.New.Path)
		}
		if err := s.SendFile(ctx, newTree, node, c.conf.ChunkSize); err != nil {
			return errors.Wrapf(err, "sending %s", d.New.Path)
		}
		log.Printf("sent %s", d.New.Path)
	}

	return nil
}
