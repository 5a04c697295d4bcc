package main

import (
	"context"
	"flag"
	"log"

	"github.com/pkg/errors"

	"github.com/t3nsor27/file-sync/session"
	"github.com/t3nsor27/file-sync/treesync"
)

// serve listens for incoming pushes. For each accepted connection it
// sends its own current tree first, receives the connecting side's
// tree, and independently computes the same diff the connecting side
// computed — both ends hold the same pair of trees, so the deterministic
// diff algorithm gives them the same ordered list of files to exchange
// with no further negotiation.
func (c maincmd) serve(ctx context.Context, fs *flag.FlagSet, args []string) error {
	addr := fs.String("addr", ":7465", "address to listen on")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}

	p := session.NewPeer()
	if err := p.Listen(*addr); err != nil {
		return err
	}
	log.Printf("listening on %s", p.Addr())

	p.Run(ctx, func(s *session.Session) {
		go c.serveSession(ctx, s)
	})

	<-ctx.Done()
	p.ClearSessions()
	return p.Stop()
}

func (c maincmd) serveSession(ctx context.Context, s *session.Session) {
	defer s.Close()

	oldTree, err := treesync.Scan(c.conf.Root)
	if err != nil {
		log.Printf("scanning %s: %s", c.conf.Root, err)
		return
	}
	// Hash every file before it crosses the wire. The peer's copy of
	// oldTree has no local files of its own to read, so it relies on
	// these hashes being already populated when it diffs against them.
	if err := treesync.HashAll(oldTree); err != nil {
		log.Printf("hashing %s: %s", c.conf.Root, err)
		return
	}
	if err := s.SendTree(ctx, oldTree); err != nil {
		log.Printf("sending tree: %s", err)
		return
	}

	newTree, err := s.ReceiveTree(ctx, c.conf.Root)
	if err != nil {
		log.Printf("receiving tree: %s", err)
		return
	}

	diffs, err := treesync.Diff(oldTree, newTree)
	if err != nil {
		log.Printf("diffing: %s", err)
		return
	}

	for _, d := range diffs {
		if d.Kind != treesync.Added && d.Kind != treesync.Modified {
			continue
		}
		if d.New == nil || d.New.Type != treesync.File {
			continue
		}
		n, err := s.ReceiveFile(ctx, oldTree)
		if err != nil {
			log.Printf("receiving %s: %s", d.New.Path, err)
			return
		}
		log.Printf("received %s (%d bytes)", d.New.Path, n)
	}

	if _, err := treesync.Scan(c.conf.Root); err != nil {
		log.Printf("re-scanning %s: %s", c.conf.Root, err)
	}
}
