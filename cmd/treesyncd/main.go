// Command treesyncd is a thin driver around the treesync/session
// packages: it decides policy (who connects to whom, which root, which
// chunk size) and leaves the mechanism to those packages.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/bobg/subcmd"

	"github.com/t3nsor27/file-sync/session"
)

type config struct {
	Root      string `json:"root"`
	ChunkSize int    `json:"chunk_size"`
}

type maincmd struct {
	conf config
}

func main() {
	configPath := flag.String("config", "treesyncd.json", "path to config file")
	flag.Parse()

	f, err := os.Open(*configPath)
	if err != nil {
		log.Fatalf("opening config file %s: %s", *configPath, err)
	}
	defer f.Close()

	var conf config
	if err := json.NewDecoder(f).Decode(&conf); err != nil {
		log.Fatalf("decoding config file %s: %s", *configPath, err)
	}
	if conf.Root == "" {
		log.Fatalf("config file %s missing `root`", *configPath)
	}
	if conf.ChunkSize <= 0 {
		conf.ChunkSize = session.DefaultChunkSize
	}

	ctx := context.Background()
	if err := subcmd.Run(ctx, maincmd{conf: conf}, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"serve": {F: c.serve},
		"push":  {F: c.push},
		"scan":  {F: c.scanCmd},
	}
}
