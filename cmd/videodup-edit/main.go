// Command videodup-edit applies offline maintenance goals to a video tree
// outside the main indexing pipeline (§4.K): stats, rebuild, purge-by-path,
// list-all and random-delete.
//
// Usage:
//
//	videodup-edit -database-file /data/hashes.tree stats rebuild 'purge:/data/dups'
//
// Goals run in the order given on the command line.
package main

import (
	"flag"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/vdup/internal/editgoals"
	"github.com/pkg/errors"
)

func run() error {
	fs := flag.NewFlagSet("videodup-edit", flag.ExitOnError)
	database := fs.String("database-file", "", "path to the persistent BK-tree file to edit")
	fs.Usage = func() {
		os.Stderr.WriteString(`videodup-edit -database-file FILE goal [goal ...]

Goals, applied in order:
  stats          print alive/dead/total node counts
  rebuild        drop tombstones, compacting the tree file in place
  purge:DIR      tombstone every path mentioned in a debuginfo artifact under DIR
  list:FILE      write one "hash path:framepos:N|M" line per live entry to FILE
  randel:N       tombstone up to N distinct video paths, chosen at random
`)
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *database == "" || fs.NArg() == 0 {
		fs.Usage()
		return errors.New("videodup-edit: -database-file and at least one goal are required")
	}
	return editgoals.Run(*database, fs.Args(), os.Stdout)
}

func main() {
	cleanup := grail.Init()
	defer cleanup()
	_ = vcontext.Background()

	if err := run(); err != nil {
		log.Fatalf("videodup-edit: %v", err)
	}
}
