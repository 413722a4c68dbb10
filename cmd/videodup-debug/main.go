// Command videodup-debug inspects the artifacts the main pipeline writes:
// reporting why a dup entry was flagged, pulling a single frame out of a
// video's frame directory, and comparing two images' hashes directly.
//
// Usage:
//
//	videodup-debug -root /data/dups -A
//	videodup-debug -root /data/dups -e 0007 -max-collisions 5 -plot
//	videodup-debug frame -src-root /data/videos -video clip1 -ts 12s
//	videodup-debug compare left.jpg right.jpg
//
// Kept as small debug utilities (bin/random_frame.rs, bin/pic_comparator.rs
// in the original), grounded on bio-pamtool's subcommand-per-file dispatch
// style.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/vdup/internal/debuginfo"
	"github.com/grailbio/vdup/internal/hashval"
	"github.com/grailbio/vdup/internal/plot"
	"github.com/grailbio/vdup/internal/sampler"
	"github.com/grailbio/vdup/internal/videosrc"
	"github.com/pkg/errors"
)

func run() error {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "frame":
			return runFrame(args[1:])
		case "compare":
			return runCompare(args[1:])
		}
	}
	return runCollisions(args)
}

// runCollisions is the default mode: report the debuginfo artifacts of one
// dup entry (-e) or every entry (-A) under -root.
func runCollisions(args []string) error {
	fs := flag.NewFlagSet("videodup-debug", flag.ExitOnError)
	root := fs.String("root", "", "dup-dir root to read entries from")
	entry := fs.String("e", "", "inspect only the numbered entry with this name (e.g. 0007)")
	all := fs.Bool("A", false, "inspect every entry under -root")
	maxCollisions := fs.Int("max-collisions", 0, "print at most this many collisions per entry (0 means no limit)")
	withPlot := fs.Bool("plot", false, "also print a text histogram of reference-frame hash distances")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *root == "" || (*entry == "" && !*all) {
		return errors.New("videodup-debug: -root and one of -e ENTRY or -A are required")
	}

	names := []string{*entry}
	if *all {
		dirs, err := os.ReadDir(*root)
		if err != nil {
			return errors.Wrapf(err, "videodup-debug: read %s", *root)
		}
		names = names[:0]
		for _, d := range dirs {
			if d.IsDir() {
				names = append(names, d.Name())
			}
		}
	}

	var distances []int
	for _, name := range names {
		collisions, err := readEntryDebuginfo(*root, name)
		if err != nil {
			return err
		}
		fmt.Printf("entry %s: %d collisions\n", name, len(collisions))
		for i, c := range collisions {
			if *maxCollisions > 0 && i >= *maxCollisions {
				fmt.Printf("  ... %d more\n", len(collisions)-*maxCollisions)
				break
			}
			d := hashval.Distance(c.ReferenceHash, c.OtherHash)
			distances = append(distances, d)
			fmt.Printf("  ref@%s (mirrored=%v) vs %s@%s (mirrored=%v): distance=%d\n",
				c.ReferenceTS, c.ReferenceMirrored, c.OtherPath, c.OtherTS, c.OtherMirrored, d)
		}
	}

	if *withPlot {
		bars := plot.Histogram(distances, 4)
		if err := plot.WriteText(os.Stdout, "reference-frame hash distance histogram", bars); err != nil {
			return err
		}
	}
	return nil
}

func readEntryDebuginfo(root, name string) ([]debuginfo.Collision, error) {
	entryDir := filepath.Join(root, name)
	files, err := os.ReadDir(entryDir)
	if err != nil {
		return nil, errors.Wrapf(err, "videodup-debug: read %s", entryDir)
	}
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), "debuginfo.bin") {
			continue
		}
		path := filepath.Join(entryDir, f.Name())
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "videodup-debug: open %s", path)
		}
		defer file.Close()
		return debuginfo.Read(file)
	}
	return nil, errors.Errorf("videodup-debug: no debuginfo artifact in %s", entryDir)
}

// runFrame extracts a single frame from a video's frame directory (see
// internal/videosrc), either at a given timestamp or a random one, and
// reports its hash.
func runFrame(args []string) error {
	fs := flag.NewFlagSet("videodup-debug frame", flag.ExitOnError)
	srcRoot := fs.String("src-root", "", "root directory holding per-video frame directories")
	video := fs.String("video", "", "video's subdirectory name under -src-root")
	interval := fs.Duration("interval", time.Second, "nominal spacing between frame images")
	ts := fs.Duration("ts", -1, "timestamp to extract (default: a random frame)")
	out := fs.String("out", "", "optional path to save the extracted frame as a JPEG")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *srcRoot == "" || *video == "" {
		return errors.New("videodup-debug frame: -src-root and -video are required")
	}

	dec, err := videosrc.OpenDir(filepath.Join(*srcRoot, *video), *interval)
	if err != nil {
		return err
	}

	target := *ts
	if target < 0 {
		target = time.Duration(rand.Int63n(int64(dec.ApproxLength())))
	}
	if err := dec.SeekTo(target); err != nil {
		return err
	}
	frameTS, img, err := dec.Next()
	if err != nil {
		return errors.Wrapf(err, "videodup-debug frame: extract at %s", target)
	}

	cfg := sampler.DefaultConfig()
	cropped, reason := sampler.Preprocess(img, cfg)
	if reason != sampler.RejectNone {
		fmt.Printf("frame at %s: rejected by preprocessing: %s\n", frameTS, reason)
		return nil
	}
	h, ok := sampler.Hash(cropped)
	if !ok {
		fmt.Printf("frame at %s: no hash produced\n", frameTS)
		return nil
	}
	fmt.Printf("frame at %s: hash=%s\n", frameTS, h.String())

	if *out != "" {
		return saveJPEG(*out, img)
	}
	return nil
}

// runCompare decodes two standalone images and reports the Hamming
// distance between their preprocessed hashes.
func runCompare(args []string) error {
	fs := flag.NewFlagSet("videodup-debug compare", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("videodup-debug compare: exactly two image paths are required")
	}

	cfg := sampler.DefaultConfig()
	h1, err := hashImageFile(fs.Arg(0), cfg)
	if err != nil {
		return err
	}
	h2, err := hashImageFile(fs.Arg(1), cfg)
	if err != nil {
		return err
	}
	fmt.Printf("%s: hash=%s\n", fs.Arg(0), h1.String())
	fmt.Printf("%s: hash=%s\n", fs.Arg(1), h2.String())
	fmt.Printf("distance=%d\n", hashval.Distance(h1, h2))
	return nil
}

func hashImageFile(path string, cfg sampler.Config) (hashval.Hamming, error) {
	f, err := os.Open(path)
	if err != nil {
		return hashval.Hamming{}, errors.Wrapf(err, "videodup-debug compare: open %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return hashval.Hamming{}, errors.Wrapf(err, "videodup-debug compare: decode %s", path)
	}
	cropped, reason := sampler.Preprocess(img, cfg)
	if reason != sampler.RejectNone {
		return hashval.Hamming{}, errors.Errorf("videodup-debug compare: %s rejected by preprocessing: %s", path, reason)
	}
	h, ok := sampler.Hash(cropped)
	if !ok {
		return hashval.Hamming{}, errors.Errorf("videodup-debug compare: %s produced no hash", path)
	}
	return h, nil
}

func saveJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "videodup-debug: create %s", path)
	}
	defer f.Close()
	return errors.Wrap(jpeg.Encode(f, img, &jpeg.Options{Quality: 95}), "videodup-debug: encode "+path)
}

func main() {
	cleanup := grail.Init()
	defer cleanup()
	_ = vcontext.Background()

	if err := run(); err != nil {
		log.Fatalf("videodup-debug: %v", err)
	}
}
