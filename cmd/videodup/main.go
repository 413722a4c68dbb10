// Command videodup indexes a tree of already-extracted video frame
// directories into a persistent BK-tree of perceptual hashes, reporting
// near-duplicates as it goes (§4.H, §5).
//
// Each immediate sub-directory of --src-root is treated as one video: its
// files, in name order, are the video's frame stream, --frame-interval
// apart (the decoder itself is out of scope; see internal/videosrc).
//
// Example:
//
//	videodup -src-root /data/videos -dup-dir /data/dups -database-file /data/hashes.tree
//
// With no command-line arguments at all, videodup reads its flags from
// .videoduprc in the current directory instead (one whitespace-tokenized
// argument list, the same convention as any plain args file).
package main

import (
	"bufio"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/vdup/internal/bktree"
	"github.com/grailbio/vdup/internal/ignored"
	"github.com/grailbio/vdup/internal/pipeline"
	"github.com/grailbio/vdup/internal/repo"
	"github.com/grailbio/vdup/internal/sampler"
	"github.com/grailbio/vdup/internal/simplepath"
	"github.com/grailbio/vdup/internal/videosrc"
	"github.com/pkg/errors"
)

// sourceIdentifier is the schema tag stamped into every video tree this
// binary opens or creates.
const sourceIdentifier = "video:1"

type flags struct {
	srcRoot   string
	dupDir    string
	database  string
	ignoreDir string

	graveyardDir      string
	graveyardS3Bucket string
	graveyardS3Prefix string

	videoThreads  int
	limit         int
	logfile       string
	frameInterval time.Duration

	minFrames           int
	keyframeStep        time.Duration
	phantomSteps        string
	similarityThreshold int
	oneColorThreshold   float64
	tolerance           int
	maskifyThreshold    int
	maximumWhites       float64
	emptinessThreshold  float64
	mirror              bool
}

func registerFlags(fs *flag.FlagSet) *flags {
	f := &flags{}
	defaults := sampler.DefaultConfig()

	fs.StringVar(&f.srcRoot, "src-root", "", "root directory; every immediate subdirectory is one video's frame directory")
	fs.StringVar(&f.dupDir, "dup-dir", "", "directory to write duplicate-report entries into")
	fs.StringVar(&f.database, "database-file", "videodup.tree", "path to the persistent BK-tree file")
	fs.StringVar(&f.ignoreDir, "ignore-dir", "", "optional directory of reference images to treat as known-bad hashes")

	fs.StringVar(&f.graveyardDir, "graveyard-dir", "", "optional directory to write rejected-frame entries into")
	fs.StringVar(&f.graveyardS3Bucket, "graveyard-s3-bucket", "", "optional S3 bucket to additionally mirror graveyard JPEGs into")
	fs.StringVar(&f.graveyardS3Prefix, "graveyard-s3-prefix", "", "key prefix for --graveyard-s3-bucket uploads")

	fs.IntVar(&f.videoThreads, "video-threads", 1, "number of concurrent decoder worker goroutines")
	fs.IntVar(&f.limit, "limit", 0, "stop after this many videos (0 means no limit)")
	fs.StringVar(&f.logfile, "logfile", "", "optional file to redirect log output to, instead of stderr")
	fs.DurationVar(&f.frameInterval, "frame-interval", time.Second, "nominal spacing between frame images in a video's frame directory")

	fs.IntVar(&f.minFrames, "min-frames", defaults.MinFrames, "minimum number of hash samples per video")
	fs.DurationVar(&f.keyframeStep, "keyframe-step", defaults.KeyframeStep, "maximum distance between stored samples")
	fs.StringVar(&f.phantomSteps, "phantom-steps", "", "comma-separated extra sampling schedules, matched but never stored")
	fs.IntVar(&f.similarityThreshold, "similarity-threshold", defaults.SimilarityThreshold, "inclusive Hamming distance below which consecutive hashes are suppressed as duplicates")
	fs.Float64Var(&f.oneColorThreshold, "one-color-threshold", defaults.OneColorThreshold, "percent of pixels near the most common gray value before a frame is rejected as one color")
	fs.IntVar(&f.tolerance, "tolerance", int(defaults.Tolerance), "per-channel gray distance used by the one-color check")
	fs.IntVar(&f.maskifyThreshold, "maskify-threshold", int(defaults.MaskifyThreshold), "gray value at/below which a pixel is considered part of the border mask")
	fs.Float64Var(&f.maximumWhites, "maximum-whites", defaults.MaximumWhites, "a row/column whose white-pixel count, as a fraction of the busiest row/column's, is at or below this is considered border")
	fs.Float64Var(&f.emptinessThreshold, "emptiness-threshold", defaults.EmptinessThreshold, "fractional coverage at/below which a crop is rejected as empty")
	fs.BoolVar(&f.mirror, "mirror", defaults.MirrorEnabled, "enable the horizontal-mirror augmentation pass")
	return f
}

func (f *flags) samplerConfig() (sampler.Config, error) {
	cfg := sampler.DefaultConfig()
	cfg.MinFrames = f.minFrames
	cfg.KeyframeStep = f.keyframeStep
	cfg.SimilarityThreshold = f.similarityThreshold
	cfg.OneColorThreshold = f.oneColorThreshold
	cfg.Tolerance = uint8(f.tolerance)
	cfg.MaskifyThreshold = uint8(f.maskifyThreshold)
	cfg.MaximumWhites = f.maximumWhites
	cfg.EmptinessThreshold = f.emptinessThreshold
	cfg.MirrorEnabled = f.mirror

	if f.phantomSteps != "" {
		for _, tok := range strings.Split(f.phantomSteps, ",") {
			d, err := time.ParseDuration(strings.TrimSpace(tok))
			if err != nil {
				return cfg, errors.Wrapf(err, "videodup: -phantom-steps %q", tok)
			}
			cfg.PhantomSteps = append(cfg.PhantomSteps, d)
		}
	}
	return cfg, nil
}

// videodupRC is read in place of os.Args when videodup is invoked with no
// arguments at all, the same whitespace-tokenized convention as any plain
// args file.
const videodupRC = ".videoduprc"

func argsFromRC() ([]string, error) {
	f, err := os.Open(videodupRC)
	if err != nil {
		return nil, errors.Wrapf(err, "videodup: read %s", videodupRC)
	}
	defer f.Close()
	var args []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		args = append(args, strings.Fields(sc.Text())...)
	}
	return args, errors.Wrap(sc.Err(), "videodup: scan "+videodupRC)
}

// discoverVideos returns, for every immediate subdirectory of root
// containing at least one regular file, that subdirectory's path
// relative to root, sorted.
func discoverVideos(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "videodup: read %s", root)
	}
	var videos []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "videodup: read %s", dir)
		}
		hasFile := false
		for _, f := range files {
			if !f.IsDir() {
				hasFile = true
				break
			}
		}
		if hasFile {
			videos = append(videos, e.Name())
		}
	}
	return videos, nil
}

func run() error {
	args := os.Args[1:]
	if len(args) == 0 {
		rcArgs, err := argsFromRC()
		if err != nil {
			return err
		}
		args = rcArgs
	}

	fs := flag.NewFlagSet("videodup", flag.ExitOnError)
	f := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if f.logfile != "" {
		logf, err := os.OpenFile(f.logfile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrapf(err, "videodup: open %s", f.logfile)
		}
		defer logf.Close()
		os.Stderr = logf
	}

	if f.srcRoot == "" || f.dupDir == "" {
		return errors.New("videodup: -src-root and -dup-dir are required")
	}

	samplerCfg, err := f.samplerConfig()
	if err != nil {
		return err
	}

	tree, err := bktree.Open(f.database, sourceIdentifier, sampler.VidSrcPayload)
	if err != nil {
		return errors.Wrapf(err, "videodup: open %s", f.database)
	}
	defer tree.Close()

	dupRepo, err := repo.Open(f.dupDir)
	if err != nil {
		return err
	}
	dups := &repo.DupWriter{Repo: dupRepo}

	var ignoredSet *ignored.Set
	if f.ignoreDir != "" {
		ignoredSet, err = ignored.Load(f.ignoreDir, samplerCfg)
		if err != nil {
			return err
		}
		log.Printf("videodup: loaded %d ignored hashes from %s", ignoredSet.Len(), f.ignoreDir)
	}

	var graveyardRepo *repo.Repo
	if f.graveyardDir != "" {
		graveyardRepo, err = repo.Open(f.graveyardDir)
		if err != nil {
			return err
		}
	}
	var s3Mirror *repo.S3Mirror
	if f.graveyardS3Bucket != "" {
		s3Mirror, err = repo.NewS3Mirror(f.graveyardS3Bucket, f.graveyardS3Prefix)
		if err != nil {
			return err
		}
	}

	videos, err := discoverVideos(f.srcRoot)
	if err != nil {
		return err
	}
	if f.limit > 0 && len(videos) > f.limit {
		videos = videos[:f.limit]
	}
	log.Printf("videodup: indexing %d videos under %s", len(videos), f.srcRoot)

	open := func(path string) (sampler.Decoder, error) {
		return videosrc.OpenDir(filepath.Join(f.srcRoot, path), f.frameInterval)
	}

	cfg := pipeline.Config{
		Workers:         f.videoThreads,
		ChannelCapacity: pipeline.DefaultChannelCapacity,
		SamplerConfig:   samplerCfg,
		Ignored:         ignoredSet,
	}
	if graveyardRepo != nil {
		vg := &videoGraveyard{repo: graveyardRepo, mirror: s3Mirror}
		cfg.GraveyardFactory = vg.forVideo
	}

	writer := &pipeline.TreeWriter{Tree: tree, Threshold: samplerCfg.SimilarityThreshold, Dups: dups}
	cookie := pipeline.NewCookie()
	if err := pipeline.Run(videos, cfg, open, cookie, writer); err != nil {
		return err
	}
	alive, dead, err := tree.CountNodes()
	if err != nil {
		return err
	}
	log.Printf("videodup: done, tree has alive=%d dead=%d", alive, dead)
	return nil
}

// videoGraveyard adapts repo.GraveyardWriter (one per video) to
// sampler.RejectSink, creating a fresh per-video GraveyardWriter lazily so
// graveyard entries remain grouped by video the way §4.I expects, even
// though the factory closure is shared across every worker.
type videoGraveyard struct {
	repo   *repo.Repo
	mirror *repo.S3Mirror
}

func (g *videoGraveyard) forVideo(path string) (sampler.RejectSink, error) {
	sp, err := simplepath.New(path)
	if err != nil {
		return nil, err
	}
	return &repo.GraveyardWriter{Repo: g.repo, VideoPath: sp, Mirror: g.mirror}, nil
}

func main() {
	cleanup := grail.Init()
	defer cleanup()
	_ = vcontext.Background()

	if err := run(); err != nil {
		log.Fatalf("videodup: %v", err)
	}
}
