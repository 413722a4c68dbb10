// Package pipeline wires the frame sampler to the BK-tree writer (§4.H,
// §5): a bounded work queue of video paths is fanned out across
// decoder worker goroutines, whose results are funneled through a
// bounded channel to a single tree-writer consumer.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	baseerrors "github.com/grailbio/base/errors"
	"github.com/grailbio/vdup/internal/sampler"
)

// DefaultChannelCapacity is the bounded channel size named by §4.H.
const DefaultChannelCapacity = 16

// Message is one decoder worker's output: every frame sampled from one
// video, ready for the tree-writer to query and insert.
type Message struct {
	VideoPath string
	Frames    []sampler.Frame
}

// Consumer processes messages in arrival order. Process is called from
// a single goroutine, so implementations need no internal locking.
type Consumer interface {
	Process(Message) error
}

// DecoderFactory opens path as a sampler.Decoder. Returning an error
// here is treated as a per-video failure, logged and skipped, not a
// pipeline-fatal error.
type DecoderFactory func(path string) (sampler.Decoder, error)

// Config configures a Run.
type Config struct {
	// Workers is the number of concurrent decoder worker goroutines.
	// Zero or negative is treated as 1.
	Workers int
	// ChannelCapacity bounds the message channel between workers and
	// the tree-writer. Zero or negative uses DefaultChannelCapacity.
	ChannelCapacity int
	SamplerConfig   sampler.Config
	Ignored         sampler.IgnoredChecker
	// Graveyard, if set, is used as every video's reject sink; for a
	// rejection-grouping sink (one repo entry per video, per §4.I) set
	// GraveyardFactory instead, which takes priority.
	Graveyard sampler.RejectSink
	// GraveyardFactory, if set, is called once per video to build that
	// video's reject sink.
	GraveyardFactory func(path string) (sampler.RejectSink, error)
}

// graveyardFor returns the reject sink sampleOne should use for path.
func (c Config) graveyardFor(path string) (sampler.RejectSink, error) {
	if c.GraveyardFactory != nil {
		return c.GraveyardFactory(path)
	}
	return c.Graveyard, nil
}

func (c Config) workers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

func (c Config) channelCapacity() int {
	if c.ChannelCapacity <= 0 {
		return DefaultChannelCapacity
	}
	return c.ChannelCapacity
}

// Run samples every path with cfg, feeding results to consumer in
// arrival order, and returns the first error any worker or the
// consumer reported (every worker is still awaited before Run
// returns). A panicking worker is caught and reported as a
// worker-named error rather than crashing the process.
func Run(paths []string, cfg Config, open DecoderFactory, cookie *Cookie, consumer Consumer) error {
	queue := NewWorkQueue(paths)
	ch := make(chan Message, cfg.channelCapacity())

	var once baseerrors.Once

	var workersWG sync.WaitGroup
	for i := 0; i < cfg.workers(); i++ {
		workersWG.Add(1)
		go func(workerID int) {
			defer workersWG.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Set(fmt.Errorf("pipeline worker %d: panic: %v", workerID, r))
				}
			}()
			runWorker(workerID, queue, cfg, open, cookie, ch)
		}(i)
	}

	var consumerWG sync.WaitGroup
	consumerWG.Add(1)
	go func() {
		defer consumerWG.Done()
		defer func() {
			if r := recover(); r != nil {
				once.Set(fmt.Errorf("pipeline consumer: panic: %v", r))
			}
		}()
		for msg := range ch {
			if err := consumer.Process(msg); err != nil {
				once.Set(fmt.Errorf("pipeline consumer: %s: %w", msg.VideoPath, err))
			}
		}
	}()

	workersWG.Wait()
	close(ch)
	consumerWG.Wait()

	return once.Err()
}

// sendPollInterval is how often a blocked send re-checks cookie while
// waiting for channel capacity to free up.
const sendPollInterval = 10 * time.Millisecond

func runWorker(workerID int, queue *WorkQueue[string], cfg Config, open DecoderFactory, cookie *Cookie, ch chan<- Message) {
	for {
		if cookie.IsTerminating() {
			logf(workerID, "terminating, exiting loop head")
			return
		}
		_, path, ok := queue.Next()
		if !ok {
			return
		}

		workerVideo.enter(workerID, path)
		msg, err := sampleOne(path, cfg, open)
		workerVideo.leave(workerID)
		if err != nil {
			logf(workerID, "%s: %v", path, err)
			continue
		}

		if !trySend(ch, msg, cookie) {
			return
		}
	}
}

func sampleOne(path string, cfg Config, open DecoderFactory) (Message, error) {
	dec, err := open(path)
	if err != nil {
		return Message{}, err
	}
	graveyard, err := cfg.graveyardFor(path)
	if err != nil {
		return Message{}, err
	}
	frames, err := sampler.Sample(dec, cfg.SamplerConfig, cfg.Ignored, graveyard)
	if err != nil {
		return Message{}, err
	}
	return Message{VideoPath: path, Frames: frames}, nil
}

// trySend attempts a non-blocking send, retrying against a poll
// interval and re-checking cookie at each retry's head, the Go
// equivalent of the original's try_send-then-retry loop. Returns false
// if cookie flips to terminating before the send succeeds.
func trySend(ch chan<- Message, msg Message, cookie *Cookie) bool {
	select {
	case ch <- msg:
		return true
	default:
	}
	ticker := time.NewTicker(sendPollInterval)
	defer ticker.Stop()
	for {
		select {
		case ch <- msg:
			return true
		case <-ticker.C:
			if cookie.IsTerminating() {
				return false
			}
		}
	}
}
