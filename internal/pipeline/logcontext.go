package pipeline

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/log"
)

// videoLogContext substitutes for the original's thread-local "currently
// processing video" context (frame_extractor/logger.rs): Go goroutines have
// no TLS, so each worker's current video path is tracked by worker ID in a
// small registry instead, purely to enrich log messages (§9's allowance for
// a per-thread logging context; this carries no query/insert semantics).
type videoLogContext struct {
	mu      sync.RWMutex
	current map[int]string
}

var workerVideo = videoLogContext{current: make(map[int]string)}

// enter records that workerID is now processing path, for logf to tag.
func (c *videoLogContext) enter(workerID int, path string) {
	c.mu.Lock()
	c.current[workerID] = path
	c.mu.Unlock()
}

// leave clears workerID's current video once it has been fully processed
// (successfully or not), so a later log line from the same worker between
// videos doesn't misattribute itself to a finished video.
func (c *videoLogContext) leave(workerID int) {
	c.mu.Lock()
	delete(c.current, workerID)
	c.mu.Unlock()
}

func (c *videoLogContext) get(workerID int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	path, ok := c.current[workerID]
	return path, ok
}

// logf logs format/args through github.com/grailbio/base/log, prefixed with
// whatever video workerID is currently processing, if any.
func logf(workerID int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if path, ok := workerVideo.get(workerID); ok {
		log.Printf("worker %d [%s]: %s", workerID, path, msg)
		return
	}
	log.Printf("worker %d: %s", workerID, msg)
}
