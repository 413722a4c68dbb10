// Package arena implements the file-backed, append-only, memory-mapped
// storage area that the BK-tree is built on: a single growable file, a
// durable header word recording how much of it is in use, and a set of
// generic Add/Get/Mutate operations addressed by byte-offset references
// (Ref[T]).
//
// Values are never moved once written; deletion is always logical
// (a tombstone flag inside the value itself). The only way to reclaim
// space is to rebuild into a fresh file and swap it in, which lives one
// layer up in the tree engine.
package arena

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	magic = "VDUPAREN"

	// growthFloor is the minimum number of bytes a grow step adds, even
	// when doubling the current file size would add less (a brand new
	// file is tiny).
	growthFloor = 8 * 1024

	alignment = 8 // sufficient for every value layout we archive.
)

var zeroChecksumKey [highwayhash.Size]byte

// headerSize is magic + used_len (uint64) + a HighwayHash-256 checksum of
// the used_len field, so a reopen can tell a torn header write (partial
// sector flush after a crash mid-fsync) apart from a legitimately short
// file. The spec's crash model only requires used_len itself to be the
// sole durability point; detecting corruption of that one word is
// additive, not a change in observable behavior.
const headerSize = len(magic) + 8 + highwayhash.Size

// Ref is a typed, 64-bit byte offset into an arena file. The zero Ref is
// the reserved null; a non-null Ref points one byte past the end of the
// value it addresses; Add returns the Ref for the value it just wrote.
type Ref[T any] uint64

// IsNull reports whether r is the null reference.
func (r Ref[T]) IsNull() bool { return r == 0 }

// Arena is an opened, memory-mapped arena file.
type Arena struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	data    []byte
	fileLen uint64
	usedLen uint64
	dirty   bool
	closed  bool
}

// Open opens the arena file at path, creating it (with just the header
// written) if it does not already exist.
func Open(path string) (*Arena, error) {
	fi, err := os.Stat(path)
	switch {
	case err == nil && fi.Size() == 0:
		return nil, errors.Errorf("arena: %s exists but is empty (not a valid arena file)", path)
	case os.IsNotExist(err):
		return createNew(path)
	case err != nil:
		return nil, errors.Wrapf(err, "arena: stat %s", path)
	default:
		return openExisting(path, uint64(fi.Size()))
	}
}

func createNew(path string) (*Arena, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "arena: create %s", path)
	}
	if err := f.Truncate(int64(headerSize)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "arena: truncate %s", path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, headerSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "arena: mmap %s", path)
	}
	a := &Arena{
		path:    path,
		file:    f,
		data:    data,
		fileLen: headerSize,
		usedLen: headerSize,
	}
	copy(a.data[0:len(magic)], magic)
	a.writeHeader()
	if err := a.msync(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openExisting(path string, size uint64) (*Arena, error) {
	if size < uint64(headerSize) {
		return nil, errors.Errorf("arena: %s is %d bytes, shorter than the %d-byte header", path, size, headerSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "arena: open %s", path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "arena: mmap %s", path)
	}
	a := &Arena{
		path:    path,
		file:    f,
		data:    data,
		fileLen: size,
	}
	if err := a.readHeader(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Arena) readHeader() error {
	if string(a.data[0:len(magic)]) != magic {
		return errors.Errorf("arena: %s does not start with the expected magic (corrupt or not an arena file)", a.path)
	}
	used := binary.LittleEndian.Uint64(a.data[len(magic) : len(magic)+8])
	wantSum := a.headerChecksum(used)
	gotSum := a.data[len(magic)+8 : headerSize]
	for i := range wantSum {
		if wantSum[i] != gotSum[i] {
			return errors.Errorf("arena: %s header checksum mismatch (torn write?)", a.path)
		}
	}
	if used > a.fileLen {
		return errors.Errorf("arena: %s used_len=%d exceeds file length %d", a.path, used, a.fileLen)
	}
	a.usedLen = used
	return nil
}

func (a *Arena) headerChecksum(usedLen uint64) [highwayhash.Size]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], usedLen)
	return highwayhash.Sum(buf[:], zeroChecksumKey[:])
}

// writeHeader stamps the current usedLen and its checksum into the
// mmap'd header. It does not msync; callers that need durability call
// SyncToDisk.
func (a *Arena) writeHeader() {
	binary.LittleEndian.PutUint64(a.data[len(magic):len(magic)+8], a.usedLen)
	sum := a.headerChecksum(a.usedLen)
	copy(a.data[len(magic)+8:headerSize], sum[:])
	a.dirty = true
}

// UsedLen returns the number of live bytes in the arena (the durable
// high-water mark), including the header.
func (a *Arena) UsedLen() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usedLen
}

// ensureSpace grows (doubling, minimum growthFloor) and remaps the file
// so that at least `extra` bytes are available past usedLen. Caller must
// hold a.mu.
func (a *Arena) ensureSpace(extra uint64) error {
	if a.usedLen+extra <= a.fileLen {
		return nil
	}
	newLen := a.fileLen
	growth := newLen
	if growth < growthFloor {
		growth = growthFloor
	}
	for newLen < a.usedLen+extra {
		newLen += growth
	}
	if err := unix.Munmap(a.data); err != nil {
		return errors.Wrapf(err, "arena: munmap %s", a.path)
	}
	if err := a.file.Truncate(int64(newLen)); err != nil {
		return errors.Wrapf(err, "arena: truncate %s to %d", a.path, newLen)
	}
	data, err := unix.Mmap(int(a.file.Fd()), 0, int(newLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrapf(err, "arena: remap %s", a.path)
	}
	a.data = data
	a.fileLen = newLen
	return nil
}

func align8(n uint64) uint64 {
	return (n + alignment - 1) / alignment * alignment
}

// msync flushes dirty mmap pages to disk without closing the file.
func (a *Arena) msync() error {
	if err := unix.Msync(a.data, unix.MS_SYNC); err != nil {
		return errors.Wrapf(err, "arena: msync %s", a.path)
	}
	return nil
}

// SyncToDisk flushes the mmap and the file to disk, making the current
// usedLen durable. This is the only operation that is required for
// crash safety; everything written since the last SyncToDisk (or Open)
// may be lost, but never half-applied.
func (a *Arena) SyncToDisk() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("arena: sync on closed arena")
	}
	if !a.dirty {
		return nil
	}
	if err := a.msync(); err != nil {
		return err
	}
	a.dirty = false
	return nil
}

// CopyTo streams the live prefix [0, usedLen) to w, giving a raw
// byte-identical snapshot of the arena. The tree engine's RebuildTo does
// not use it; it re-inserts record by record instead.
func (a *Arena) CopyTo(w interface{ Write([]byte) (int, error) }) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := w.Write(a.data[:a.usedLen])
	return err
}

// Close syncs and unmaps the arena, then closes the underlying file.
// Reopening a file that was never closed is safe: the header word is
// authoritative and any bytes past it are ignored and will be
// overwritten by the next Add.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	var firstErr error
	if a.dirty {
		if err := a.msync(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.data != nil {
		if err := unix.Munmap(a.data); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "arena: munmap %s", a.path)
		}
		a.data = nil
	}
	if a.file != nil {
		if err := a.file.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "arena: close %s", a.path)
		}
		a.file = nil
	}
	return firstErr
}
