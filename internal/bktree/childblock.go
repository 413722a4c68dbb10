package bktree

import (
	"encoding/binary"
	"math"

	"github.com/grailbio/vdup/internal/arena"
)

// ChildCapacity is K from §4.D: the number of (distance, child) slots a
// single ChildBlock holds before an insert has to chain into a sibling.
const ChildCapacity = 20

// sentinelKey marks an unused slot. It sorts after every legal distance
// (0..=128), so a partially-filled, sentinel-padded array is already in
// sorted order with the live entries first.
const sentinelKey = uint32(math.MaxUint32)

type childEntry struct {
	key uint32 // a Hamming distance, or sentinelKey if unused.
	ref uint64 // arena.Ref[BKNode], stored untyped to keep the array flat.
}

// ChildBlock is a fixed-capacity, distance-sorted array of child
// references plus a link to the next block in the chain when it fills
// up. Within one node's chain, a given key appears in at most one slot
// across every block.
type ChildBlock struct {
	entries     [ChildCapacity]childEntry
	nextSibling arena.Ref[ChildBlock]
}

func newChildBlock() ChildBlock {
	var b ChildBlock
	for i := range b.entries {
		b.entries[i].key = sentinelKey
	}
	return b
}

// full reports whether every slot holds a real entry.
func (b *ChildBlock) full() bool {
	return b.entries[ChildCapacity-1].key != sentinelKey
}

// search returns the index of the first slot whose key is >= key.
func (b *ChildBlock) search(key uint32) int {
	lo, hi := 0, ChildCapacity
	for lo < hi {
		mid := (lo + hi) / 2
		if b.entries[mid].key < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// get returns the child ref stored under key, if any.
func (b *ChildBlock) get(key uint32) (uint64, bool) {
	i := b.search(key)
	if i < ChildCapacity && b.entries[i].key == key {
		return b.entries[i].ref, true
	}
	return 0, false
}

// add inserts (key, ref) in sorted position, reporting whether there was
// room. Inserting a key already present is a programming error (the
// tree engine always descends into an existing key rather than calling
// add for it) and is not checked here.
func (b *ChildBlock) add(key uint32, ref uint64) bool {
	if b.full() {
		return false
	}
	i := b.search(key)
	copy(b.entries[i+1:], b.entries[i:ChildCapacity-1])
	b.entries[i] = childEntry{key: key, ref: ref}
	return true
}

// used returns the live slots, in ascending key order.
func (b *ChildBlock) used() []childEntry {
	n := 0
	for n < ChildCapacity && b.entries[n].key != sentinelKey {
		n++
	}
	return b.entries[:n]
}

const childBlockEntrySize = 16 // uint32 key + 4 pad + uint64 ref
const childBlockFixedSize = ChildCapacity*childBlockEntrySize + 8

var childCodec = arena.Codec[ChildBlock]{
	FixedSize: childBlockFixedSize,
	Marshal: func(v ChildBlock, buf []byte) {
		for i, e := range v.entries {
			off := i * childBlockEntrySize
			binary.LittleEndian.PutUint32(buf[off:off+4], e.key)
			binary.LittleEndian.PutUint64(buf[off+8:off+16], e.ref)
		}
		binary.LittleEndian.PutUint64(buf[ChildCapacity*childBlockEntrySize:], uint64(v.nextSibling))
	},
	Unmarshal: func(buf []byte) (ChildBlock, error) {
		var v ChildBlock
		for i := range v.entries {
			off := i * childBlockEntrySize
			v.entries[i].key = binary.LittleEndian.Uint32(buf[off : off+4])
			v.entries[i].ref = binary.LittleEndian.Uint64(buf[off+8 : off+16])
		}
		v.nextSibling = arena.Ref[ChildBlock](binary.LittleEndian.Uint64(buf[ChildCapacity*childBlockEntrySize:]))
		return v, nil
	},
}
