package bktree

import (
	"encoding/binary"

	"github.com/grailbio/vdup/internal/arena"
	"github.com/grailbio/vdup/internal/hashval"
)

// BKNode is one entry in the tree: a hash, an opaque payload box, a
// tombstone flag, and a pointer to its first child block (null for a
// leaf). Fields are stored inline at a fixed offset so the node's
// archived layout never depends on the payload type.
type BKNode struct {
	Hash       hashval.Hamming
	ValueBytes arena.Ref[[]byte]
	Removed    bool
	Children   arena.Ref[ChildBlock]
}

const nodeFixedSize = 40 // 8 (Hi) + 8 (Lo) + 8 (ValueBytes) + 1 (Removed) + 7 (pad) + 8 (Children)

var nodeCodec = arena.Codec[BKNode]{
	FixedSize: nodeFixedSize,
	Marshal: func(v BKNode, buf []byte) {
		binary.LittleEndian.PutUint64(buf[0:8], v.Hash.Hi)
		binary.LittleEndian.PutUint64(buf[8:16], v.Hash.Lo)
		binary.LittleEndian.PutUint64(buf[16:24], uint64(v.ValueBytes))
		if v.Removed {
			buf[24] = 1
		} else {
			buf[24] = 0
		}
		binary.LittleEndian.PutUint64(buf[32:40], uint64(v.Children))
	},
	Unmarshal: func(buf []byte) (BKNode, error) {
		var v BKNode
		v.Hash.Hi = binary.LittleEndian.Uint64(buf[0:8])
		v.Hash.Lo = binary.LittleEndian.Uint64(buf[8:16])
		v.ValueBytes = arena.Ref[[]byte](binary.LittleEndian.Uint64(buf[16:24]))
		v.Removed = buf[24] != 0
		v.Children = arena.Ref[ChildBlock](binary.LittleEndian.Uint64(buf[32:40]))
		return v, nil
	},
}
