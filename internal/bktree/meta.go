package bktree

import (
	"encoding/binary"

	"github.com/grailbio/vdup/internal/arena"
	"github.com/pkg/errors"
)

// maxSourceIdentifierLen bounds the schema tag ("video:1", "string:1",
// "unit:1", ...) to keep Meta a fixed-size archived record.
const maxSourceIdentifierLen = 63

// Meta is the first record in every tree file: the root pointer and the
// schema tag that every subsequent typed Open must match.
type Meta struct {
	Root             arena.Ref[BKNode]
	SourceIdentifier string
}

const metaFixedSize = 8 + 1 + maxSourceIdentifierLen // = 72

var metaCodec = arena.Codec[Meta]{
	FixedSize: metaFixedSize,
	Marshal: func(v Meta, buf []byte) {
		binary.LittleEndian.PutUint64(buf[0:8], uint64(v.Root))
		id := v.SourceIdentifier
		if len(id) > maxSourceIdentifierLen {
			id = id[:maxSourceIdentifierLen]
		}
		buf[8] = byte(len(id))
		copy(buf[9:9+len(id)], id)
		for i := 9 + len(id); i < metaFixedSize; i++ {
			buf[i] = 0
		}
	},
	Unmarshal: func(buf []byte) (Meta, error) {
		var v Meta
		v.Root = arena.Ref[BKNode](binary.LittleEndian.Uint64(buf[0:8]))
		n := int(buf[8])
		if n > maxSourceIdentifierLen {
			return v, errors.Errorf("bktree: meta record has an impossible source-identifier length %d", n)
		}
		v.SourceIdentifier = string(buf[9 : 9+n])
		return v, nil
	},
}
