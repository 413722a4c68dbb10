package bktree

import (
	"github.com/grailbio/vdup/internal/arena"
)

// DeferredBox is a self-contained, pre-serialized payload embedded in a
// BKNode. The tree engine never needs to know the payload's shape to
// walk the tree; a box is only parsed when a caller asks for it through
// a matching PayloadCodec, via GetBox.
type DeferredBox struct {
	Bytes arena.Ref[[]byte]
}

// PayloadCodec marshals and unmarshals a tree's payload type. Unlike the
// fixed-layout node and child-block codecs, this one runs against an
// already-extracted byte slice rather than directly against arena
// memory, since the payload shape is opaque to everything except the
// caller that owns T.
type PayloadCodec[T any] struct {
	Marshal   func(v T) []byte
	Unmarshal func(buf []byte) (T, error)
}

var rawBytesCodec = arena.Codec[[]byte]{
	Len: func(v []byte) int { return len(v) },
	Marshal: func(v []byte, buf []byte) {
		copy(buf, v)
	},
	Unmarshal: func(buf []byte) ([]byte, error) {
		out := make([]byte, len(buf))
		copy(out, buf)
		return out, nil
	},
}

// PutBox serializes v with pc and appends it to a as a new deferred box.
func PutBox[T any](a *arena.Arena, pc PayloadCodec[T], v T) (DeferredBox, error) {
	ref, err := arena.Add(a, rawBytesCodec, pc.Marshal(v))
	if err != nil {
		return DeferredBox{}, err
	}
	return DeferredBox{Bytes: ref}, nil
}

// GetBox reads box's raw bytes out of a and parses them with pc.
func GetBox[T any](a *arena.Arena, box DeferredBox, pc PayloadCodec[T]) (T, error) {
	var zero T
	buf, err := arena.Get(a, rawBytesCodec, box.Bytes)
	if err != nil {
		return zero, err
	}
	return pc.Unmarshal(buf)
}

// rawPayloadCodec treats the payload as an opaque byte slice: the
// identity PayloadCodec used by the type-erased AnyTree, where the box
// contents are copied around (for Rebuild, e.g.) but never interpreted.
var rawPayloadCodec = PayloadCodec[[]byte]{
	Marshal:   func(v []byte) []byte { return v },
	Unmarshal: func(buf []byte) ([]byte, error) { return buf, nil },
}
