// Package bktree implements the persistent on-disk BK-tree: build,
// radius search, tombstone delete, full scan, and rebuild-to-new-file,
// over an arena-backed file shared by every node and child block.
package bktree

import (
	"github.com/grailbio/vdup/internal/arena"
	"github.com/grailbio/vdup/internal/hashval"
	"github.com/pkg/errors"
)

// Tree is an opened BK-tree bound to a payload type T via a
// PayloadCodec. AnyTree (Tree[[]byte] with the identity codec) is the
// type-erased counterpart used by tooling that only needs to walk
// hashes and structure without understanding the payload.
type Tree[T any] struct {
	a       *arena.Arena
	payload PayloadCodec[T]
	metaRef arena.Ref[Meta]
	meta    Meta
}

// AnyTree is the type-erased view described in §4.E: it walks the same
// on-disk structure as a typed Tree but never parses a deferred box's
// contents, only copies the raw bytes around.
type AnyTree = Tree[[]byte]

// Open opens (or creates) a tree file at path bound to payload type T.
// A brand new file is stamped with sourceIdentifier; an existing file's
// stored identifier must match it exactly.
func Open[T any](path string, sourceIdentifier string, payload PayloadCodec[T]) (*Tree[T], error) {
	return open(path, sourceIdentifier, payload, false)
}

// OpenAny opens path in type-erased mode: no identifier check, and the
// payload is treated as an opaque byte slice.
func OpenAny(path string) (*AnyTree, error) {
	return open[[]byte](path, "", rawPayloadCodec, true)
}

func open[T any](path string, sourceIdentifier string, payload PayloadCodec[T], erased bool) (*Tree[T], error) {
	a, err := arena.Open(path)
	if err != nil {
		return nil, err
	}
	metaRef := arena.RefToFirst(metaCodec)
	t := &Tree[T]{a: a, payload: payload, metaRef: metaRef}

	if a.UsedLen() < uint64(metaRef) {
		meta := Meta{Root: 0, SourceIdentifier: sourceIdentifier}
		gotRef, err := arena.Add(a, metaCodec, meta)
		if err != nil {
			a.Close()
			return nil, err
		}
		if gotRef != metaRef {
			a.Close()
			return nil, errors.Errorf("bktree: internal error: meta landed at %d, expected %d", gotRef, metaRef)
		}
		t.meta = meta
		return t, nil
	}

	meta, err := arena.Get(a, metaCodec, metaRef)
	if err != nil {
		a.Close()
		return nil, err
	}
	if !erased && meta.SourceIdentifier != sourceIdentifier {
		a.Close()
		return nil, errors.Errorf("bktree: %s was built with source identifier %q, opened as %q", path, meta.SourceIdentifier, sourceIdentifier)
	}
	t.meta = meta
	return t, nil
}

// Add inserts (hash, value) into the tree.
func (t *Tree[T]) Add(hash hashval.Hamming, value T) error {
	box, err := PutBox(t.a, t.payload, value)
	if err != nil {
		return err
	}
	newNode := BKNode{Hash: hash, ValueBytes: box.Bytes}
	newRef, err := arena.Add(t.a, nodeCodec, newNode)
	if err != nil {
		return err
	}

	if t.meta.Root.IsNull() {
		return t.setRoot(newRef)
	}

	cur := t.meta.Root
	for {
		node, err := arena.Get(t.a, nodeCodec, cur)
		if err != nil {
			return err
		}
		d := uint32(hashval.Distance(node.Hash, hash))

		if node.Children.IsNull() {
			block := newChildBlock()
			block.add(d, uint64(newRef))
			blockRef, err := arena.Add(t.a, childCodec, block)
			if err != nil {
				return err
			}
			return arena.Mutate(t.a, nodeCodec, cur, func(n *BKNode) {
				n.Children = blockRef
			})
		}

		descendTo, descend, err := t.spliceIntoChain(node.Children, d, uint64(newRef))
		if err != nil {
			return err
		}
		if !descend {
			return nil
		}
		cur = descendTo
	}
}

// AddAll inserts every (hash, value) pair in order.
func (t *Tree[T]) AddAll(hashes []hashval.Hamming, values []T) error {
	if len(hashes) != len(values) {
		return errors.Errorf("bktree: AddAll given %d hashes but %d values", len(hashes), len(values))
	}
	for i := range hashes {
		if err := t.Add(hashes[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree[T]) setRoot(ref arena.Ref[BKNode]) error {
	if err := arena.Mutate(t.a, metaCodec, t.metaRef, func(m *Meta) {
		m.Root = ref
	}); err != nil {
		return err
	}
	t.meta.Root = ref
	return nil
}

// spliceIntoChain walks blockRef's sibling chain looking for key. If
// found, it reports the child to descend into. Otherwise it places
// (key, val) in the first block with room (or a freshly appended one)
// and reports that no further descent is needed.
func (t *Tree[T]) spliceIntoChain(blockRef arena.Ref[ChildBlock], key uint32, val uint64) (descendTo arena.Ref[BKNode], descend bool, err error) {
	for {
		block, err := arena.Get(t.a, childCodec, blockRef)
		if err != nil {
			return 0, false, err
		}
		if ref, ok := block.get(key); ok {
			return arena.Ref[BKNode](ref), true, nil
		}
		if !block.full() {
			next := block
			next.add(key, val)
			if err := arena.Mutate(t.a, childCodec, blockRef, func(b *ChildBlock) { *b = next }); err != nil {
				return 0, false, err
			}
			return 0, false, nil
		}
		if block.nextSibling.IsNull() {
			nb := newChildBlock()
			nb.add(key, val)
			nbRef, err := arena.Add(t.a, childCodec, nb)
			if err != nil {
				return 0, false, err
			}
			if err := arena.Mutate(t.a, childCodec, blockRef, func(b *ChildBlock) { b.nextSibling = nbRef }); err != nil {
				return 0, false, err
			}
			return 0, false, nil
		}
		blockRef = block.nextSibling
	}
}

// FindWithin visits every live (hash, value) pair within radius of
// query. Visit order is unspecified; a visit error aborts the walk.
func (t *Tree[T]) FindWithin(query hashval.Hamming, radius int, visit func(hashval.Hamming, T) error) error {
	if t.meta.Root.IsNull() {
		return nil
	}
	stack := []arena.Ref[BKNode]{t.meta.Root}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, err := arena.Get(t.a, nodeCodec, ref)
		if err != nil {
			return err
		}
		d := hashval.Distance(node.Hash, query)
		if d <= radius && !node.Removed {
			val, err := GetBox(t.a, DeferredBox{Bytes: node.ValueBytes}, t.payload)
			if err != nil {
				return err
			}
			if err := visit(node.Hash, val); err != nil {
				return err
			}
		}
		if node.Children.IsNull() {
			continue
		}
		lo := d - radius
		if lo < 0 {
			lo = 0
		}
		hi := d + radius
		if hi > hashval.MaxDistance {
			hi = hashval.MaxDistance
		}
		blockRef := node.Children
		for !blockRef.IsNull() {
			block, err := arena.Get(t.a, childCodec, blockRef)
			if err != nil {
				return err
			}
			for _, e := range block.used() {
				if int(e.key) >= lo && int(e.key) <= hi {
					stack = append(stack, arena.Ref[BKNode](e.ref))
				}
			}
			blockRef = block.nextSibling
		}
	}
	return nil
}

// ForEach visits every live (hash, value) pair, in unspecified order.
func (t *Tree[T]) ForEach(visit func(hashval.Hamming, T) error) error {
	return t.walk(func(ref arena.Ref[BKNode], node BKNode) error {
		if node.Removed {
			return nil
		}
		val, err := GetBox(t.a, DeferredBox{Bytes: node.ValueBytes}, t.payload)
		if err != nil {
			return err
		}
		return visit(node.Hash, val)
	})
}

// RemoveAnyOf tombstones every node whose (hash, value) satisfies
// predicate. No structural change; removal is purely logical.
func (t *Tree[T]) RemoveAnyOf(predicate func(hashval.Hamming, T) bool) error {
	return t.walk(func(ref arena.Ref[BKNode], node BKNode) error {
		if node.Removed {
			return nil
		}
		val, err := GetBox(t.a, DeferredBox{Bytes: node.ValueBytes}, t.payload)
		if err != nil {
			return err
		}
		if !predicate(node.Hash, val) {
			return nil
		}
		return arena.Mutate(t.a, nodeCodec, ref, func(n *BKNode) { n.Removed = true })
	})
}

// CountNodes returns (alive, dead) over every node in the tree.
func (t *Tree[T]) CountNodes() (alive, dead int, err error) {
	err = t.walk(func(ref arena.Ref[BKNode], node BKNode) error {
		if node.Removed {
			dead++
		} else {
			alive++
		}
		return nil
	})
	return alive, dead, err
}

// walk performs a full structural DFS from the root, calling fn once
// per node (tombstoned or not) with no distance filtering; it is the
// shared traversal behind ForEach, RemoveAnyOf and CountNodes.
func (t *Tree[T]) walk(fn func(ref arena.Ref[BKNode], node BKNode) error) error {
	if t.meta.Root.IsNull() {
		return nil
	}
	stack := []arena.Ref[BKNode]{t.meta.Root}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node, err := arena.Get(t.a, nodeCodec, ref)
		if err != nil {
			return err
		}
		if err := fn(ref, node); err != nil {
			return err
		}
		blockRef := node.Children
		for !blockRef.IsNull() {
			block, err := arena.Get(t.a, childCodec, blockRef)
			if err != nil {
				return err
			}
			for _, e := range block.used() {
				stack = append(stack, arena.Ref[BKNode](e.ref))
			}
			blockRef = block.nextSibling
		}
	}
	return nil
}

// RebuildTo copies every live (hash, value) pair into a fresh tree file
// at newPath, in traversal order. The caller is responsible for
// renaming newPath over the original once satisfied.
func (t *Tree[T]) RebuildTo(newPath string) (*Tree[T], error) {
	fresh, err := Open(newPath, t.meta.SourceIdentifier, t.payload)
	if err != nil {
		return nil, err
	}
	if err := t.ForEach(func(h hashval.Hamming, v T) error {
		return fresh.Add(h, v)
	}); err != nil {
		fresh.Close()
		return nil, err
	}
	return fresh, nil
}

// Close syncs the arena and releases the file.
func (t *Tree[T]) Close() error {
	return t.a.Close()
}
