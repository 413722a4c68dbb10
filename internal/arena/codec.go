package arena

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// lengthFieldSize is the width of the trailing self-describing length
// field that a variable-size codec's values carry, mirroring the
// `{ len, bytes[len] }` archived form of the deferred value box: since a
// Ref always points one byte past the end of a value, a variable-length
// value must record its own length in the bytes immediately preceding
// the ref so it can be located by walking backward, without Go's
// equivalent of rkyv's zero-copy struct reinterpretation.
const lengthFieldSize = 8

// Codec describes how to turn values of type T into arena bytes and
// back. FixedSize, when nonzero, declares that every T occupies exactly
// that many bytes; the arena can then locate and mutate a T purely from
// its Ref, with no extra bookkeeping. A FixedSize of 0 means T is
// variable-length: the arena appends a trailing length field after the
// value's bytes so Get can find where it starts.
type Codec[T any] struct {
	FixedSize int
	Len       func(v T) int
	Marshal   func(v T, buf []byte)
	Unmarshal func(buf []byte) (T, error)
}

func (c Codec[T]) payloadLen(v T) int {
	if c.FixedSize > 0 {
		return c.FixedSize
	}
	return c.Len(v)
}

// Add appends v to the arena and returns its Ref.
func Add[T any](a *Arena, c Codec[T], v T) (Ref[T], error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, errors.New("arena: add on closed arena")
	}

	payloadLen := c.payloadLen(v)
	total := uint64(payloadLen)
	if c.FixedSize == 0 {
		total += lengthFieldSize
	}

	start := align8(a.usedLen)
	padding := start - a.usedLen
	need := padding + total
	if err := a.ensureSpace(need); err != nil {
		// Failure semantics: poison nothing, leave usedLen (and hence
		// the header) untouched; the caller's next Add starts from the
		// same cursor.
		return 0, err
	}

	buf := a.data[start : start+uint64(payloadLen)]
	c.Marshal(v, buf)
	end := start + uint64(payloadLen)
	if c.FixedSize == 0 {
		binary.LittleEndian.PutUint64(a.data[end:end+lengthFieldSize], uint64(payloadLen))
		end += lengthFieldSize
	}

	a.usedLen = end
	a.writeHeader()
	return Ref[T](end), nil
}

// span resolves ref to the byte range [start, end) of the value it
// addresses. Caller must hold a.mu.
func (a *Arena) span(ref uint64, fixedSize int) (start, end uint64, err error) {
	if ref == 0 {
		return 0, 0, errors.New("arena: null ref")
	}
	if ref > a.usedLen || ref <= uint64(headerSize) {
		return 0, 0, errors.Errorf("arena: ref %d out of range (used_len=%d, header=%d)", ref, a.usedLen, headerSize)
	}
	end = ref
	if fixedSize > 0 {
		if end < uint64(fixedSize) {
			return 0, 0, errors.Errorf("arena: ref %d too small for fixed size %d", ref, fixedSize)
		}
		start = end - uint64(fixedSize)
		return start, end, nil
	}
	if end < lengthFieldSize {
		return 0, 0, errors.Errorf("arena: ref %d too small for a length field", ref)
	}
	n := binary.LittleEndian.Uint64(a.data[end-lengthFieldSize : end])
	payloadEnd := end - lengthFieldSize
	if n > payloadEnd {
		return 0, 0, errors.Errorf("arena: ref %d claims length %d past start of file", ref, n)
	}
	start = payloadEnd - n
	return start, payloadEnd, nil
}

// Get validates and decodes the value at ref.
func Get[T any](a *Arena, c Codec[T], ref Ref[T]) (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	if a.closed {
		return zero, errors.New("arena: get on closed arena")
	}
	start, end, err := a.span(uint64(ref), c.FixedSize)
	if err != nil {
		return zero, err
	}
	return c.Unmarshal(a.data[start:end])
}

// Mutate decodes the fixed-size value at ref, lets fn modify it in
// place, and re-encodes it back over the same bytes. Only fixed-size
// codecs support mutation: BKNode's tombstone flag and ChildBlock's
// slot array are the two in-place-mutable records the tree engine
// needs; the deferred value box and every variable-length payload are
// immutable once written, per the data model.
func Mutate[T any](a *Arena, c Codec[T], ref Ref[T], fn func(*T)) error {
	if c.FixedSize == 0 {
		return errors.New("arena: Mutate requires a fixed-size codec")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errors.New("arena: mutate on closed arena")
	}
	start, end, err := a.span(uint64(ref), c.FixedSize)
	if err != nil {
		return err
	}
	v, err := c.Unmarshal(a.data[start:end])
	if err != nil {
		return err
	}
	fn(&v)
	c.Marshal(v, a.data[start:end])
	a.dirty = true
	return nil
}

// RefToFirst returns the Ref a value of a fixed-size type T would have
// if it were the very first record appended right after the header —
// used once, by the tree engine, to locate the Meta record
// deterministically without storing a separate pointer to it.
func RefToFirst[T any](c Codec[T]) Ref[T] {
	if c.FixedSize == 0 {
		panic("arena: RefToFirst requires a fixed-size codec")
	}
	start := align8(uint64(headerSize))
	return Ref[T](start + uint64(c.FixedSize))
}
