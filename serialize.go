package relo

import (
	"reflect"
	"unsafe"

	"github.com/sirupsen/logrus"
)

// pendingOffset records a weak-pointer slot whose target had not been
// written when the slot was visited. Resolved once, at end of encode.
type pendingOffset struct {
	origin unsafe.Pointer
	pos    Offset
}

// serializationContext bundles the target, the pointee registry and the
// pending-fixup list for one top-level encode call. Not reusable, not safe
// for concurrent use.
type serializationContext struct {
	t       Target
	offsets map[unsafe.Pointer]Offset
	pending []pendingOffset
}

// Serialize encodes the object graph rooted at v into a fresh in-memory
// buffer. See SerializeTo for the semantics.
func Serialize[T any](v *T) ([]byte, error) {
	b := NewBuf()
	if err := SerializeTo(b, v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// SerializeTo writes v and everything transitively owned by it into t as a
// relocatable buffer: every pointer-bearing slot ends up holding either
// NullOffset or a byte offset relative to the buffer's start. Weak pointers
// resolve only against targets some owning pointer wrote during the same
// call; anything else is reported as dangling (a warning, not an error) and
// its slot keeps the raw pre-encode bytes.
//
// The encoding is tied to the producing process: field padding, pointer
// width and byte order are whatever the host has.
func SerializeTo[T any](t Target, v *T) error {
	ti, err := planFor(reflect.TypeFor[T]())
	if err != nil {
		return err
	}

	c := &serializationContext{
		t:       t,
		offsets: make(map[unsafe.Pointer]Offset),
	}

	origin := unsafe.Pointer(v)
	pos := t.Write(origin, Offset(ti.size), Offset(ti.align))
	c.serialize(ti, origin, pos)
	c.resolvePending()
	return t.Err()
}

// serialize visits one value: origin is its live address, pos the offset of
// its already-written raw bytes in the target.
func (c *serializationContext) serialize(ti *typeInfo, origin unsafe.Pointer, pos Offset) {
	switch ti.kind {
	case kindStruct:
		for i := range ti.fields {
			f := &ti.fields[i]
			c.serialize(f.typ, unsafe.Add(origin, uintptr(f.off)), pos+Offset(f.off))
		}

	case kindArray:
		for i := uint64(0); i < ti.arrayLen; i++ {
			off := i * ti.elem.size
			c.serialize(ti.elem, unsafe.Add(origin, uintptr(off)), pos+Offset(off))
		}

	case kindPtr:
		c.serializePtr(origin, pos)

	case kindVector:
		c.serializeVector(ti, origin, pos)

	case kindString:
		c.serializeString(origin, pos)

	case kindUniquePtr:
		c.serializeUniquePtr(ti, origin, pos)

	case kindScalar:
		// Covered by the raw byte copy of the enclosing write.
	}
}

// serializePtr handles weak/raw pointers: resolve against the registry now
// or queue a fixup for end of encode. It never writes the pointee.
func (c *serializationContext) serializePtr(origin unsafe.Pointer, pos Offset) {
	p := *(*unsafe.Pointer)(origin)
	if p == nil {
		c.t.PatchUint64(pos, uint64(NullOffset))
		return
	}
	if off, ok := c.offsets[p]; ok {
		c.t.PatchUint64(pos, uint64(off))
		return
	}
	c.pending = append(c.pending, pendingOffset{origin: p, pos: pos})
}

func (c *serializationContext) serializeVector(ti *typeInfo, origin unsafe.Pointer, pos Offset) {
	h := (*vectorHeader)(origin)
	elem := ti.elem

	payload := NullOffset
	if h.el != nil {
		payload = c.t.Write(h.el, Offset(elem.size*h.usedSize), Offset(elem.align))
	}

	c.t.PatchUint64(pos+Offset(vecOffEl), uint64(payload))
	c.t.PatchUint64(pos+Offset(vecOffAllocatedSize), h.usedSize)
	c.t.PatchByte(pos+Offset(vecOffSelfAllocated), 0)

	if h.el == nil || !elem.hasRelocs {
		return
	}
	for i := uint64(0); i < h.usedSize; i++ {
		off := i * elem.size
		c.serialize(elem, unsafe.Add(h.el, uintptr(off)), payload+Offset(off))
	}
}

func (c *serializationContext) serializeString(origin unsafe.Pointer, pos Offset) {
	h := (*stringHeader)(origin)
	if h.short {
		// Fully embedded in the aggregate bytes already.
		return
	}

	payload := NullOffset
	if h.ptr != nil {
		payload = c.t.Write(h.ptr, Offset(h.size), 1)
	}
	c.t.PatchUint64(pos+Offset(strOffPtr), uint64(payload))
	c.t.PatchByte(pos+Offset(strOffSelfAllocated), 0)
}

func (c *serializationContext) serializeUniquePtr(ti *typeInfo, origin unsafe.Pointer, pos Offset) {
	h := (*uniquePtrHeader)(origin)
	if h.el == nil {
		c.t.PatchUint64(pos+Offset(uptrOffEl), uint64(NullOffset))
		c.t.PatchByte(pos+Offset(uptrOffSelfAllocated), 0)
		return
	}

	// A pointee that was already written (shared target, or a cycle back
	// into a node currently being written) resolves to its existing offset
	// instead of being written twice.
	if off, ok := c.offsets[h.el]; ok {
		c.t.PatchUint64(pos+Offset(uptrOffEl), uint64(off))
		c.t.PatchByte(pos+Offset(uptrOffSelfAllocated), 0)
		return
	}

	elem := ti.elem
	payload := c.t.Write(h.el, Offset(elem.size), Offset(elem.align))
	c.t.PatchUint64(pos+Offset(uptrOffEl), uint64(payload))
	c.t.PatchByte(pos+Offset(uptrOffSelfAllocated), 0)

	// Register before recursing: a back-reference reached inside the
	// pointee must find this offset already present.
	c.offsets[h.el] = payload
	if elem.hasRelocs {
		c.serialize(elem, h.el, payload)
	}
}

// resolvePending drains the fixup list against the now-complete registry.
// Unresolved entries are dangling: the slot keeps its pre-encode raw bytes,
// which a later decode would misread as an offset, so the caller must make
// sure every weak target is owned somewhere in the same graph.
func (c *serializationContext) resolvePending() {
	for _, p := range c.pending {
		if off, ok := c.offsets[p.origin]; ok {
			c.t.PatchUint64(p.pos, uint64(off))
			continue
		}
		logrus.Warnf("dangling pointer %p serialized at offset %d", p.origin, uint64(p.pos))
	}
}
