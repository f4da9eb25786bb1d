package relo

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

// ErrOffsetOutOfRange reports a stored offset at or beyond the supplied
// region bound. Decoding stops immediately; the buffer is left partially
// rebased and must be discarded.
var ErrOffsetOutOfRange = errors.New("pointer out of range")

// deserializationContext holds the coordinates of one in-place decode. The
// visited set keeps shared and cyclic owned pointees from being rebased
// twice.
type deserializationContext struct {
	base    unsafe.Pointer
	size    Offset
	bounded bool
	visited map[unsafe.Pointer]struct{}
}

// Deserialize rebases the encoded bytes in buf in place and returns the
// root, with every stored offset turned back into a live address. Offsets
// are validated against len(buf); a violation returns ErrOffsetOutOfRange.
//
// This is a destructive, single-use transform: buf afterwards contains
// absolute addresses, and running Deserialize on it again is a precondition
// violation. The returned object aliases buf, so buf must stay alive and
// unmoved for as long as the object is in use.
func Deserialize[T any](buf []byte) (*T, error) {
	ti, err := planFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) < ti.size {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, root needs %d",
			ErrOffsetOutOfRange, len(buf), ti.size)
	}

	c := &deserializationContext{
		base:    unsafe.Pointer(&buf[0]),
		size:    Offset(len(buf)),
		bounded: true,
		visited: make(map[unsafe.Pointer]struct{}),
	}
	if err := c.deserialize(ti, c.base); err != nil {
		return nil, err
	}
	return (*T)(c.base), nil
}

// DeserializeUnchecked is Deserialize without the range validation, for
// regions whose size is not known. Same in-place, single-use semantics.
func DeserializeUnchecked[T any](base unsafe.Pointer) (*T, error) {
	ti, err := planFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	c := &deserializationContext{
		base:    base,
		visited: make(map[unsafe.Pointer]struct{}),
	}
	if err := c.deserialize(ti, base); err != nil {
		return nil, err
	}
	return (*T)(base), nil
}

// rebase converts the stored relative offset in the 8-byte slot at p into
// an absolute address, in place, and returns it. The sentinel becomes nil.
func (c *deserializationContext) rebase(slot unsafe.Pointer) (unsafe.Pointer, error) {
	stored := *(*uint64)(slot)
	if Offset(stored) == NullOffset {
		*(*unsafe.Pointer)(slot) = nil
		return nil, nil
	}
	if c.bounded && Offset(stored) >= c.size {
		return nil, fmt.Errorf("%w: offset %d, region size %d",
			ErrOffsetOutOfRange, stored, uint64(c.size))
	}
	p := unsafe.Add(c.base, uintptr(stored))
	*(*unsafe.Pointer)(slot) = p
	return p, nil
}

func (c *deserializationContext) deserialize(ti *typeInfo, origin unsafe.Pointer) error {
	switch ti.kind {
	case kindStruct:
		for i := range ti.fields {
			f := &ti.fields[i]
			if err := c.deserialize(f.typ, unsafe.Add(origin, uintptr(f.off))); err != nil {
				return err
			}
		}
		return nil

	case kindArray:
		for i := uint64(0); i < ti.arrayLen; i++ {
			if err := c.deserialize(ti.elem, unsafe.Add(origin, uintptr(i*ti.elem.size))); err != nil {
				return err
			}
		}
		return nil

	case kindPtr:
		_, err := c.rebase(origin)
		return err

	case kindVector:
		return c.deserializeVector(ti, origin)

	case kindString:
		h := (*stringHeader)(origin)
		if h.short {
			return nil
		}
		_, err := c.rebase(unsafe.Add(origin, strOffPtr))
		return err

	case kindUniquePtr:
		return c.deserializeUniquePtr(ti, origin)

	default:
		return nil
	}
}

func (c *deserializationContext) deserializeVector(ti *typeInfo, origin unsafe.Pointer) error {
	p, err := c.rebase(unsafe.Add(origin, vecOffEl))
	if err != nil {
		return err
	}
	if p == nil || !ti.elem.hasRelocs {
		return nil
	}
	h := (*vectorHeader)(origin)
	for i := uint64(0); i < h.usedSize; i++ {
		if err := c.deserialize(ti.elem, unsafe.Add(p, uintptr(i*ti.elem.size))); err != nil {
			return err
		}
	}
	return nil
}

func (c *deserializationContext) deserializeUniquePtr(ti *typeInfo, origin unsafe.Pointer) error {
	p, err := c.rebase(unsafe.Add(origin, uptrOffEl))
	if err != nil {
		return err
	}
	if p == nil || !ti.elem.hasRelocs {
		return nil
	}
	// Deduplicated and cyclic pointees appear behind more than one owning
	// slot; rebase the pointee itself only once.
	if _, ok := c.visited[p]; ok {
		return nil
	}
	c.visited[p] = struct{}{}
	return c.deserialize(ti.elem, p)
}
