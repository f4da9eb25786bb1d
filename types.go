package relo

import (
	"unsafe"
)

// The three container types below carry a fixed slot layout that doubles as
// the wire format: the serializer patches their slots at known byte offsets
// and the deserializer rebases them in place. Reordering any field breaks
// compatibility with previously written buffers.

// ----------------------------------------------------------------------------
// Vector
// ----------------------------------------------------------------------------

// Vector is a dynamic array with an explicit header. In a live graph el
// points at the backing elements; in an encoded buffer the el slot holds the
// payload offset (or NullOffset) and selfAllocated is false.
type Vector[T any] struct {
	el            *T
	allocatedSize uint64
	usedSize      uint64
	selfAllocated bool
	_             [7]byte
}

// vectorHeader is the type-erased view the engine uses to read and patch a
// Vector of any element type. Layout must match Vector exactly.
type vectorHeader struct {
	el            unsafe.Pointer
	allocatedSize uint64
	usedSize      uint64
	selfAllocated bool
	_             [7]byte
}

const (
	vecOffEl            = unsafe.Offsetof(vectorHeader{}.el)
	vecOffAllocatedSize = unsafe.Offsetof(vectorHeader{}.allocatedSize)
	vecOffUsedSize      = unsafe.Offsetof(vectorHeader{}.usedSize)
	vecOffSelfAllocated = unsafe.Offsetof(vectorHeader{}.selfAllocated)
)

// NewVector builds a self-allocated Vector holding a copy of els.
func NewVector[T any](els ...T) Vector[T] {
	if len(els) == 0 {
		return Vector[T]{}
	}
	backing := make([]T, len(els))
	copy(backing, els)
	return Vector[T]{
		el:            &backing[0],
		allocatedSize: uint64(len(backing)),
		usedSize:      uint64(len(backing)),
		selfAllocated: true,
	}
}

// VectorOf aliases an existing slice without copying. The slice must stay
// alive (and un-reallocated) for as long as the Vector is in use.
func VectorOf[T any](els []T) Vector[T] {
	if len(els) == 0 {
		return Vector[T]{}
	}
	return Vector[T]{
		el:            &els[0],
		allocatedSize: uint64(cap(els)),
		usedSize:      uint64(len(els)),
	}
}

// Len returns the logical element count.
func (v *Vector[T]) Len() int { return int(v.usedSize) }

// At returns a pointer to the i-th element. No bounds check beyond the
// slice conversion.
func (v *Vector[T]) At(i int) *T { return &v.Slice()[i] }

// Slice returns the elements as a regular Go slice sharing the backing
// memory. Returns nil for an empty Vector.
func (v *Vector[T]) Slice() []T {
	if v.el == nil {
		return nil
	}
	return unsafe.Slice(v.el, v.usedSize)
}

// ----------------------------------------------------------------------------
// String
// ----------------------------------------------------------------------------

// stringShortCapacity is the inline capacity of the short form. Strings at
// or below this length are embedded entirely inside the containing
// aggregate's bytes and produce no out-of-line payload.
const stringShortCapacity = 14

// String is a length-prefixed string with a short-string optimisation.
// The short form keeps the bytes in buf and leaves ptr nil, so it survives a
// raw byte copy untouched; the long form stores an out-of-line payload whose
// ptr slot gets rewritten during encode and decode.
type String struct {
	ptr           *byte
	size          uint64
	selfAllocated bool
	short         bool
	buf           [stringShortCapacity]byte
}

type stringHeader struct {
	ptr           unsafe.Pointer
	size          uint64
	selfAllocated bool
	short         bool
	buf           [stringShortCapacity]byte
}

const (
	strOffPtr           = unsafe.Offsetof(stringHeader{}.ptr)
	strOffSelfAllocated = unsafe.Offsetof(stringHeader{}.selfAllocated)
)

// NewString builds a String from s, choosing the short form when it fits.
func NewString(s string) String {
	if len(s) <= stringShortCapacity {
		out := String{size: uint64(len(s)), short: true}
		copy(out.buf[:], s)
		return out
	}
	backing := []byte(s)
	return String{
		ptr:           &backing[0],
		size:          uint64(len(s)),
		selfAllocated: true,
	}
}

// IsShort reports whether the inline representation is in use.
func (s *String) IsShort() bool { return s.short }

// Len returns the string length in bytes.
func (s *String) Len() int { return int(s.size) }

// String returns the contents. The long form shares the backing memory
// without copying.
func (s *String) String() string {
	if s.short {
		return string(s.buf[:s.size])
	}
	if s.ptr == nil {
		return ""
	}
	return unsafe.String(s.ptr, s.size)
}

// ----------------------------------------------------------------------------
// UniquePtr
// ----------------------------------------------------------------------------

// UniquePtr is an owning pointer: encoding it copies the pointee into the
// buffer and registers its identity so weak pointers elsewhere in the graph
// can resolve against it.
type UniquePtr[T any] struct {
	el            *T
	selfAllocated bool
	_             [7]byte
}

type uniquePtrHeader struct {
	el            unsafe.Pointer
	selfAllocated bool
	_             [7]byte
}

const (
	uptrOffEl            = unsafe.Offsetof(uniquePtrHeader{}.el)
	uptrOffSelfAllocated = unsafe.Offsetof(uniquePtrHeader{}.selfAllocated)
)

// MakeUnique allocates a pointee holding v and returns an owning pointer
// to it.
func MakeUnique[T any](v T) UniquePtr[T] {
	el := new(T)
	*el = v
	return UniquePtr[T]{el: el, selfAllocated: true}
}

// UniqueOf wraps an existing allocation as an owning pointer. Useful for
// building cyclic graphs where the pointee must exist before the edge.
func UniqueOf[T any](el *T) UniquePtr[T] {
	return UniquePtr[T]{el: el, selfAllocated: el != nil}
}

// Get returns the pointee, nil for a null pointer.
func (u *UniquePtr[T]) Get() *T { return u.el }

// IsNull reports whether the pointer is null.
func (u *UniquePtr[T]) IsNull() bool { return u.el == nil }
