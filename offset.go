package relo

import "math"

// Offset is a byte position inside a snapshot buffer, relative to the
// buffer's start. Every pointer-bearing slot in an encoded buffer holds
// either an Offset or NullOffset, never a live address.
type Offset uint64

// NullOffset is the reserved sentinel meaning "null pointer". It is the
// maximum representable Offset, so the effective maximum buffer size is
// NullOffset-1; the engine never hands it out as a real position.
const NullOffset Offset = math.MaxUint64

// Offsets are stored directly inside pointer slots, so they must have the
// same width as a pointer. The package only supports 64-bit platforms.
const _ = uint64(^uintptr(0)) - math.MaxUint64
