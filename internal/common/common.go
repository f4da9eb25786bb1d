package common

import (
	"encoding/binary"
)

// AlignUp rounds n up to the next multiple of align.
// align 0 and 1 both mean "no alignment".
func AlignUp(n uint64, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// Padding returns the number of bytes needed to align n to align.
func Padding(n uint64, align uint64) uint64 {
	return AlignUp(n, align) - n
}

// Word reads a native-endian machine word from b at off.
// Buffers produced by the engine are meant to be reinterpreted in place,
// so slot access always goes through the host byte order.
func Word(b []byte, off uint64) uint64 {
	return binary.NativeEndian.Uint64(b[off:])
}

// PutWord stores a native-endian machine word into b at off.
func PutWord(b []byte, off uint64, v uint64) {
	binary.NativeEndian.PutUint64(b[off:], v)
}
