// Package relo serializes object graphs into relocatable flat buffers.
//
// An encoded buffer is a raw byte image of the graph in which every pointer
// slot holds an offset relative to the buffer's start instead of an address.
// Such a buffer can be written to disk, mapped or copied anywhere in memory,
// and turned back into a live graph with a single in-place pass that rebases
// each slot against the buffer's new base address. No allocation, no copying,
// no per-field decode.
//
// Graphs are built from three containers with fixed slot layouts: Vector,
// String and UniquePtr. UniquePtr owns its pointee and writes it into the
// buffer; plain Go pointers are weak references that resolve against pointees
// owned elsewhere in the same graph. Buffers use host padding, pointer width
// and byte order, so they are exchangeable between processes on the same
// platform but are not a portable interchange format.
//
// The pkg/snapfile subpackage frames buffers in an on-disk container with a
// checksummed header and maps them copy-on-write for decoding.
package relo
