package relo

import (
	"unsafe"

	"github.com/rawbytedev/relo/internal/common"
)

// Target is the byte sink a serialization writes into. Write appends with
// alignment and returns the start offset of the written region; the patch
// methods overwrite previously written slots in place and never change the
// buffer's size. Implementations carry a sticky error instead of returning
// one per call so the traversal stays free of error plumbing; the entry
// point checks Err once at the end.
type Target interface {
	Write(p unsafe.Pointer, size, align Offset) Offset
	PatchUint64(pos Offset, v uint64)
	PatchByte(pos Offset, v byte)
	Err() error
}

// Buf is the in-memory Target. Offsets stay valid across growth because
// they are relative to the logical start, not to the backing array.
type Buf struct {
	data        []byte
	zeroPadding [8]byte
}

func NewBuf() *Buf {
	return &Buf{}
}

// NewBufSize pre-sizes the backing array for graphs of a known rough size.
func NewBufSize(capacity int) *Buf {
	return &Buf{data: make([]byte, 0, capacity)}
}

func (b *Buf) Write(p unsafe.Pointer, size, align Offset) Offset {
	pad := common.Padding(uint64(len(b.data)), uint64(align))
	b.data = append(b.data, b.zeroPadding[:pad]...)
	start := Offset(len(b.data))
	if size > 0 {
		b.data = append(b.data, unsafe.Slice((*byte)(p), size)...)
	}
	return start
}

func (b *Buf) PatchUint64(pos Offset, v uint64) {
	common.PutWord(b.data, uint64(pos), v)
}

func (b *Buf) PatchByte(pos Offset, v byte) {
	b.data[pos] = v
}

// Err always returns nil; appending to memory cannot fail.
func (b *Buf) Err() error { return nil }

// Bytes returns the encoded buffer. The slice aliases the Buf's backing
// array until the next Reset.
func (b *Buf) Bytes() []byte { return b.data }

// Reset forgets the contents but keeps the allocation for reuse.
func (b *Buf) Reset() { b.data = b.data[:0] }

// Len returns the current buffer size in bytes.
func (b *Buf) Len() int { return len(b.data) }
