// Package snapfile frames relocatable snapshot buffers in a small on-disk
// container: a fixed header (magic, version, payload length) followed by the
// raw buffer. The core engine deliberately writes no self-description, so
// this package is the caller-side wrapper for snapshots that live in files.
package snapfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	MagicV1   uint32 = 0x4F4C4552 // "RELO"
	VersionV1 uint16 = 1

	// HeaderSize is fixed and 8-byte aligned so the payload keeps the
	// natural alignment the engine wrote it with (the mapping base is
	// page-aligned).
	HeaderSize = 32
)

// FlagChecksum marks that the header carries a CRC-32 (IEEE) of the
// payload, verified on Map.
const FlagChecksum uint16 = 1 << 0

var (
	ErrBadMagic   = errors.New("not a snapshot file")
	ErrBadVersion = errors.New("unsupported snapshot version")
	ErrTruncated  = errors.New("snapshot file truncated")
	ErrChecksum   = errors.New("snapshot payload checksum mismatch")
)

// Header describes one framed snapshot. The header is little-endian on all
// hosts; the payload behind it is host-native, as the engine wrote it.
type Header struct {
	Magic      uint32
	Version    uint16
	Flags      uint16
	PayloadLen uint64
	Checksum   uint32
}

func encodeHeader(buf []byte, h Header) []byte {
	buf = append(buf, make([]byte, HeaderSize)...)
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	binary.LittleEndian.PutUint16(buf[6:], h.Flags)
	binary.LittleEndian.PutUint64(buf[8:], h.PayloadLen)
	binary.LittleEndian.PutUint32(buf[16:], h.Checksum)
	// bytes 20..31 reserved, zero
	return buf
}

// ParseHeader validates and decodes the container header at the start of
// buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrTruncated
	}
	h := Header{
		Magic:      binary.LittleEndian.Uint32(buf[0:]),
		Version:    binary.LittleEndian.Uint16(buf[4:]),
		Flags:      binary.LittleEndian.Uint16(buf[6:]),
		PayloadLen: binary.LittleEndian.Uint64(buf[8:]),
		Checksum:   binary.LittleEndian.Uint32(buf[16:]),
	}
	if h.Magic != MagicV1 {
		return Header{}, ErrBadMagic
	}
	if h.Version != VersionV1 {
		return Header{}, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if h.PayloadLen > uint64(len(buf)-HeaderSize) {
		return Header{}, fmt.Errorf("%w: header claims %d payload bytes, file has %d",
			ErrTruncated, h.PayloadLen, len(buf)-HeaderSize)
	}
	return h, nil
}
