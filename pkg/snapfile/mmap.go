package snapfile

import (
	"errors"
	"fmt"
	"hash/crc32"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a snapshot file mapped into memory. The mapping is private
// (copy-on-write): the in-place rebase performed by decoding dirties only
// this process's pages and never reaches the file, so the same file can be
// mapped again for a fresh, un-rebased copy.
type Mapping struct {
	f      *os.File
	data   []byte
	header Header
}

// Map opens and memory-maps a snapshot file, validating its container
// header.
func Map(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat snapshot file: %w", err)
	}
	if fi.Size() < HeaderSize {
		f.Close()
		return nil, ErrTruncated
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap snapshot file: %w", err)
	}

	header, err := ParseHeader(data)
	if err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, err
	}

	if header.Flags&FlagChecksum != 0 {
		payload := data[HeaderSize : HeaderSize+header.PayloadLen]
		if crc32.ChecksumIEEE(payload) != header.Checksum {
			unix.Munmap(data)
			f.Close()
			return nil, ErrChecksum
		}
	}

	return &Mapping{f: f, data: data, header: header}, nil
}

// Header returns the parsed container header.
func (m *Mapping) Header() Header { return m.header }

// Payload returns the snapshot buffer view, ready to be deserialized in
// place. The slice is only valid until Close.
func (m *Mapping) Payload() []byte {
	return m.data[HeaderSize : HeaderSize+m.header.PayloadLen]
}

// Close unmaps the file and closes it. Any object decoded out of this
// mapping is dead after Close.
func (m *Mapping) Close() error {
	unmapErr := unix.Munmap(m.data)
	closeErr := m.f.Close()
	return errors.Join(unmapErr, closeErr)
}
